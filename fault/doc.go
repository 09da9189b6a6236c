// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



// Package fault defines the closed set of caller-facing failure kinds and the
// ordered translator that maps raw errors from providers and indexes onto them.
//
// A Fault never exposes the error it was built from. Callers see the kind and a
// human-readable message; the cause is only reachable through Describe in
// debug mode.
package fault
