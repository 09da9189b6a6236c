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



// Package ai provides abstractions for the AI services used by docrag.
//
// This package defines interfaces for text embeddings and text generation. The
// pipelines depend on these abstractions rather than on a concrete provider.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Generator: Produces a completion for a prompt
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Errors
//
// Implementations report HTTP-level failures as *ProviderError and malformed
// responses with ErrProvider. Network failures are returned unchanged. The
// fault package relies on this to classify provider failures.
//
// # Constructor Return Type Pattern
//
// Production constructors return interfaces (openai.NewProvider returns
// ai.AIProvider). Mock constructors return concrete types so tests can inject
// behavior and inspect call counts.
package ai
