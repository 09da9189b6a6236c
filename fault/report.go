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



package fault

import "errors"

// Report is the transport-facing view of an error.
type Report struct {
	Kind      string `json:"kind"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Provider  bool   `json:"provider"`  // raised by the embedding, generation or index provider
	Transient bool   `json:"transient"` // retrying unchanged may succeed
	Detail    string `json:"detail,omitempty"`
}

// Describe converts err into a Report. Errors that are not Faults are reported
// as Unexpected. Detail is only filled in when debug is set.
func Describe(err error, debug bool) Report {
	f, ok := asFault(err)
	if !ok {
		f = NewUnexpected(err)
	}
	r := Report{
		Kind:      f.Kind.String(),
		Code:      f.Kind.Code(),
		Message:   f.Message,
		Provider:  f.Kind.IsLLM(),
		Transient: f.Kind.Transient(),
	}
	if debug {
		r.Detail = f.Detail()
	}
	return r
}

func asFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
