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

import (
	"errors"
	"fmt"
)

// Kind is one entry of the fault taxonomy.
type Kind int

const (
	// Unexpected is a failure unrelated to the LLM or vector concerns.
	Unexpected Kind = iota
	ServiceUnavailable
	AuthFailure
	PermissionDenied
	BadRequest
	RateLimited
	ServiceError
	VectorStoreError
	UnknownLLM
	StorageNotFound
	StorageConnection
	StorageError
	UnsupportedInput
)

var kindNames = map[Kind]string{
	Unexpected:         "Unexpected",
	ServiceUnavailable: "ServiceUnavailable",
	AuthFailure:        "AuthFailure",
	PermissionDenied:   "PermissionDenied",
	BadRequest:         "BadRequest",
	RateLimited:        "RateLimited",
	ServiceError:       "ServiceError",
	VectorStoreError:   "VectorStoreError",
	UnknownLLM:         "UnknownLlmFault",
	StorageNotFound:    "StorageNotFound",
	StorageConnection:  "StorageConnection",
	StorageError:       "StorageError",
	UnsupportedInput:   "UnsupportedInput",
}

// Error codes reported to transports. They keep the names the service has
// always used on the wire.
var kindCodes = map[Kind]string{
	Unexpected:         "APIError",
	ServiceUnavailable: "LlmAPIConnectionError",
	AuthFailure:        "LlmAuthenticationError",
	PermissionDenied:   "LlmPermissionError",
	BadRequest:         "LlmBadRequestError",
	RateLimited:        "LlmRateLimitError",
	ServiceError:       "LlmServiceError",
	VectorStoreError:   "LlmVectorStoreError",
	UnknownLLM:         "LlmError",
	StorageNotFound:    "ObjectStorageFileNotFoundError",
	StorageConnection:  "ObjectStorageConnectionError",
	StorageError:       "ObjectStorageError",
	UnsupportedInput:   "UnsupportedFileTypeError",
}

var defaultMessages = map[Kind]string{
	Unexpected:         "Unexpected error. Please report to developer to investigate the issue.",
	ServiceUnavailable: "There is problem with connection to the LLM service. Please contact developer to report the issue.",
	AuthFailure:        "There is something wrong with the LLM API key on server side. Please contact developer to investigate the issue.",
	PermissionDenied:   "There is something wrong with permission associated with the LLM API key. Please contact developer to investigate the issue.",
	BadRequest:         "There is something wrong with the LLM request on server side. Please contact developer to investigate the issue.",
	RateLimited:        "Too many requests were sent to the LLM service. Please wait or contact developer to resolve the issue.",
	ServiceError:       "There is problem at the LLM service. Please contact developer to report the issue.",
	VectorStoreError:   "There is some problem with vector db.",
	UnknownLLM:         "Unexpected error in llm service. Please report to developer to investigate the issue.",
	StorageNotFound:    "Could not find target file",
	StorageConnection:  "Could not connect to object storage service",
	StorageError:       "Unexpected error in object storage service. Please report to developer to investigate the issue.",
	UnsupportedInput:   "The uploaded file(s) are not in supported format",
}

// String returns the kind's name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Code returns the stable error code transports report for the kind.
func (k Kind) Code() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return kindCodes[Unexpected]
}

// IsLLM reports whether the kind originates from the embedding, generation or
// index providers.
func (k Kind) IsLLM() bool {
	switch k {
	case ServiceUnavailable, AuthFailure, PermissionDenied, BadRequest, RateLimited, ServiceError:
		return true
	}
	return false
}

// Transient reports whether the same call may succeed later without any change
// on the caller's or operator's side.
func (k Kind) Transient() bool {
	switch k {
	case ServiceUnavailable, RateLimited, ServiceError, VectorStoreError, StorageConnection, StorageError:
		return true
	}
	return false
}

// Fault is a classified failure crossing the core's boundary.
type Fault struct {
	Kind    Kind
	Message string
	cause   error
}

// Error returns the fault's caller-facing message.
func (f *Fault) Error() string {
	return f.Message
}

// Detail returns the text of the underlying cause, or "" when there is none.
func (f *Fault) Detail() string {
	if f.cause == nil {
		return ""
	}
	return f.cause.Error()
}

// New creates a fault with an explicit message. An empty message selects the
// kind's default message.
func New(kind Kind, message string) *Fault {
	if message == "" {
		message = defaultMessages[kind]
	}
	return &Fault{Kind: kind, Message: message}
}

// Wrap creates a fault of kind with the default message that remembers err.
func Wrap(kind Kind, err error) *Fault {
	return &Fault{Kind: kind, Message: defaultMessages[kind], cause: err}
}

// Unsupported reports input rejected before any external call was made.
func Unsupported(details string) *Fault {
	msg := defaultMessages[UnsupportedInput]
	if details != "" {
		msg = msg + " > " + details
	}
	return &Fault{Kind: UnsupportedInput, Message: msg}
}

// NewUnexpected wraps a failure that has nothing to do with providers or storage.
func NewUnexpected(err error) *Fault {
	return Wrap(Unexpected, err)
}

// KindOf returns the kind of err if it is a Fault. ok is false otherwise.
func KindOf(err error) (kind Kind, ok bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}

// Is reports whether err is a Fault of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
