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
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/storage"
)

const timeoutMessage = "There is timeout problem during communication with the LLM service. Please contact developer to report the issue."

// Translate classifies err into exactly one Fault. Rules are tried in order and
// the first match wins:
//
//  1. err already is a Fault: returned unchanged
//  2. connection or network failure: ServiceUnavailable
//  3. provider answered 401: AuthFailure
//  4. provider answered 403: PermissionDenied
//  5. provider answered 400, 404, 409, 413 or 422: BadRequest
//  6. provider answered 429: RateLimited
//  7. any other provider-reported failure: ServiceError
//  8. vector index failure: VectorStoreError
//  9. anything else: UnknownLLM
//
// Translate returns nil for a nil error.
func Translate(err error) *Fault {
	if err == nil {
		return nil
	}

	var f *Fault
	if errors.As(err, &f) {
		return f
	}

	if isConnectionFailure(err) {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return &Fault{Kind: ServiceUnavailable, Message: timeoutMessage, cause: err}
		}
		return Wrap(ServiceUnavailable, err)
	}

	var pe *ai.ProviderError
	if errors.As(err, &pe) {
		return Wrap(kindForStatus(pe.StatusCode), err)
	}
	if errors.Is(err, ai.ErrProvider) {
		return Wrap(ServiceError, err)
	}

	if errors.Is(err, storage.ErrIndex) {
		return Wrap(VectorStoreError, err)
	}

	return Wrap(UnknownLLM, err)
}

// Ensure is the catch-all applied where a pipeline hands an error to its
// caller. Faults pass through; anything else becomes UnknownLLM.
func Ensure(err error) error {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return Wrap(UnknownLLM, err)
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return AuthFailure
	case http.StatusForbidden:
		return PermissionDenied
	case http.StatusBadRequest:
		return BadRequest
	case http.StatusTooManyRequests:
		return RateLimited
	default:
		return ServiceError
	}
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
