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



package openai

import (
	"errors"
	"net/http"

	"github.com/poiesic/docrag/ai"
	goopenai "github.com/sashabaranov/go-openai"
)

const providerName = "openai"

// providerError converts go-openai's typed errors into *ai.ProviderError.
// Anything else, including transport failures, is returned as is.
func providerError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &ai.ProviderError{
			Provider:   providerName,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &ai.ProviderError{
			Provider:   providerName,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    http.StatusText(reqErr.HTTPStatusCode),
			Err:        err,
		}
	}

	return err
}

func newClient(config *ai.Config) *goopenai.Client {
	cfg := goopenai.DefaultConfig(config.APIKey)
	cfg.BaseURL = config.Host
	return goopenai.NewClientWithConfig(cfg)
}
