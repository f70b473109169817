// Copyright 2026 Poiesic Systems
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
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/poiesic/corpus/ai"
)

// mapProviderError classifies a go-openai error. HTTP 429 becomes
// ai.ErrThrottled so the pipeline retries instead of recording a failure;
// everything else is wrapped with the failing operation.
func mapProviderError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%s: %w", op, ai.ErrThrottled)
		}
		return fmt.Errorf("%s: API error %d: %s", op, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%s: %w", op, ai.ErrThrottled)
		}
		return fmt.Errorf("%s: request error %d: %w", op, reqErr.HTTPStatusCode, reqErr.Err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
