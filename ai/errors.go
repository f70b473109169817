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

package ai

import "errors"

var (
	// ErrThrottled indicates the provider rejected the request due to rate
	// limiting. Callers must treat this as a retry signal, never as a
	// terminal failure of the item being processed.
	ErrThrottled = errors.New("provider throttled request")

	// ErrInvalidResponse indicates the provider returned output that could
	// not be parsed into a valid enrichment.
	ErrInvalidResponse = errors.New("invalid provider response")

	// ErrEmptyText indicates an enrichment or embedding request with no text.
	ErrEmptyText = errors.New("empty text")
)
