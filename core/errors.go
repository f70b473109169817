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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidBatch indicates a Batch failed validation.
	ErrInvalidBatch = errors.New("invalid batch")

	// ErrInvalidFragment indicates a Fragment failed validation.
	ErrInvalidFragment = errors.New("invalid fragment")

	// ErrEmptySourceID indicates the source identifier is empty.
	ErrEmptySourceID = errors.New("source identifier cannot be empty")

	// ErrInvalidVersion indicates a non-positive document version.
	ErrInvalidVersion = errors.New("version must be positive")

	// ErrEmptySourcePath indicates the fragment source path is empty.
	ErrEmptySourcePath = errors.New("source path cannot be empty")

	// ErrEmptyFieldKey indicates the fragment field key is empty.
	ErrEmptyFieldKey = errors.New("field key cannot be empty")
)
