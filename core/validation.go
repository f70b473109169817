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

import "fmt"

// ValidateBatch validates a Batch according to domain rules.
//
// Validation rules:
//   - SourceID must not be empty
//   - Version must be positive
//   - every Fragment must itself validate
//
// NOT validated (populated by the orchestrator):
//   - Expected (0 until the producer runs)
//   - Status transitions (enforced by the conditional store update)
func ValidateBatch(batch *Batch) error {
	if batch == nil {
		return fmt.Errorf("%w: batch is nil", ErrInvalidBatch)
	}

	if batch.SourceID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBatch, ErrEmptySourceID)
	}

	if batch.Version < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidBatch, ErrInvalidVersion)
	}

	for i := range batch.Items {
		if err := ValidateFragment(&batch.Items[i]); err != nil {
			return fmt.Errorf("%w: item %d: %w", ErrInvalidBatch, i, err)
		}
	}

	return nil
}

// ValidateFragment validates a Fragment according to domain rules.
//
// Validation rules:
//   - SourcePath must not be empty
//   - FieldKey must not be empty
//
// NOT validated:
//   - Cleansed (blank fragments are legal when keep-blank is configured)
//   - hashes (computed lazily by change detection)
func ValidateFragment(fragment *Fragment) error {
	if fragment == nil {
		return fmt.Errorf("%w: fragment is nil", ErrInvalidFragment)
	}

	if fragment.SourcePath == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFragment, ErrEmptySourcePath)
	}

	if fragment.FieldKey == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFragment, ErrEmptyFieldKey)
	}

	return nil
}
