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

// Package delta decides which extracted fragments actually changed since the
// last ingestion of their source.
//
// Each fragment is compared against a persisted fingerprint keyed by
// (source path, field key, usage path). A fragment is considered changed when
// no fingerprint exists, when its raw content hash differs, or — if context
// rechecking is enabled — when its context hash differs while the content is
// unchanged. Fingerprints are rewritten on every run regardless of the
// outcome, so the store always reflects the latest observed state.
package delta
