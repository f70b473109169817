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

// Package backfill drains pending section embeddings after finalization.
//
// Finalization leaves a batch in AWAITING_EMBEDDINGS with each of its
// sections marked PENDING. The backfiller sweeps those sections, chunks
// their text, embeds each chunk through the shared rate limiter, stores the
// vectors, and marks the section EMBEDDED. A throttled embedding call is a
// retry signal, exactly as in enrichment: the section reverts to PENDING and
// is retried after a backoff rather than being treated as failed.
//
// Once a batch has no pending sections left, the backfiller computes the
// terminal COMPLETE or PARTIAL status from the batch's element outcomes and
// performs the final transition.
package backfill
