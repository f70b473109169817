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

// Package ingest turns raw source documents into cleansed batches.
//
// One ingestion run stores a new raw document version, extracts its content
// fragments, runs change detection against the persisted fingerprints, and
// creates a CLEANSED batch ready for the enrichment orchestrator. Ingesting
// byte-identical content for a source it has already seen is a no-op: the
// content hash matches the latest stored version and no new version or batch
// is created.
//
// Failure taxonomy:
//
//   - Ingestion-fatal (empty or malformed input): a batch is created directly
//     in FAILED status with no fragments; enrichment is never attempted.
//   - Extraction error (traversal failure mid-document): the raw record is
//     preserved in FAILED status for diagnosis and the batch is FAILED.
//
// Source identifiers carrying the configured scheme prefix are resolved
// through an external BlobStore collaborator; all other identifiers expect
// the caller to supply the bytes.
package ingest
