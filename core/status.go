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

// RawStatus describes the lifecycle of a raw record.
type RawStatus string

const (
	// RawReceived means the raw bytes are stored but not yet extracted.
	RawReceived RawStatus = "RECEIVED"
	// RawExtracted means extraction produced a batch for this record.
	RawExtracted RawStatus = "EXTRACTED"
	// RawFailed means ingestion or extraction failed terminally.
	RawFailed RawStatus = "FAILED"
)

// BatchStatus is the batch state machine. The status field is the sole
// coordination point for finalization: the transition into BatchFinalizing is
// performed as a conditional compare-and-swap, so exactly one caller wins.
type BatchStatus string

const (
	// BatchCleansed means extraction and change detection are done and the
	// batch is pending enrichment. This is the only status the queue producer
	// accepts; any other status makes producing a no-op.
	BatchCleansed BatchStatus = "CLEANSED"
	// BatchQueued means enrichment jobs have been published.
	BatchQueued BatchStatus = "QUEUED"
	// BatchInProgress means at least one job outcome has been recorded.
	BatchInProgress BatchStatus = "IN_PROGRESS"
	// BatchSkipped means no fragment needed enrichment this run.
	BatchSkipped BatchStatus = "SKIPPED"
	// BatchFinalizing is held by the single winner of the finalization CAS.
	BatchFinalizing BatchStatus = "FINALIZING"
	// BatchAwaitingEmbeddings means consolidation is done but sections are
	// still pending embedding; the backfill loop owns the final transition.
	BatchAwaitingEmbeddings BatchStatus = "AWAITING_EMBEDDINGS"
	// BatchComplete means every element enriched (or skipped) and every
	// section embedded.
	BatchComplete BatchStatus = "COMPLETE"
	// BatchPartial means at least one element errored and at least one succeeded.
	BatchPartial BatchStatus = "PARTIAL"
	// BatchFailed means every element errored, or ingestion/extraction failed
	// before any enrichment was attempted.
	BatchFailed BatchStatus = "FAILED"
)

// CanFinalize reports whether a batch in this status may be claimed for
// finalization. Statuses outside this set either already finalized or never
// reached the queue.
func (s BatchStatus) CanFinalize() bool {
	switch s {
	case BatchQueued, BatchInProgress, BatchSkipped:
		return true
	}
	return false
}

// Terminal reports whether the status is an end state.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchComplete, BatchPartial, BatchFailed:
		return true
	}
	return false
}

// ElementStatus describes the outcome recorded on an enriched element.
type ElementStatus string

const (
	ElementEnriched         ElementStatus = "ENRICHED"
	ElementErrorEnrichment  ElementStatus = "ERROR_ENRICHMENT_FAILED"
	ElementErrorValidation  ElementStatus = "ERROR_VALIDATION_FAILED"
	ElementSkipped          ElementStatus = "SKIPPED"
)

// IsError reports whether the element outcome is one of the error statuses.
func (s ElementStatus) IsError() bool {
	return s == ElementErrorEnrichment || s == ElementErrorValidation
}

// EmbeddingStatus describes where a section is in the embedding backfill.
type EmbeddingStatus string

const (
	EmbeddingPending    EmbeddingStatus = "PENDING"
	EmbeddingInProgress EmbeddingStatus = "IN_PROGRESS"
	Embedded            EmbeddingStatus = "EMBEDDED"
)
