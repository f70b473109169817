package storage

import (
	"context"

	"github.com/poiesic/corpus/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// RawRepository manages versioned raw source documents.
type RawRepository interface {
	Repository
	// AddRawRecord stores a new document version. It marks the record as the
	// latest for its source and clears the latest flag on the previous
	// version, atomically.
	AddRawRecord(ctx context.Context, record *core.RawRecord) (*core.RawRecord, error)

	// GetRawRecord retrieves one document version.
	// Returns ErrNotFound if it doesn't exist.
	GetRawRecord(ctx context.Context, sourceID string, version int) (*core.RawRecord, error)

	// GetLatestRawRecord retrieves the latest stored version of a source.
	// Returns ErrNotFound if the source has never been ingested.
	GetLatestRawRecord(ctx context.Context, sourceID string) (*core.RawRecord, error)

	// UpdateRawStatus transitions a stored version's processing status.
	// Returns ErrNotFound if the version doesn't exist.
	UpdateRawStatus(ctx context.Context, sourceID string, version int, status core.RawStatus) error
}

// BatchRepository manages enrichment batches.
type BatchRepository interface {
	Repository
	// AddBatch stores a new batch.
	AddBatch(ctx context.Context, batch *core.Batch) (*core.Batch, error)

	// GetBatch retrieves a batch by ID.
	// Returns ErrNotFound if the batch doesn't exist.
	GetBatch(ctx context.Context, id string) (*core.Batch, error)

	// UpdateBatch replaces a stored batch.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the batch doesn't exist.
	UpdateBatch(ctx context.Context, batch *core.Batch) (*core.Batch, error)

	// UpdateBatchStatus transitions a batch's status unconditionally.
	UpdateBatchStatus(ctx context.Context, id string, status core.BatchStatus) error

	// ClaimBatchStatus atomically transitions a batch from any of the given
	// statuses to the target status. Returns false without error when the
	// batch is no longer in a claimable status, so exactly one caller wins
	// a concurrent claim.
	ClaimBatchStatus(ctx context.Context, id string, from []core.BatchStatus, to core.BatchStatus) (bool, error)

	// ListBatchesByStatus returns up to limit batches in the given status,
	// oldest first.
	ListBatchesByStatus(ctx context.Context, status core.BatchStatus, limit int) ([]*core.Batch, error)
}

// FingerprintRepository manages persisted change-detection fingerprints.
type FingerprintRepository interface {
	Repository
	// GetFingerprint retrieves the fingerprint for one fragment at one usage
	// location. Returns ErrNotFound if none was ever persisted.
	GetFingerprint(ctx context.Context, sourcePath, fieldKey, usagePath string) (*core.Fingerprint, error)

	// FindFingerprint retrieves any fingerprint recorded for the fragment
	// identity regardless of usage path. Used as a fallback for fingerprints
	// persisted before usage paths were recorded.
	// Returns ErrNotFound if none exists.
	FindFingerprint(ctx context.Context, sourcePath, fieldKey string) (*core.Fingerprint, error)

	// ListFingerprints returns every fingerprint recorded for the fragment
	// identity, one per usage path. Returns an empty slice when the identity
	// predates the usage index.
	ListFingerprints(ctx context.Context, sourcePath, fieldKey string) ([]*core.Fingerprint, error)

	// PutFingerprint stores or replaces a fingerprint.
	PutFingerprint(ctx context.Context, fp *core.Fingerprint) error
}

// ElementRepository manages per-fragment enrichment results.
type ElementRepository interface {
	Repository
	// UpsertElement stores an enrichment result, replacing any prior result
	// for the same (batch, source path, field key). Retried deliveries
	// therefore never duplicate elements.
	UpsertElement(ctx context.Context, element *core.EnrichedElement) error

	// GetElement retrieves one element.
	// Returns ErrNotFound if the element doesn't exist.
	GetElement(ctx context.Context, batchID, sourcePath, fieldKey string) (*core.EnrichedElement, error)

	// ListElements returns all elements recorded for a batch.
	ListElements(ctx context.Context, batchID string) ([]*core.EnrichedElement, error)

	// CountElements returns the number of elements recorded for a batch,
	// terminal or otherwise. Used to recover completion state after the
	// in-memory tracker is lost.
	CountElements(ctx context.Context, batchID string) (int, error)

	// FindPriorEnrichment retrieves the most recent successful enrichment of
	// a fragment identity across all batches.
	// Returns ErrNotFound if the fragment was never enriched.
	FindPriorEnrichment(ctx context.Context, sourcePath, fieldKey string) (*core.EnrichedElement, error)
}

// SectionRepository manages consolidated per-usage-location sections.
type SectionRepository interface {
	Repository
	// AddSection stores a section. Returns ErrDuplicateKey if a section with
	// the same (batch, section path, section URI, field key) already exists.
	AddSection(ctx context.Context, section *core.Section) error

	// GetSection retrieves one section.
	// Returns ErrNotFound if the section doesn't exist.
	GetSection(ctx context.Context, batchID, sectionPath, sectionURI, fieldKey string) (*core.Section, error)

	// ListSections returns all sections recorded for a batch.
	ListSections(ctx context.Context, batchID string) ([]*core.Section, error)

	// ListSectionsByEmbeddingStatus returns up to limit sections of a batch
	// in the given embedding status.
	ListSectionsByEmbeddingStatus(ctx context.Context, batchID string, status core.EmbeddingStatus, limit int) ([]*core.Section, error)

	// UpdateSectionEmbedding transitions a section's embedding status.
	// Returns ErrNotFound if the section doesn't exist.
	UpdateSectionEmbedding(ctx context.Context, batchID, sectionPath, sectionURI, fieldKey string, status core.EmbeddingStatus) error
}

// VectorRepository manages embedding vectors attached to sections.
type VectorRepository interface {
	Repository
	// PutVectors replaces the stored vectors for a section.
	PutVectors(ctx context.Context, batchID, sectionPath, sectionURI, fieldKey string, vectors []core.ContentVector) error

	// GetVectors retrieves the stored vectors for a section.
	// Returns an empty slice when none are stored.
	GetVectors(ctx context.Context, batchID, sectionPath, sectionURI, fieldKey string) ([]core.ContentVector, error)
}
