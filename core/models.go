package core

import (
	"time"
)

// RawRecord is an immutable snapshot of one ingested document version.
// Only Status and IsLatest are mutated after creation; a new upload for the
// same source produces a new record with Version+1 rather than an update.
type RawRecord struct {
	SourceID    string
	Version     int // 1-based, strictly increasing per SourceID
	ContentHash string
	Raw         []byte
	Status      RawStatus
	IsLatest    bool
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// Batch is the unit of work for one ingestion run. It is created once per
// successful extraction and mutated by the orchestrator as enrichment
// proceeds; it is never deleted.
type Batch struct {
	ID       string
	SourceID string
	Version  int
	Status   BatchStatus
	// Expected is the deduplicated job count, persisted before the first job
	// is published so restarts can recount completion durably.
	Expected   int
	Items      []Fragment
	Errors     []string
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Fragment is one content-bearing value found during document traversal.
type Fragment struct {
	SourcePath string
	UsagePath  string
	FieldKey   string
	Model      string
	RawValue   string
	Cleansed   string
	// ContentHash is computed over the raw, pre-cleansed value so unchanged
	// fragments never pay for re-cleansing during change detection.
	ContentHash string
	ContextHash string
	Skip        bool // excluded from enrichment by configuration
	Changed     bool // set by change detection; only changed fragments are queued
	Context     FragmentContext
}

// Identity returns the logical fragment identity used for deduplication.
// Multiple usage paths of the same fragment share one identity.
func (f *Fragment) Identity() FragmentIdentity {
	return FragmentIdentity{SourcePath: f.SourcePath, FieldKey: f.FieldKey}
}

// FragmentIdentity is the (sourcePath, fieldKey) pair identifying a logical
// fragment independent of where it is used.
type FragmentIdentity struct {
	SourcePath string
	FieldKey   string
}

// FragmentContext is the envelope and facets snapshot attached to a fragment
// at extraction time.
type FragmentContext struct {
	Locale     string
	Language   string
	Country    string
	Model      string
	Provenance map[string]string
	Facets     map[string]string
}

// Flatten returns the context as a single key/value map, suitable for
// deterministic fingerprint hashing.
func (c *FragmentContext) Flatten() map[string]string {
	flat := make(map[string]string, len(c.Provenance)+len(c.Facets)+4)
	if c.Locale != "" {
		flat["locale"] = c.Locale
	}
	if c.Language != "" {
		flat["language"] = c.Language
	}
	if c.Country != "" {
		flat["country"] = c.Country
	}
	if c.Model != "" {
		flat["model"] = c.Model
	}
	for k, v := range c.Provenance {
		flat["provenance."+k] = v
	}
	for k, v := range c.Facets {
		flat["facet."+k] = v
	}
	return flat
}

// Fingerprint is the persisted per-usage-location hash record used for change
// detection. One row exists per (SourcePath, FieldKey, UsagePath), refreshed
// on every run regardless of whether the fragment was queued for enrichment.
type Fingerprint struct {
	SourcePath          string
	FieldKey            string
	UsagePath           string
	RawContentHash      string
	ContextHash         string
	CleansedContentHash string
	CleansedContextHash string
	UpdatedAt           time.Time
}

// EnrichedElement is one fragment's enrichment result, keyed uniquely by
// (BatchID, SourcePath, FieldKey). Upserted, never duplicated, across retries.
type EnrichedElement struct {
	BatchID        string
	SourcePath     string
	FieldKey       string
	CleansedText   string
	Summary        string
	Classification string
	Keywords       []string
	Tags           []string
	Sentiment      string
	Model          string
	Status         ElementStatus
	Error          string
	Context        FragmentContext
	UpdatedAt      time.Time
}

// Section is one physical usage location of an enriched fragment. One
// EnrichedElement fans out to N sections when the same fragment is referenced
// from multiple usage paths.
type Section struct {
	BatchID         string
	Version         int
	SectionPath     string
	SectionURI      string
	FieldKey        string
	CleansedText    string
	Summary         string
	Classification  string
	Keywords        []string
	Tags            []string
	Sentiment       string
	Model           string
	EmbeddingStatus EmbeddingStatus
	UpdatedAt       time.Time
}

// ContentVector is one embeddable chunk of a section's text plus its vector.
// Vectors are recreated, not updated, whenever a batch is finalized, so stale
// chunks from a prior version are discarded first.
type ContentVector struct {
	BatchID     string
	SectionPath string
	SectionURI  string
	FieldKey    string
	ChunkIndex  int
	Text        string
	Vector      []float32
	InsertedAt  time.Time
}
