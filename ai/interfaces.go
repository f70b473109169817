package ai

import "context"

// Enricher produces structured enrichment for fragment text.
// Implementations must be thread-safe for concurrent use.
type Enricher interface {
	// Enrich analyzes the request text and returns its enrichment.
	// Returns ErrThrottled when the provider rate-limited the call; callers
	// must retry later rather than record a failure.
	// Returns ErrInvalidResponse when the provider output cannot be parsed.
	Enrich(ctx context.Context, req Request) (*Enrichment, error)
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns ErrThrottled when the provider rate-limited the call.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns ErrThrottled when the provider rate-limited the call.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Enricher and Embedder instances,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// Enricher returns the fragment enrichment service.
	// The returned Enricher is safe for concurrent use.
	Enricher() Enricher

	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
