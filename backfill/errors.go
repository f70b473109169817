package backfill

import "errors"

var (
	// ErrRepositoriesRequired is returned when no repositories are provided.
	ErrRepositoriesRequired = errors.New("repositories are required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrEmbeddingCountMismatch is returned when the provider returns a
	// different number of vectors than chunks submitted.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
)
