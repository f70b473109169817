package ingest

import "errors"

var (
	// ErrRepositoriesRequired is returned when no repositories are provided.
	ErrRepositoriesRequired = errors.New("repositories are required")

	// ErrEmptyDocument indicates ingestion received no bytes.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrMalformedDocument indicates the document is not valid JSON.
	ErrMalformedDocument = errors.New("document is malformed")

	// ErrBlobStoreRequired indicates a scheme-prefixed identifier was given
	// without a configured blob store.
	ErrBlobStoreRequired = errors.New("blob store is required for scheme-prefixed identifiers")

	// ErrExtractionFailed indicates document traversal failed mid-document.
	ErrExtractionFailed = errors.New("extraction failed")
)
