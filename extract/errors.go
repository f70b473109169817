package extract

import "errors"

var (
	// ErrEmptyDocument indicates an empty input payload.
	ErrEmptyDocument = errors.New("empty document")

	// ErrMalformedDocument indicates the input could not be parsed as a
	// JSON object tree.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrNilDocument indicates Extract was called without a parsed tree.
	ErrNilDocument = errors.New("document is nil")
)
