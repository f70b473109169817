package ingest

import "context"

// DefaultSchemePrefix marks source identifiers that resolve through the
// blob store instead of caller-supplied bytes.
const DefaultSchemePrefix = "blob://"

// BlobStore resolves scheme-prefixed source identifiers to raw bytes.
// Implementations live outside this module (object stores, CMS exports).
type BlobStore interface {
	// Fetch returns the raw bytes for the identifier.
	Fetch(ctx context.Context, uri string) ([]byte, error)
}
