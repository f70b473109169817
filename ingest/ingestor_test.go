package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
	badgerstore "github.com/poiesic/corpus/storage/badger"
)

func newTestIngestor(t *testing.T, opts ...Option) (*Ingestor, *badgerstore.Repositories) {
	t.Helper()
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	ingestor, err := NewIngestor(repos.Raw, repos.Batch, repos.Fingerprint, opts...)
	require.NoError(t, err)
	return ingestor, repos
}

func TestIngestCreatesCleanBatch(t *testing.T) {
	ingestor, repos := newTestIngestor(t)
	ctx := context.Background()

	doc := []byte(`{"copy": "Buy {%nbsp%}now<b>!</b>"}`)
	result, err := ingestor.Ingest(ctx, "page-1", doc, "/en_US/page")
	require.NoError(t, err)

	require.NotNil(t, result.Batch)
	assert.Equal(t, core.BatchCleansed, result.Batch.Status)
	assert.Equal(t, 1, result.Batch.Version)
	require.Len(t, result.Batch.Items, 1)

	fragment := result.Batch.Items[0]
	assert.Equal(t, "Buy now!", fragment.Cleansed)
	assert.Equal(t, "en_US", fragment.Context.Locale)
	assert.True(t, fragment.Changed, "first version bypasses change detection")

	raw, err := repos.Raw.GetLatestRawRecord(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, core.RawExtracted, raw.Status)
	assert.Equal(t, 1, raw.Version)
}

func TestIngestIdenticalContentIsNoOp(t *testing.T) {
	ingestor, repos := newTestIngestor(t)
	ctx := context.Background()

	doc := []byte(`{"copy": "hello"}`)
	first, err := ingestor.Ingest(ctx, "page-1", doc, "/en_US/page")
	require.NoError(t, err)

	second, err := ingestor.Ingest(ctx, "page-1", doc, "/en_US/page")
	require.NoError(t, err)
	assert.True(t, second.Unchanged)
	assert.Nil(t, second.Batch, "no new batch for identical content")
	assert.Equal(t, first.Raw.Version, second.Raw.Version)

	latest, err := repos.Raw.GetLatestRawRecord(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Version, "no new version created")
}

func TestIngestChangedContentVersionsUp(t *testing.T) {
	ingestor, repos := newTestIngestor(t)
	ctx := context.Background()

	_, err := ingestor.Ingest(ctx, "page-1",
		[]byte(`{"copy": "hello", "text": "stable"}`), "/en_US/page")
	require.NoError(t, err)

	result, err := ingestor.Ingest(ctx, "page-1",
		[]byte(`{"copy": "goodbye", "text": "stable"}`), "/en_US/page")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Batch.Version)
	assert.Equal(t, 1, result.Delta.Changed, "only the modified fragment changed")
	assert.Equal(t, 1, result.Delta.Unchanged)

	changed := map[string]bool{}
	for _, fragment := range result.Batch.Items {
		changed[fragment.FieldKey] = fragment.Changed
	}
	assert.True(t, changed["copy"])
	assert.False(t, changed["text"])

	v1, err := repos.Raw.GetRawRecord(ctx, "page-1", 1)
	require.NoError(t, err)
	assert.False(t, v1.IsLatest)
}

func TestIngestEmptyDocumentIsFatal(t *testing.T) {
	ingestor, repos := newTestIngestor(t)
	ctx := context.Background()

	result, err := ingestor.Ingest(ctx, "page-1", []byte{}, "")
	assert.ErrorIs(t, err, ErrEmptyDocument)
	require.NotNil(t, result.Batch)
	assert.Equal(t, core.BatchFailed, result.Batch.Status)
	assert.Empty(t, result.Batch.Items)
	assert.NotEmpty(t, result.Batch.Errors)

	_, err = repos.Raw.GetLatestRawRecord(ctx, "page-1")
	assert.ErrorIs(t, err, storage.ErrNotFound, "no raw version for fatal input")
}

func TestIngestMalformedDocumentIsFatal(t *testing.T) {
	ingestor, _ := newTestIngestor(t)
	ctx := context.Background()

	result, err := ingestor.Ingest(ctx, "page-1", []byte(`{not json`), "")
	assert.ErrorIs(t, err, ErrMalformedDocument)
	require.NotNil(t, result.Batch)
	assert.Equal(t, core.BatchFailed, result.Batch.Status)
}

func TestIngestEmptySourceID(t *testing.T) {
	ingestor, _ := newTestIngestor(t)

	_, err := ingestor.Ingest(context.Background(), "", []byte(`{}`), "")
	assert.ErrorIs(t, err, core.ErrEmptySourceID)
}

type fakeBlobStore struct {
	data map[string][]byte
}

func (f *fakeBlobStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	data, ok := f.data[uri]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return data, nil
}

func TestIngestResolvesBlobScheme(t *testing.T) {
	blobs := &fakeBlobStore{data: map[string][]byte{
		"blob://exports/page-1": []byte(`{"copy": "from the store"}`),
	}}
	ingestor, _ := newTestIngestor(t, WithBlobStore(blobs))
	ctx := context.Background()

	result, err := ingestor.Ingest(ctx, "blob://exports/page-1", nil, "/en_US/page")
	require.NoError(t, err)
	require.Len(t, result.Batch.Items, 1)
	assert.Equal(t, "from the store", result.Batch.Items[0].Cleansed)
}

func TestIngestBlobSchemeWithoutStore(t *testing.T) {
	ingestor, _ := newTestIngestor(t)

	_, err := ingestor.Ingest(context.Background(), "blob://exports/page-1", nil, "")
	assert.ErrorIs(t, err, ErrBlobStoreRequired)
}
