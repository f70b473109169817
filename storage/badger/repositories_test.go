package badger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func TestRawRecordLatestPointer(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	_, err := repos.Raw.AddRawRecord(ctx, &core.RawRecord{
		SourceID: "page-1", Version: 1, ContentHash: "h1", Status: core.RawReceived,
	})
	require.NoError(t, err)

	_, err = repos.Raw.AddRawRecord(ctx, &core.RawRecord{
		SourceID: "page-1", Version: 2, ContentHash: "h2", Status: core.RawReceived,
	})
	require.NoError(t, err)

	latest, err := repos.Raw.GetLatestRawRecord(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.True(t, latest.IsLatest)

	v1, err := repos.Raw.GetRawRecord(ctx, "page-1", 1)
	require.NoError(t, err)
	assert.False(t, v1.IsLatest)

	_, err = repos.Raw.GetLatestRawRecord(ctx, "never-seen")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRawRecordStatusUpdate(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	_, err := repos.Raw.AddRawRecord(ctx, &core.RawRecord{
		SourceID: "page-1", Version: 1, Status: core.RawReceived,
	})
	require.NoError(t, err)

	require.NoError(t, repos.Raw.UpdateRawStatus(ctx, "page-1", 1, core.RawExtracted))

	got, err := repos.Raw.GetRawRecord(ctx, "page-1", 1)
	require.NoError(t, err)
	assert.Equal(t, core.RawExtracted, got.Status)

	err = repos.Raw.UpdateRawStatus(ctx, "page-1", 99, core.RawFailed)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBatchRoundTrip(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	batch := &core.Batch{
		ID:       "b-1",
		SourceID: "page-1",
		Version:  1,
		Status:   core.BatchCleansed,
		Items:    []core.Fragment{{SourcePath: "/p", FieldKey: "copy", Cleansed: "text"}},
	}
	_, err := repos.Batch.AddBatch(ctx, batch)
	require.NoError(t, err)

	got, err := repos.Batch.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, core.BatchCleansed, got.Status)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "copy", got.Items[0].FieldKey)

	_, err = repos.Batch.GetBatch(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClaimBatchStatus(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	_, err := repos.Batch.AddBatch(ctx, &core.Batch{ID: "b-1", Status: core.BatchInProgress})
	require.NoError(t, err)

	claimable := []core.BatchStatus{core.BatchQueued, core.BatchInProgress, core.BatchSkipped}

	ok, err := repos.Batch.ClaimBatchStatus(ctx, "b-1", claimable, core.BatchFinalizing)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second claim sees FINALIZING and loses.
	ok, err = repos.Batch.ClaimBatchStatus(ctx, "b-1", claimable, core.BatchFinalizing)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaimBatchStatusConcurrent(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	_, err := repos.Batch.AddBatch(ctx, &core.Batch{ID: "b-1", Status: core.BatchInProgress})
	require.NoError(t, err)

	claimable := []core.BatchStatus{core.BatchQueued, core.BatchInProgress, core.BatchSkipped}

	const claimants = 8
	var wg sync.WaitGroup
	wins := make(chan bool, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repos.Batch.ClaimBatchStatus(ctx, "b-1", claimable, core.BatchFinalizing)
			assert.NoError(t, err)
			if ok {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1, "exactly one claimant must win")
}

func TestListBatchesByStatus(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	for _, b := range []*core.Batch{
		{ID: "b-1", Status: core.BatchQueued},
		{ID: "b-2", Status: core.BatchComplete},
		{ID: "b-3", Status: core.BatchQueued},
	} {
		_, err := repos.Batch.AddBatch(ctx, b)
		require.NoError(t, err)
	}

	queued, err := repos.Batch.ListBatchesByStatus(ctx, core.BatchQueued, 10)
	require.NoError(t, err)
	assert.Len(t, queued, 2)

	limited, err := repos.Batch.ListBatchesByStatus(ctx, core.BatchQueued, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFingerprintExactAndFallback(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	fp := &core.Fingerprint{
		SourcePath:     "/shared/footer",
		FieldKey:       "copy",
		UsagePath:      "/en_US/home||/shared/footer",
		RawContentHash: "abc",
	}
	require.NoError(t, repos.Fingerprint.PutFingerprint(ctx, fp))

	got, err := repos.Fingerprint.GetFingerprint(ctx, "/shared/footer", "copy", "/en_US/home||/shared/footer")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.RawContentHash)

	// Unknown usage path misses the exact key but the identity fallback hits.
	_, err = repos.Fingerprint.GetFingerprint(ctx, "/shared/footer", "copy", "/en_US/shop||/shared/footer")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	fallback, err := repos.Fingerprint.FindFingerprint(ctx, "/shared/footer", "copy")
	require.NoError(t, err)
	assert.Equal(t, "abc", fallback.RawContentHash)
}

func TestFingerprintListAllUsagePaths(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	usagePaths := []string{
		"/en_US/home||/shared/footer",
		"/en_US/shop||/shared/footer",
		"/en_US/archive||/shared/footer",
	}
	for _, usagePath := range usagePaths {
		require.NoError(t, repos.Fingerprint.PutFingerprint(ctx, &core.Fingerprint{
			SourcePath: "/shared/footer",
			FieldKey:   "copy",
			UsagePath:  usagePath,
		}))
	}
	// Another identity must not leak into the scan.
	require.NoError(t, repos.Fingerprint.PutFingerprint(ctx, &core.Fingerprint{
		SourcePath: "/en_US/home",
		FieldKey:   "copy",
		UsagePath:  "/en_US/home",
	}))

	fps, err := repos.Fingerprint.ListFingerprints(ctx, "/shared/footer", "copy")
	require.NoError(t, err)
	listed := make([]string, len(fps))
	for i, fp := range fps {
		listed[i] = fp.UsagePath
	}
	assert.ElementsMatch(t, usagePaths, listed)

	// Rewriting one usage path replaces its row instead of adding another.
	require.NoError(t, repos.Fingerprint.PutFingerprint(ctx, &core.Fingerprint{
		SourcePath:     "/shared/footer",
		FieldKey:       "copy",
		UsagePath:      usagePaths[0],
		RawContentHash: "updated",
	}))
	fps, err = repos.Fingerprint.ListFingerprints(ctx, "/shared/footer", "copy")
	require.NoError(t, err)
	assert.Len(t, fps, 3)

	empty, err := repos.Fingerprint.ListFingerprints(ctx, "/never/seen", "copy")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestElementUpsertIsIdempotent(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	element := &core.EnrichedElement{
		BatchID:    "b-1",
		SourcePath: "/p",
		FieldKey:   "copy",
		Summary:    "first",
		Status:     core.ElementEnriched,
	}
	require.NoError(t, repos.Element.UpsertElement(ctx, element))

	element.Summary = "second"
	require.NoError(t, repos.Element.UpsertElement(ctx, element))

	count, err := repos.Element.CountElements(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := repos.Element.GetElement(ctx, "b-1", "/p", "copy")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Summary)
}

func TestFindPriorEnrichment(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	// Failed results never populate the prior-enrichment index.
	require.NoError(t, repos.Element.UpsertElement(ctx, &core.EnrichedElement{
		BatchID: "b-1", SourcePath: "/p", FieldKey: "copy",
		Status: core.ElementErrorEnrichment,
	}))
	_, err := repos.Element.FindPriorEnrichment(ctx, "/p", "copy")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, repos.Element.UpsertElement(ctx, &core.EnrichedElement{
		BatchID: "b-1", SourcePath: "/p", FieldKey: "copy",
		CleansedText: "hello", Summary: "s", Status: core.ElementEnriched,
	}))

	prior, err := repos.Element.FindPriorEnrichment(ctx, "/p", "copy")
	require.NoError(t, err)
	assert.Equal(t, "hello", prior.CleansedText)
	assert.Equal(t, "b-1", prior.BatchID)
}

func TestSectionDuplicateRejected(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	section := &core.Section{
		BatchID:     "b-1",
		SectionPath: "/en_US/home",
		SectionURI:  "/shared/footer",
		FieldKey:    "copy",
	}
	require.NoError(t, repos.Section.AddSection(ctx, section))

	err := repos.Section.AddSection(ctx, section)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	sections, err := repos.Section.ListSections(ctx, "b-1")
	require.NoError(t, err)
	assert.Len(t, sections, 1)
}

func TestSectionEmbeddingStatus(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	for _, uri := range []string{"/a", "/b", "/c"} {
		require.NoError(t, repos.Section.AddSection(ctx, &core.Section{
			BatchID: "b-1", SectionPath: "/home", SectionURI: uri, FieldKey: "copy",
			EmbeddingStatus: core.EmbeddingPending,
		}))
	}

	require.NoError(t, repos.Section.UpdateSectionEmbedding(ctx, "b-1", "/home", "/a", "copy", core.Embedded))

	pending, err := repos.Section.ListSectionsByEmbeddingStatus(ctx, "b-1", core.EmbeddingPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	limited, err := repos.Section.ListSectionsByEmbeddingStatus(ctx, "b-1", core.EmbeddingPending, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPutVectorsReplacesStaleChunks(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	put := func(texts ...string) {
		vectors := make([]core.ContentVector, len(texts))
		for i, text := range texts {
			vectors[i] = core.ContentVector{Text: text, Vector: []float32{float32(i)}}
		}
		require.NoError(t, repos.Vector.PutVectors(ctx, "b-1", "/home", "/a", "copy", vectors))
	}

	put("one", "two", "three")
	put("replaced")

	got, err := repos.Vector.GetVectors(ctx, "b-1", "/home", "/a", "copy")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "replaced", got[0].Text)
	assert.Equal(t, 0, got[0].ChunkIndex)
}
