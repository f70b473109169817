package backfill

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/ai/mock"
	"github.com/poiesic/corpus/core"
	badgerstore "github.com/poiesic/corpus/storage/badger"
)

type testEnv struct {
	repos      *badgerstore.Repositories
	embedder   *mock.Embedder
	backfiller *Backfiller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	embedder := mock.NewEmbedder()
	processor, err := NewSectionProcessor(repos.Section, repos.Vector, embedder, nil, 50, nil)
	require.NoError(t, err)

	config := DefaultConfig()
	config.Backoff = func(int) time.Duration { return time.Millisecond }

	backfiller, err := NewBackfiller(repos.Batch, repos.Element, repos.Section, processor, config, nil, nil)
	require.NoError(t, err)

	return &testEnv{repos: repos, embedder: embedder, backfiller: backfiller}
}

func (e *testEnv) addAwaitingBatch(t *testing.T, batchID string, sectionTexts map[string]string) {
	t.Helper()
	ctx := context.Background()

	_, err := e.repos.Batch.AddBatch(ctx, &core.Batch{ID: batchID, Status: core.BatchAwaitingEmbeddings})
	require.NoError(t, err)

	for uri, text := range sectionTexts {
		require.NoError(t, e.repos.Section.AddSection(ctx, &core.Section{
			BatchID:         batchID,
			SectionPath:     "/home",
			SectionURI:      uri,
			FieldKey:        "copy",
			CleansedText:    text,
			EmbeddingStatus: core.EmbeddingPending,
		}))
		require.NoError(t, e.repos.Element.UpsertElement(ctx, &core.EnrichedElement{
			BatchID:    batchID,
			SourcePath: uri,
			FieldKey:   "copy",
			Status:     core.ElementEnriched,
		}))
	}
}

func TestDrainBatchEmbedsAllSections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addAwaitingBatch(t, "b-1", map[string]string{
		"/a": "welcome home",
		"/b": "shop the summer sale today",
	})

	require.NoError(t, env.backfiller.DrainBatch(ctx, "b-1"))

	pending, err := env.repos.Section.ListSectionsByEmbeddingStatus(ctx, "b-1", core.EmbeddingPending, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	vectors, err := env.repos.Vector.GetVectors(ctx, "b-1", "/home", "/a", "copy")
	require.NoError(t, err)
	require.NotEmpty(t, vectors)
	assert.Equal(t, "welcome home", vectors[0].Text)
	assert.Len(t, vectors[0].Vector, 384)

	batch, err := env.repos.Batch.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, core.BatchComplete, batch.Status)
}

func TestDrainBatchThrottleRetries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addAwaitingBatch(t, "b-1", map[string]string{"/a": "welcome home"})
	env.embedder.ThrottleFirst(2)

	require.NoError(t, env.backfiller.DrainBatch(ctx, "b-1"))

	batch, err := env.repos.Batch.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, core.BatchComplete, batch.Status)
	assert.Equal(t, 3, env.embedder.CallCount(), "two throttled calls plus the success")
}

func TestDrainBatchChunksLongText(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Well over the 50-rune chunk limit configured in newTestEnv.
	long := "the quick brown fox jumps over the lazy dog again and again and keeps on jumping until it tires"
	env.addAwaitingBatch(t, "b-1", map[string]string{"/a": long})

	require.NoError(t, env.backfiller.DrainBatch(ctx, "b-1"))

	vectors, err := env.repos.Vector.GetVectors(ctx, "b-1", "/home", "/a", "copy")
	require.NoError(t, err)
	assert.Greater(t, len(vectors), 1, "long text produces multiple chunks")
	for i, vector := range vectors {
		assert.Equal(t, i, vector.ChunkIndex)
	}
}

func TestDrainBatchPartialWhenElementsErrored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addAwaitingBatch(t, "b-1", map[string]string{"/a": "welcome home"})
	require.NoError(t, env.repos.Element.UpsertElement(ctx, &core.EnrichedElement{
		BatchID:    "b-1",
		SourcePath: "/broken",
		FieldKey:   "copy",
		Status:     core.ElementErrorEnrichment,
	}))

	require.NoError(t, env.backfiller.DrainBatch(ctx, "b-1"))

	batch, err := env.repos.Batch.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, core.BatchPartial, batch.Status)
}

func TestDrainBatchIgnoresOtherStatuses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.repos.Batch.AddBatch(ctx, &core.Batch{ID: "b-1", Status: core.BatchQueued})
	require.NoError(t, err)

	require.NoError(t, env.backfiller.DrainBatch(ctx, "b-1"))

	batch, err := env.repos.Batch.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, core.BatchQueued, batch.Status, "only awaiting batches are drained")
}

func TestRunSweepsAwaitingBatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addAwaitingBatch(t, "b-1", map[string]string{"/a": "one"})
	env.addAwaitingBatch(t, "b-2", map[string]string{"/b": "two"})

	require.NoError(t, env.backfiller.Run(ctx))

	for _, id := range []string{"b-1", "b-2"} {
		batch, err := env.repos.Batch.GetBatch(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, core.BatchComplete, batch.Status)
	}
}
