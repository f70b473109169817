package orchestrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/queue"
)

func queuedBatch(env *testEnv, t *testing.T, expected int, fragments ...core.Fragment) *core.Batch {
	t.Helper()
	batch := &core.Batch{
		ID:       "b-1",
		Status:   core.BatchQueued,
		Expected: expected,
		Items:    fragments,
	}
	env.addBatch(t, batch)
	return batch
}

func TestWorkerSuccessRecordsEnrichedElement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fragment := changedFragment("/home", "copy", "/home", "Buy now!")
	queuedBatch(env, t, 1, fragment)
	env.tracker.StartTracking("b-1", 1)

	require.NoError(t, env.worker.Process(ctx, &queue.Job{BatchID: "b-1", Fragment: fragment}))

	element, err := env.repos.Element.GetElement(ctx, "b-1", "/home", "copy")
	require.NoError(t, err)
	assert.Equal(t, core.ElementEnriched, element.Status)
	assert.NotEmpty(t, element.Summary)
	assert.Equal(t, "Buy now!", element.CleansedText)

	// Last outcome finalized the batch; its section awaits embedding.
	assert.Equal(t, core.BatchAwaitingEmbeddings, env.batchStatus(t, "b-1"))
	sections, err := env.repos.Section.ListSections(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, core.EmbeddingPending, sections[0].EmbeddingStatus)
}

func TestWorkerThrottleLeavesBookkeepingUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.enricher.ThrottleFirst(1)

	fragment := changedFragment("/home", "copy", "/home", "Buy now!")
	queuedBatch(env, t, 1, fragment)
	env.tracker.StartTracking("b-1", 1)

	// The throttle surfaces as an error so the consumer hands the delivery
	// back to the transport instead of settling it.
	err := env.worker.Process(ctx, &queue.Job{BatchID: "b-1", Fragment: fragment})
	require.ErrorIs(t, err, ai.ErrThrottled)

	// No outcome was recorded and the counter did not move.
	_, err = env.repos.Element.GetElement(ctx, "b-1", "/home", "copy")
	assert.Error(t, err)
	assert.Equal(t, int64(1), env.tracker.Remaining("b-1"))
	assert.Equal(t, core.BatchQueued, env.batchStatus(t, "b-1"))
}

func TestWorkerEnrichmentFailureIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.enricher.EnrichFunc = func(ctx context.Context, req ai.Request) (*ai.Enrichment, error) {
		return nil, errors.New("model exploded")
	}

	fragment := changedFragment("/home", "copy", "/home", "Buy now!")
	queuedBatch(env, t, 1, fragment)
	env.tracker.StartTracking("b-1", 1)

	require.NoError(t, env.worker.Process(ctx, &queue.Job{BatchID: "b-1", Fragment: fragment}))

	element, err := env.repos.Element.GetElement(ctx, "b-1", "/home", "copy")
	require.NoError(t, err)
	assert.Equal(t, core.ElementErrorEnrichment, element.Status)
	assert.Contains(t, element.Error, "model exploded")

	// Every element errored, so the batch failed.
	assert.Equal(t, core.BatchFailed, env.batchStatus(t, "b-1"))
}

func TestWorkerValidationFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.enricher.EnrichFunc = func(ctx context.Context, req ai.Request) (*ai.Enrichment, error) {
		return &ai.Enrichment{Classification: "nonsense"}, nil
	}

	fragment := changedFragment("/home", "copy", "/home", "Buy now!")
	queuedBatch(env, t, 1, fragment)
	env.tracker.StartTracking("b-1", 1)

	require.NoError(t, env.worker.Process(ctx, &queue.Job{BatchID: "b-1", Fragment: fragment}))

	element, err := env.repos.Element.GetElement(ctx, "b-1", "/home", "copy")
	require.NoError(t, err)
	assert.Equal(t, core.ElementErrorValidation, element.Status)
	assert.NotEmpty(t, element.Error)
}

func TestWorkerRecountFallbackAfterRestart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fragment := changedFragment("/home", "copy", "/home", "Buy now!")
	queuedBatch(env, t, 1, fragment)
	// No StartTracking: simulates a process restart that lost the tracker.

	require.NoError(t, env.worker.Process(ctx, &queue.Job{BatchID: "b-1", Fragment: fragment}))

	// The durable recount still drove finalization.
	assert.Equal(t, core.BatchAwaitingEmbeddings, env.batchStatus(t, "b-1"))
}

func TestWorkerRedeliveryDoesNotDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fragment := changedFragment("/home", "copy", "/home", "Buy now!")
	queuedBatch(env, t, 1, fragment)
	env.tracker.StartTracking("b-1", 1)

	job := &queue.Job{BatchID: "b-1", Fragment: fragment}
	require.NoError(t, env.worker.Process(ctx, job))
	require.NoError(t, env.worker.Process(ctx, job))

	elements, err := env.repos.Element.ListElements(ctx, "b-1")
	require.NoError(t, err)
	assert.Len(t, elements, 1, "redelivered job upserts, never duplicates")
}
