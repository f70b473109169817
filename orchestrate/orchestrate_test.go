package orchestrate

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/ai/mock"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/queue"
	badgerstore "github.com/poiesic/corpus/storage/badger"
)

// testEnv wires an in-memory store, bus, and mock enricher together the way
// the service does, with a millisecond redelivery backoff so retries are fast.
type testEnv struct {
	repos     *badgerstore.Repositories
	bus       *queue.Bus
	tracker   *Tracker
	enricher  *mock.Enricher
	producer  *Producer
	worker    *Worker
	finalizer *Finalizer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	bus := queue.NewMemoryBus(nil,
		queue.WithRedeliveryBackoff(func(int) time.Duration { return time.Millisecond }))
	t.Cleanup(func() { bus.Close() })

	tracker := NewTracker(nil)
	enricher := mock.NewEnricher()

	finalizer, err := NewFinalizer(repos.Batch, repos.Element, repos.Section, repos.Fingerprint, tracker, nil)
	require.NoError(t, err)

	producer, err := NewProducer(repos.Batch, repos.Element, bus, tracker, finalizer, nil)
	require.NoError(t, err)

	worker, err := NewWorker(repos.Batch, repos.Element, enricher, nil, tracker, finalizer, nil)
	require.NoError(t, err)

	return &testEnv{
		repos:     repos,
		bus:       bus,
		tracker:   tracker,
		enricher:  enricher,
		producer:  producer,
		worker:    worker,
		finalizer: finalizer,
	}
}

func changedFragment(sourcePath, fieldKey, usagePath, text string) core.Fragment {
	return core.Fragment{
		SourcePath: sourcePath,
		UsagePath:  usagePath,
		FieldKey:   fieldKey,
		RawValue:   text,
		Cleansed:   text,
		Changed:    true,
		Context:    core.FragmentContext{Locale: "en_US"},
	}
}

func (e *testEnv) addBatch(t *testing.T, batch *core.Batch) {
	t.Helper()
	_, err := e.repos.Batch.AddBatch(context.Background(), batch)
	require.NoError(t, err)
}

func (e *testEnv) batchStatus(t *testing.T, batchID string) core.BatchStatus {
	t.Helper()
	batch, err := e.repos.Batch.GetBatch(context.Background(), batchID)
	require.NoError(t, err)
	return batch.Status
}

// drain consumes and processes deliveries until the batch leaves the active
// statuses or the timeout elapses. The subscription must predate the first
// publish; the in-process transport does not retain messages.
func (e *testEnv) drain(t *testing.T, batchID string, messages <-chan *message.Message, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		status := e.batchStatus(t, batchID)
		if status.Terminal() || status == core.BatchAwaitingEmbeddings {
			return
		}

		select {
		case msg := <-messages:
			job, err := queue.DecodeJob(msg)
			require.NoError(t, err)
			if err := e.worker.Process(ctx, job); err != nil {
				require.ErrorIs(t, err, ai.ErrThrottled)
				e.bus.Redeliver(msg)
				continue
			}
			msg.Ack()
		case <-ctx.Done():
			t.Fatalf("batch %s never settled, last status %s", batchID, e.batchStatus(t, batchID))
		}
	}
}
