package orchestrate

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/queue"
)

// subscribe opens the job subscription before anything is published; the
// in-process transport does not retain messages for late subscribers.
func subscribe(t *testing.T, env *testEnv) <-chan *message.Message {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	messages, err := env.bus.Messages(ctx)
	require.NoError(t, err)
	return messages
}

func receiveJobs(t *testing.T, messages <-chan *message.Message, want int) []*queue.Job {
	t.Helper()

	deadline := time.After(2 * time.Second)
	jobs := make([]*queue.Job, 0, want)
	for len(jobs) < want {
		select {
		case msg := <-messages:
			job, err := queue.DecodeJob(msg)
			require.NoError(t, err)
			jobs = append(jobs, job)
			msg.Ack()
		case <-deadline:
			t.Fatalf("received %d of %d jobs", len(jobs), want)
		}
	}
	return jobs
}

func TestProduceIgnoresNonCleansedBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addBatch(t, &core.Batch{
		ID:     "b-1",
		Status: core.BatchQueued,
		Items:  []core.Fragment{changedFragment("/p", "copy", "/p", "hello")},
	})

	require.NoError(t, env.producer.Produce(ctx, "b-1"))

	batch, err := env.repos.Batch.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Expected, "no jobs produced for an already-queued batch")
	assert.Equal(t, int64(-1), env.tracker.Remaining("b-1"))
}

func TestProduceDeduplicatesByIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	messages := subscribe(t, env)

	env.addBatch(t, &core.Batch{
		ID:     "b-1",
		Status: core.BatchCleansed,
		Items: []core.Fragment{
			changedFragment("/shared/footer", "copy", "/home||/shared/footer", "legal text"),
			changedFragment("/shared/footer", "copy", "/shop||/shared/footer", "legal text"),
			changedFragment("/home", "text", "/home", "welcome"),
			{SourcePath: "/home", FieldKey: "title", Changed: false},
			{SourcePath: "/home", FieldKey: "promo", Changed: true, Skip: true},
		},
	})

	require.NoError(t, env.producer.Produce(ctx, "b-1"))

	jobs := receiveJobs(t, messages, 2)
	identities := map[core.FragmentIdentity]struct{}{}
	for _, job := range jobs {
		identities[job.Fragment.Identity()] = struct{}{}
	}
	assert.Len(t, identities, 2, "one job per fragment identity")

	batch, err := env.repos.Batch.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, core.BatchQueued, batch.Status)
	assert.Equal(t, 2, batch.Expected)
	assert.Equal(t, int64(2), env.tracker.Remaining("b-1"))
}

func TestProduceSkipsIdenticalPriorEnrichment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	messages := subscribe(t, env)

	// A previous run already enriched this exact cleansed text.
	require.NoError(t, env.repos.Element.UpsertElement(ctx, &core.EnrichedElement{
		BatchID:      "b-0",
		SourcePath:   "/shared/footer",
		FieldKey:     "copy",
		CleansedText: "legal text",
		Summary:      "prior",
		Status:       core.ElementEnriched,
	}))

	env.addBatch(t, &core.Batch{
		ID:     "b-1",
		Status: core.BatchCleansed,
		Items: []core.Fragment{
			changedFragment("/shared/footer", "copy", "/home||/shared/footer", "legal text"),
			changedFragment("/home", "text", "/home", "welcome"),
		},
	})

	require.NoError(t, env.producer.Produce(ctx, "b-1"))

	jobs := receiveJobs(t, messages, 1)
	assert.Equal(t, "/home", jobs[0].Fragment.SourcePath)

	skipped, err := env.repos.Element.GetElement(ctx, "b-1", "/shared/footer", "copy")
	require.NoError(t, err)
	assert.Equal(t, core.ElementSkipped, skipped.Status)

	batch, err := env.repos.Batch.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Expected, "skipped fragments are not expected jobs")
}

func TestProduceZeroJobsFinalizesDirectly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addBatch(t, &core.Batch{
		ID:     "b-1",
		Status: core.BatchCleansed,
		Items: []core.Fragment{
			{SourcePath: "/home", FieldKey: "title", Changed: false},
		},
	})

	require.NoError(t, env.producer.Produce(ctx, "b-1"))

	assert.Equal(t, core.BatchComplete, env.batchStatus(t, "b-1"))
}

func TestProduceDoubleTriggerIsHarmless(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	messages := subscribe(t, env)

	env.addBatch(t, &core.Batch{
		ID:     "b-1",
		Status: core.BatchCleansed,
		Items:  []core.Fragment{changedFragment("/home", "text", "/home", "welcome")},
	})

	require.NoError(t, env.producer.Produce(ctx, "b-1"))
	require.NoError(t, env.producer.Produce(ctx, "b-1"))

	// Only the first trigger published anything.
	jobs := receiveJobs(t, messages, 1)
	assert.Equal(t, "/home", jobs[0].Fragment.SourcePath)

	select {
	case msg := <-messages:
		t.Fatalf("unexpected second job %s", msg.UUID)
	case <-time.After(100 * time.Millisecond):
	}

	batch, err := env.repos.Batch.GetBatch(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Expected)
}
