package orchestrate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/core"
)

// Three deduplicated fragments with the first two deliveries throttled: the
// transport redelivers them, and the batch still settles with exactly three
// elements and no duplicates from the retries.
func TestEnrichmentFlowWithThrottling(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	messages := subscribe(t, env)

	env.enricher.ThrottleFirst(2)

	env.addBatch(t, &core.Batch{
		ID:     "b-1",
		Status: core.BatchCleansed,
		Items: []core.Fragment{
			changedFragment("/home", "copy", "/home", "welcome home"),
			changedFragment("/shop", "copy", "/shop", "shop the sale"),
			changedFragment("/shared/footer", "copy", "/home||/shared/footer", "legal text"),
		},
	})

	require.NoError(t, env.producer.Produce(ctx, "b-1"))
	env.drain(t, "b-1", messages, 10*time.Second)

	assert.Equal(t, core.BatchAwaitingEmbeddings, env.batchStatus(t, "b-1"))

	elements, err := env.repos.Element.ListElements(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, elements, 3)
	for _, element := range elements {
		assert.Equal(t, core.ElementEnriched, element.Status)
	}

	// 3 jobs + 2 throttled deliveries.
	assert.Equal(t, 5, env.enricher.CallCount())
	assert.Equal(t, 2, env.enricher.ThrottledCount())
}
