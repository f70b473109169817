package corpus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/config"
	"github.com/poiesic/corpus/core"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage.InMemory = true
	cfg.Storage.Path = ""
	cfg.AI.Mock = true
	cfg.Enrich.PollInterval = 20 * time.Millisecond
	cfg.Enrich.RatePerSecond = 10000
	cfg.Enrich.RateBurst = 100
	cfg.Embed.Interval = 20 * time.Millisecond
	cfg.Embed.RatePerSecond = 10000
	cfg.Embed.RateBurst = 100
	return cfg
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Queue.Transport = "carrier-pigeon"

	_, err := Open(cfg)
	assert.Error(t, err)
}

func TestSystemEndToEnd(t *testing.T) {
	system, err := Open(testConfig())
	require.NoError(t, err)
	defer system.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if runErr := system.Run(ctx); runErr != nil {
			t.Errorf("run: %v", runErr)
		}
	}()

	doc := []byte(`{
		"en_US": {
			"hero": {"copy": "Welcome {%nbsp%}home", "text": "<p>Shop the <b>summer</b> sale.</p>"},
			"footer": {"copy": "All rights reserved."}
		}
	}`)

	result, err := system.Ingest(ctx, "site-main", doc, "/")
	require.NoError(t, err)
	require.NotNil(t, result.Batch)
	assert.False(t, result.Unchanged)
	require.Equal(t, 3, result.Batch.Expected, "all three content fields extracted and queued")

	batchID := result.Batch.ID
	deadline := time.After(10 * time.Second)
	for {
		batch, err := system.Repositories().Batch.GetBatch(ctx, batchID)
		require.NoError(t, err)
		if batch.Status == core.BatchComplete {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("batch never completed, status %s", batch.Status)
		case <-time.After(20 * time.Millisecond):
		}
	}

	sections, err := system.Repositories().Section.ListSections(ctx, batchID)
	require.NoError(t, err)
	require.Len(t, sections, 3)
	for _, section := range sections {
		assert.Equal(t, core.Embedded, section.EmbeddingStatus)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop on cancel")
	}
}

func TestSystemIngestUnchangedIsNoOp(t *testing.T) {
	system, err := Open(testConfig())
	require.NoError(t, err)
	defer system.Close()

	ctx := context.Background()
	doc := []byte(`{"copy": "hello world"}`)

	first, err := system.Ingest(ctx, "site-main", doc, "/")
	require.NoError(t, err)
	require.NotNil(t, first.Batch)

	second, err := system.Ingest(ctx, "site-main", doc, "/")
	require.NoError(t, err)
	assert.True(t, second.Unchanged)
	assert.Nil(t, second.Batch)
}
