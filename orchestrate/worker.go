// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/queue"
	"github.com/poiesic/corpus/storage"
)

// Worker processes one enrichment job at a time. Safe for concurrent use;
// the rate limiter is the shared backpressure point across all workers.
type Worker struct {
	batches   storage.BatchRepository
	elements  storage.ElementRepository
	enricher  ai.Enricher
	limiter   *rate.Limiter
	tracker   *Tracker
	finalizer *Finalizer
	logger    *slog.Logger
}

// NewWorker creates a worker.
func NewWorker(
	batches storage.BatchRepository,
	elements storage.ElementRepository,
	enricher ai.Enricher,
	limiter *rate.Limiter,
	tracker *Tracker,
	finalizer *Finalizer,
	logger *slog.Logger,
) (*Worker, error) {
	if batches == nil || elements == nil {
		return nil, ErrRepositoriesRequired
	}
	if enricher == nil {
		return nil, ErrEnricherRequired
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		batches:   batches,
		elements:  elements,
		enricher:  enricher,
		limiter:   limiter,
		tracker:   tracker,
		finalizer: finalizer,
		logger:    logger.With("component", "worker"),
	}, nil
}

// Process handles one job. A nil return means an element outcome was
// recorded. A non-nil return means the delivery must go back to the
// transport: errors wrapping ai.ErrThrottled after the redelivery backoff,
// anything else as a plain retry.
func (w *Worker) Process(ctx context.Context, job *queue.Job) error {
	fragment := &job.Fragment

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("acquire rate-limit permit: %w", err)
	}

	enrichment, err := w.enricher.Enrich(ctx, ai.Request{
		Text:     fragment.Cleansed,
		FieldKey: fragment.FieldKey,
		Locale:   fragment.Context.Locale,
		Model:    fragment.Context.Model,
		Facets:   fragment.Context.Facets,
	})

	// Throttling is a retry signal, never an outcome. The delivery stays
	// unsettled so the transport retries it with backoff, and completion
	// bookkeeping is left alone; the counter must not move.
	if errors.Is(err, ai.ErrThrottled) {
		w.logger.Info("enrichment throttled, leaving delivery for retry",
			"batchId", job.BatchID,
			"sourcePath", fragment.SourcePath,
			"fieldKey", fragment.FieldKey)
		return fmt.Errorf("enrich %s/%s: %w", fragment.SourcePath, fragment.FieldKey, err)
	}

	element := &core.EnrichedElement{
		BatchID:      job.BatchID,
		SourcePath:   fragment.SourcePath,
		FieldKey:     fragment.FieldKey,
		CleansedText: fragment.Cleansed,
		Context:      fragment.Context,
		UpdatedAt:    time.Now().UTC(),
	}

	switch {
	case err != nil:
		element.Status = core.ElementErrorEnrichment
		element.Error = err.Error()
		w.logger.Warn("enrichment failed",
			"batchId", job.BatchID,
			"sourcePath", fragment.SourcePath,
			"fieldKey", fragment.FieldKey,
			"err", err)
	default:
		if vErr := enrichment.Validate(); vErr != nil {
			element.Status = core.ElementErrorValidation
			element.Error = vErr.Error()
			w.logger.Warn("enrichment response failed validation",
				"batchId", job.BatchID,
				"sourcePath", fragment.SourcePath,
				"fieldKey", fragment.FieldKey,
				"err", vErr)
		} else {
			element.Status = core.ElementEnriched
			element.Summary = enrichment.Summary
			element.Classification = enrichment.Classification
			element.Keywords = enrichment.Keywords
			element.Tags = enrichment.Tags
			element.Sentiment = enrichment.Sentiment
			element.Model = fragment.Context.Model
		}
	}

	// Upsert keyed by (batch, source path, field key): a redelivered job
	// overwrites its own outcome instead of duplicating it.
	if err := w.elements.UpsertElement(ctx, element); err != nil {
		return fmt.Errorf("persist element outcome: %w", err)
	}

	// First recorded outcome moves the batch to IN_PROGRESS. Losing the claim
	// just means another worker got there first.
	if _, err := w.batches.ClaimBatchStatus(ctx, job.BatchID,
		[]core.BatchStatus{core.BatchQueued}, core.BatchInProgress); err != nil {
		w.logger.Warn("batch status transition failed", "batchId", job.BatchID, "err", err)
	}

	return w.signalCompletion(ctx, job.BatchID)
}

// signalCompletion advances completion bookkeeping after a non-throttled
// outcome and attempts finalization when the batch looks done. The in-memory
// tracker is the fast path; a durable recount covers tracker state lost to a
// process restart.
func (w *Worker) signalCompletion(ctx context.Context, batchID string) error {
	done, tracked := false, false
	if w.tracker != nil {
		done, tracked = w.tracker.ItemCompleted(batchID)
	}

	if !tracked {
		recounted, err := w.recount(ctx, batchID)
		if err != nil {
			return err
		}
		done = recounted
	}

	if done && w.finalizer != nil {
		return w.finalizer.Finalize(ctx, batchID)
	}
	return nil
}

// recount compares the durable outcome count against the batch's expected
// job count. SKIPPED elements were never published as jobs and don't count.
func (w *Worker) recount(ctx context.Context, batchID string) (bool, error) {
	batch, err := w.batches.GetBatch(ctx, batchID)
	if err != nil {
		return false, fmt.Errorf("load batch %s for recount: %w", batchID, err)
	}
	if batch.Status.Terminal() || batch.Status == core.BatchFinalizing {
		return false, nil
	}

	elements, err := w.elements.ListElements(ctx, batchID)
	if err != nil {
		return false, fmt.Errorf("recount elements for %s: %w", batchID, err)
	}
	outcomes := 0
	for _, element := range elements {
		if element.Status != core.ElementSkipped {
			outcomes++
		}
	}

	w.logger.Info("tracker state missing, recounted durably",
		"batchId", batchID,
		"outcomes", outcomes,
		"expected", batch.Expected)
	return batch.Expected > 0 && outcomes >= batch.Expected, nil
}
