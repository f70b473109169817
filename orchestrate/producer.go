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

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/queue"
	"github.com/poiesic/corpus/storage"
)

// Producer turns cleansed batches into published enrichment jobs.
type Producer struct {
	batches   storage.BatchRepository
	elements  storage.ElementRepository
	bus       *queue.Bus
	tracker   *Tracker
	finalizer *Finalizer
	logger    *slog.Logger
}

// NewProducer creates a producer. The finalizer is invoked directly for
// batches that end up with zero jobs, since no worker completion will ever
// trigger finalization for them.
func NewProducer(
	batches storage.BatchRepository,
	elements storage.ElementRepository,
	bus *queue.Bus,
	tracker *Tracker,
	finalizer *Finalizer,
	logger *slog.Logger,
) (*Producer, error) {
	if batches == nil || elements == nil {
		return nil, ErrRepositoriesRequired
	}
	if bus == nil {
		return nil, ErrBusRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		batches:   batches,
		elements:  elements,
		bus:       bus,
		tracker:   tracker,
		finalizer: finalizer,
		logger:    logger.With("component", "producer"),
	}, nil
}

// Produce publishes enrichment jobs for one batch. A batch in any status
// other than CLEANSED is a no-op, which makes double-triggering harmless.
func (p *Producer) Produce(ctx context.Context, batchID string) error {
	batch, err := p.batches.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load batch %s: %w", batchID, err)
	}
	if batch.Status != core.BatchCleansed {
		p.logger.Debug("batch not pending enrichment, skipping",
			"batchId", batchID, "status", batch.Status)
		return nil
	}

	jobs, err := p.collectJobs(ctx, batch)
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		// Nothing needed enrichment this run. Finalize directly so the batch
		// still reaches a terminal status.
		if err := p.batches.UpdateBatchStatus(ctx, batchID, core.BatchSkipped); err != nil {
			return fmt.Errorf("mark batch %s skipped: %w", batchID, err)
		}
		p.logger.Info("batch had no enrichable fragments", "batchId", batchID)
		if p.finalizer != nil {
			return p.finalizer.Finalize(ctx, batchID)
		}
		return nil
	}

	// The expected count must be durable before the first job can complete,
	// or a restarted process could never recount its way to finalization.
	batch.Expected = len(jobs)
	batch.Status = core.BatchQueued
	if _, err := p.batches.UpdateBatch(ctx, batch); err != nil {
		return fmt.Errorf("persist batch %s expected count: %w", batchID, err)
	}

	// The tracker likewise must exist before the first job can complete.
	if p.tracker != nil {
		p.tracker.StartTracking(batchID, len(jobs))
	}

	for _, job := range jobs {
		if err := p.bus.Publish(ctx, job); err != nil {
			return fmt.Errorf("publish job for %s/%s: %w",
				job.Fragment.SourcePath, job.Fragment.FieldKey, err)
		}
	}

	p.logger.Info("batch queued",
		"batchId", batchID,
		"jobs", len(jobs),
		"fragments", len(batch.Items))
	return nil
}

// collectJobs deduplicates the batch's changed fragments by identity and
// drops fragments whose cleansed text already has an enriched result from a
// previous run. Skipped fragments are recorded as SKIPPED elements so the
// terminal status summary still accounts for them.
func (p *Producer) collectJobs(ctx context.Context, batch *core.Batch) ([]*queue.Job, error) {
	seen := make(map[core.FragmentIdentity]struct{}, len(batch.Items))
	jobs := make([]*queue.Job, 0, len(batch.Items))

	for i := range batch.Items {
		fragment := &batch.Items[i]
		if fragment.Skip || !fragment.Changed {
			continue
		}

		// First occurrence wins; later usage paths of the same fragment are
		// materialized during consolidation, not enriched again.
		identity := fragment.Identity()
		if _, dup := seen[identity]; dup {
			continue
		}
		seen[identity] = struct{}{}

		prior, err := p.elements.FindPriorEnrichment(ctx, fragment.SourcePath, fragment.FieldKey)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("lookup prior enrichment for %s/%s: %w",
				fragment.SourcePath, fragment.FieldKey, err)
		}
		if prior != nil && prior.CleansedText == fragment.Cleansed {
			// Identical text was already enriched; the call is expensive and
			// must not repeat for unchanged content.
			skipped := &core.EnrichedElement{
				BatchID:      batch.ID,
				SourcePath:   fragment.SourcePath,
				FieldKey:     fragment.FieldKey,
				CleansedText: fragment.Cleansed,
				Status:       core.ElementSkipped,
				Context:      fragment.Context,
				UpdatedAt:    time.Now().UTC(),
			}
			if err := p.elements.UpsertElement(ctx, skipped); err != nil {
				return nil, fmt.Errorf("record skipped element: %w", err)
			}
			continue
		}

		jobs = append(jobs, &queue.Job{BatchID: batch.ID, Fragment: *fragment})
	}
	return jobs, nil
}
