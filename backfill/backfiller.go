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

package backfill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/queue"
	"github.com/poiesic/corpus/storage"
)

// Config holds configuration for the embedding backfill.
type Config struct {
	// BatchSize is the number of pending sections fetched per sweep.
	BatchSize int

	// ReportInterval is how often to report progress (number of sections).
	ReportInterval int

	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int

	// Backoff computes the wait after a throttled embedding call from the
	// consecutive-throttle count. Defaults to the shared throttle schedule.
	Backoff func(attempt int) time.Duration

	// ScanLimit bounds how many awaiting batches one Run picks up.
	ScanLimit int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      50,
		ReportInterval: 10,
		ChunkSize:      DefaultChunkSize,
		Backoff:        queue.ThrottleDelay,
		ScanLimit:      10,
	}
}

// Backfiller drains pending section embeddings and performs the final batch
// status transition once a batch has no pending sections left.
type Backfiller struct {
	batches   storage.BatchRepository
	elements  storage.ElementRepository
	sections  storage.SectionRepository
	processor *SectionProcessor
	config    *Config
	progress  io.Writer
	logger    *slog.Logger
}

// NewBackfiller creates a backfiller.
// progress: where to write progress output (typically os.Stderr); nil discards.
func NewBackfiller(
	batches storage.BatchRepository,
	elements storage.ElementRepository,
	sections storage.SectionRepository,
	processor *SectionProcessor,
	config *Config,
	progress io.Writer,
	logger *slog.Logger,
) (*Backfiller, error) {
	if batches == nil || elements == nil || sections == nil {
		return nil, ErrRepositoriesRequired
	}
	if processor == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.Backoff == nil {
		config.Backoff = queue.ThrottleDelay
	}
	if config.ScanLimit <= 0 {
		config.ScanLimit = DefaultConfig().ScanLimit
	}
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backfiller{
		batches:   batches,
		elements:  elements,
		sections:  sections,
		processor: processor,
		config:    config,
		progress:  progress,
		logger:    logger.With("component", "backfiller"),
	}, nil
}

// Run drains every batch currently awaiting embeddings. Errors on one batch
// are logged and do not stop the others.
func (b *Backfiller) Run(ctx context.Context) error {
	batches, err := b.batches.ListBatchesByStatus(ctx, core.BatchAwaitingEmbeddings, b.config.ScanLimit)
	if err != nil {
		return fmt.Errorf("scan batches awaiting embeddings: %w", err)
	}

	for _, batch := range batches {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := b.DrainBatch(ctx, batch.ID); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			b.logger.Error("draining batch failed", "batchId", batch.ID, "err", err)
		}
	}
	return nil
}

// Loop runs the drain on a fixed delay until the context is cancelled.
func (b *Backfiller) Loop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := b.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			b.logger.Error("backfill sweep failed", "err", err)
		}
	}
}

// DrainBatch embeds every pending section of one batch, then transitions the
// batch to its terminal status. A batch in any other status is a no-op.
func (b *Backfiller) DrainBatch(ctx context.Context, batchID string) error {
	batch, err := b.batches.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load batch %s: %w", batchID, err)
	}
	if batch.Status != core.BatchAwaitingEmbeddings {
		return nil
	}

	total, err := b.sections.ListSectionsByEmbeddingStatus(ctx, batchID, core.EmbeddingPending, 0)
	if err != nil {
		return fmt.Errorf("count pending sections for %s: %w", batchID, err)
	}

	tracker := NewProgressTracker(b.progress, len(total), b.config.ReportInterval)
	tracker.Start()

	throttles := 0
	for {
		pending, err := b.sections.ListSectionsByEmbeddingStatus(ctx, batchID, core.EmbeddingPending, b.config.BatchSize)
		if err != nil {
			return fmt.Errorf("list pending sections for %s: %w", batchID, err)
		}
		if len(pending) == 0 {
			break
		}

		for _, section := range pending {
			err := b.processor.Process(ctx, section)
			switch {
			case errors.Is(err, ai.ErrThrottled):
				// Same discipline as enrichment: back off and come around
				// again; the section stayed pending.
				delay := b.config.Backoff(throttles)
				throttles++
				b.logger.Info("embedding throttled, backing off",
					"batchId", batchID,
					"sectionUri", section.SectionURI,
					"delay", delay)
				if err := sleep(ctx, delay); err != nil {
					return err
				}
			case err != nil:
				// Leave the batch awaiting; a later sweep retries from where
				// this one stopped.
				return err
			default:
				throttles = 0
				tracker.Increment(1)
			}
		}
	}

	tracker.Finish()
	return b.transition(ctx, batchID)
}

// transition computes the batch's terminal status from its element outcomes
// now that no sections are pending.
func (b *Backfiller) transition(ctx context.Context, batchID string) error {
	elements, err := b.elements.ListElements(ctx, batchID)
	if err != nil {
		return fmt.Errorf("list elements for %s: %w", batchID, err)
	}

	status := core.BatchComplete
	for _, element := range elements {
		if element.Status.IsError() {
			status = core.BatchPartial
			break
		}
	}

	if err := b.batches.UpdateBatchStatus(ctx, batchID, status); err != nil {
		return fmt.Errorf("transition batch %s to %s: %w", batchID, status, err)
	}
	b.logger.Info("batch embeddings drained", "batchId", batchID, "status", status)
	return nil
}

// sleep waits for the duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
