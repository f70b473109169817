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
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/queue"
	"github.com/poiesic/corpus/storage"
)

// RunnerConfig holds tunables for the enrichment service loops.
type RunnerConfig struct {
	// PoolSize is the worker pool size.
	// Default is runtime.NumCPU() / 2, with a minimum of 1.
	PoolSize int

	// PollInterval is the fixed delay between scans for cleansed batches.
	PollInterval time.Duration

	// PollBatchSize bounds how many cleansed batches one scan picks up.
	PollBatchSize int
}

// DefaultRunnerConfig returns a RunnerConfig with sensible defaults.
func DefaultRunnerConfig() RunnerConfig {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	return RunnerConfig{
		PoolSize:      poolSize,
		PollInterval:  5 * time.Second,
		PollBatchSize: 10,
	}
}

// Runner runs the enrichment service: a polling loop that produces jobs for
// cleansed batches and a consumer loop that dispatches deliveries to a
// fixed-size worker pool.
type Runner struct {
	producer *Producer
	worker   *Worker
	bus      *queue.Bus
	batches  storage.BatchRepository
	pool     *ants.Pool
	config   RunnerConfig
	logger   *slog.Logger
}

// NewRunner creates a runner with its worker pool.
func NewRunner(
	producer *Producer,
	worker *Worker,
	bus *queue.Bus,
	batches storage.BatchRepository,
	config RunnerConfig,
	logger *slog.Logger,
) (*Runner, error) {
	if batches == nil {
		return nil, ErrRepositoriesRequired
	}
	if bus == nil {
		return nil, ErrBusRequired
	}
	if config.PoolSize < 1 {
		config.PoolSize = DefaultRunnerConfig().PoolSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultRunnerConfig().PollInterval
	}
	if config.PollBatchSize < 1 {
		config.PollBatchSize = DefaultRunnerConfig().PollBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := ants.NewPool(config.PoolSize)
	if err != nil {
		return nil, err
	}

	return &Runner{
		producer: producer,
		worker:   worker,
		bus:      bus,
		batches:  batches,
		pool:     pool,
		config:   config,
		logger:   logger.With("component", "runner"),
	}, nil
}

// Run starts the loops and blocks until the context is cancelled. The worker
// pool is released on the way out.
func (r *Runner) Run(ctx context.Context) error {
	messages, err := r.bus.Messages(ctx)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.consumeLoop(ctx, messages)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.pollLoop(ctx)
	}()

	wg.Wait()
	r.pool.Release()
	return nil
}

// consumeLoop dispatches deliveries to the pool. Submit blocks when the pool
// is saturated, which is the backpressure that keeps the subscription from
// racing ahead of the workers.
func (r *Runner) consumeLoop(ctx context.Context, messages <-chan *message.Message) {
	for msg := range messages {
		job, err := queue.DecodeJob(msg)
		if err != nil {
			// A malformed payload never becomes deliverable; drop it.
			r.logger.Error("dropping undecodable job", "messageId", msg.UUID, "err", err)
			msg.Ack()
			continue
		}

		delivery := msg
		if err := r.pool.Submit(func() {
			if err := r.worker.Process(ctx, job); err != nil {
				if errors.Is(err, ai.ErrThrottled) {
					r.logger.Info("job throttled, redelivering with backoff",
						"batchId", job.BatchID,
						"sourcePath", job.Fragment.SourcePath)
				} else {
					r.logger.Error("job processing failed, redelivering",
						"batchId", job.BatchID,
						"sourcePath", job.Fragment.SourcePath,
						"err", err)
				}
				r.bus.Redeliver(delivery)
				return
			}
			delivery.Ack()
		}); err != nil {
			delivery.Nack()
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("pool submit failed", "err", err)
		}
	}
}

// pollLoop periodically picks up cleansed batches and produces their jobs.
// A saturated pool skips the cycle instead of queueing more work.
func (r *Runner) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if r.pool.Free() == 0 {
			continue
		}

		batches, err := r.batches.ListBatchesByStatus(ctx, core.BatchCleansed, r.config.PollBatchSize)
		if err != nil {
			r.logger.Error("batch scan failed", "err", err)
			continue
		}
		for _, batch := range batches {
			if err := r.producer.Produce(ctx, batch.ID); err != nil {
				r.logger.Error("producing batch failed", "batchId", batch.ID, "err", err)
			}
		}
	}
}
