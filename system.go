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

package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/ai/mock"
	"github.com/poiesic/corpus/ai/openai"
	"github.com/poiesic/corpus/backfill"
	"github.com/poiesic/corpus/config"
	"github.com/poiesic/corpus/delta"
	"github.com/poiesic/corpus/extract"
	"github.com/poiesic/corpus/ingest"
	"github.com/poiesic/corpus/orchestrate"
	"github.com/poiesic/corpus/queue"
	"github.com/poiesic/corpus/storage/badger"
)

// System wires storage, the job bus, the AI provider, and the processing
// stages into one unit with a shared lifecycle.
type System struct {
	cfg      *config.Config
	repos    *badger.Repositories
	bus      *queue.Bus
	provider ai.Provider

	ingestor   *ingest.Ingestor
	runner     *orchestrate.Runner
	backfiller *backfill.Backfiller

	logger *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	provider ai.Provider
	bus      *queue.Bus
	progress io.Writer
	logger   *slog.Logger
}

// WithProvider substitutes the AI provider. Overrides the ai section of the
// configuration.
func WithProvider(provider ai.Provider) SystemOption {
	return func(o *systemOptions) { o.provider = provider }
}

// WithBus substitutes the job bus. Overrides the queue section of the
// configuration.
func WithBus(bus *queue.Bus) SystemOption {
	return func(o *systemOptions) { o.bus = bus }
}

// WithProgress sets the writer for backfill progress reporting.
func WithProgress(w io.Writer) SystemOption {
	return func(o *systemOptions) { o.progress = w }
}

// WithSystemLogger sets the logger for all components.
func WithSystemLogger(logger *slog.Logger) SystemOption {
	return func(o *systemOptions) { o.logger = logger }
}

// Open builds a System from the configuration.
func Open(cfg *config.Config, opts ...SystemOption) (*System, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &systemOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	repos, err := badger.NewRepositories(cfg.Storage.Path, cfg.Storage.InMemory)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	bus := options.bus
	if bus == nil {
		if bus, err = openBus(cfg, logger); err != nil {
			repos.Close()
			return nil, err
		}
	}

	provider := options.provider
	if provider == nil {
		if provider, err = openProvider(cfg); err != nil {
			bus.Close()
			repos.Close()
			return nil, err
		}
	}

	s := &System{
		cfg:      cfg,
		repos:    repos,
		bus:      bus,
		provider: provider,
		logger:   logger,
	}
	if err := s.wire(options); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func openBus(cfg *config.Config, logger *slog.Logger) (*queue.Bus, error) {
	if cfg.Queue.Transport == "nats" {
		natsCfg := queue.DefaultNATSConfig()
		natsCfg.URL = cfg.Queue.URL
		if cfg.Queue.QueueGroup != "" {
			natsCfg.QueueGroup = cfg.Queue.QueueGroup
		}
		if cfg.Queue.DurableName != "" {
			natsCfg.DurableName = cfg.Queue.DurableName
		}
		if cfg.Queue.AckWait > 0 {
			natsCfg.AckWait = cfg.Queue.AckWait
		}
		return queue.NewNATSBus(natsCfg, logger)
	}
	return queue.NewMemoryBus(logger), nil
}

func openProvider(cfg *config.Config) (ai.Provider, error) {
	if cfg.AI.Mock {
		return mock.NewProvider(), nil
	}
	return openai.NewProvider(ai.NewConfig(
		ai.WithEnrichmentHost(cfg.AI.EnrichmentHost),
		ai.WithEmbeddingHost(cfg.AI.EmbeddingHost),
		ai.WithEnrichmentModel(cfg.AI.EnrichmentModel),
		ai.WithEmbeddingModel(cfg.AI.EmbeddingModel),
		ai.WithAPIKey(cfg.AI.APIKey),
		ai.WithMaxKeywords(cfg.AI.MaxKeywords),
	))
}

// wire builds the processing stages over the opened resources.
func (s *System) wire(options *systemOptions) error {
	cfg := s.cfg

	walkerOpts := []extract.Option{extract.WithLogger(s.logger)}
	if len(cfg.Extract.ExcludedPrefixes) > 0 {
		walkerOpts = append(walkerOpts, extract.WithExcludedPrefixes(cfg.Extract.ExcludedPrefixes...))
	}
	if cfg.Extract.KeepBlank {
		walkerOpts = append(walkerOpts, extract.WithKeepBlank(true))
	}

	engine := delta.NewEngine(s.repos.Fingerprint,
		delta.WithRecheckContext(cfg.Extract.RecheckContext),
		delta.WithStrictUsagePaths(cfg.Extract.StrictUsagePaths),
		delta.WithLogger(s.logger))
	ingestor, err := ingest.NewIngestor(s.repos.Raw, s.repos.Batch, s.repos.Fingerprint,
		ingest.WithWalker(extract.NewWalker(walkerOpts...)),
		ingest.WithEngine(engine),
		ingest.WithLogger(s.logger))
	if err != nil {
		return err
	}

	tracker := orchestrate.NewTracker(s.logger)
	finalizer, err := orchestrate.NewFinalizer(
		s.repos.Batch, s.repos.Element, s.repos.Section, s.repos.Fingerprint, tracker, s.logger)
	if err != nil {
		return err
	}
	producer, err := orchestrate.NewProducer(
		s.repos.Batch, s.repos.Element, s.bus, tracker, finalizer, s.logger)
	if err != nil {
		return err
	}

	enrichLimiter := rate.NewLimiter(rate.Limit(cfg.Enrich.RatePerSecond), cfg.Enrich.RateBurst)
	worker, err := orchestrate.NewWorker(
		s.repos.Batch, s.repos.Element, s.provider.Enricher(),
		enrichLimiter, tracker, finalizer, s.logger)
	if err != nil {
		return err
	}

	runner, err := orchestrate.NewRunner(producer, worker, s.bus, s.repos.Batch,
		orchestrate.RunnerConfig{
			PoolSize:      cfg.Enrich.PoolSize,
			PollInterval:  cfg.Enrich.PollInterval,
			PollBatchSize: cfg.Enrich.PollBatchSize,
		}, s.logger)
	if err != nil {
		return err
	}

	embedLimiter := rate.NewLimiter(rate.Limit(cfg.Embed.RatePerSecond), cfg.Embed.RateBurst)
	processor, err := backfill.NewSectionProcessor(
		s.repos.Section, s.repos.Vector, s.provider.Embedder(),
		embedLimiter, cfg.Embed.ChunkSize, s.logger)
	if err != nil {
		return err
	}

	backfillCfg := backfill.DefaultConfig()
	backfillCfg.BatchSize = cfg.Embed.BatchSize
	backfillCfg.ChunkSize = cfg.Embed.ChunkSize
	backfillCfg.ReportInterval = cfg.Embed.ReportInterval
	backfiller, err := backfill.NewBackfiller(
		s.repos.Batch, s.repos.Element, s.repos.Section, processor,
		backfillCfg, options.progress, s.logger)
	if err != nil {
		return err
	}

	s.ingestor = ingestor
	s.runner = runner
	s.backfiller = backfiller
	return nil
}

// Ingest runs extraction and change detection for one source document and
// stages a batch for enrichment.
func (s *System) Ingest(ctx context.Context, sourceID string, data []byte, rootPath string) (*ingest.Result, error) {
	return s.ingestor.Ingest(ctx, sourceID, data, rootPath)
}

// Run starts the enrichment service and the embedding backfill loop, blocking
// until the context is cancelled.
func (s *System) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.runner.Run(ctx) })
	group.Go(func() error { return s.backfiller.Loop(ctx, s.cfg.Embed.Interval) })
	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Backfill drains pending embeddings once.
func (s *System) Backfill(ctx context.Context) error {
	return s.backfiller.Run(ctx)
}

// Repositories exposes the storage layer for inspection commands.
func (s *System) Repositories() *badger.Repositories {
	return s.repos
}

// Close releases the bus, provider, and storage.
func (s *System) Close() error {
	if err := s.bus.Close(); err != nil {
		s.logger.Error("error closing bus", "err", err)
	}
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	return s.repos.Close()
}
