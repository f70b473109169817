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

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/delta"
	"github.com/poiesic/corpus/extract"
	"github.com/poiesic/corpus/storage"
)

// Ingestor runs the ingestion pipeline: store raw, extract, detect changes,
// create the cleansed batch.
type Ingestor struct {
	raws    storage.RawRepository
	batches storage.BatchRepository
	walker  *extract.Walker
	engine  *delta.Engine
	blobs   BlobStore
	scheme  string
	logger  *slog.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithWalker replaces the default extraction walker.
func WithWalker(walker *extract.Walker) Option {
	return func(i *Ingestor) {
		if walker != nil {
			i.walker = walker
		}
	}
}

// WithEngine replaces the default change-detection engine.
func WithEngine(engine *delta.Engine) Option {
	return func(i *Ingestor) {
		if engine != nil {
			i.engine = engine
		}
	}
}

// WithBlobStore attaches an external blob store for scheme-prefixed
// identifiers.
func WithBlobStore(blobs BlobStore) Option {
	return func(i *Ingestor) { i.blobs = blobs }
}

// WithSchemePrefix overrides the identifier prefix resolved via the blob
// store. Default is DefaultSchemePrefix.
func WithSchemePrefix(prefix string) Option {
	return func(i *Ingestor) {
		if prefix != "" {
			i.scheme = prefix
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingestor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewIngestor creates an ingestor. The fingerprint repository feeds the
// change-detection engine.
func NewIngestor(
	raws storage.RawRepository,
	batches storage.BatchRepository,
	fingerprints storage.FingerprintRepository,
	opts ...Option,
) (*Ingestor, error) {
	if raws == nil || batches == nil || fingerprints == nil {
		return nil, ErrRepositoriesRequired
	}

	i := &Ingestor{
		raws:    raws,
		batches: batches,
		walker:  extract.NewWalker(),
		engine:  delta.NewEngine(fingerprints),
		scheme:  DefaultSchemePrefix,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With("component", "ingestor")
	return i, nil
}

// Result reports what one ingestion run did.
type Result struct {
	// Raw is the stored document version backing this run.
	Raw *core.RawRecord

	// Batch is the created batch; nil when the run was an idempotent no-op.
	Batch *core.Batch

	// Unchanged is true when the content hash matched the latest stored
	// version and nothing new was created.
	Unchanged bool

	// Stats holds the extraction counters.
	Stats extract.Stats

	// Delta summarizes change detection.
	Delta delta.Summary
}

// Ingest runs the pipeline for one document. When data is nil and the
// identifier carries the blob scheme prefix, the bytes are fetched from the
// blob store. rootPath is the document's addressing root; empty falls back
// to the source identifier.
func (i *Ingestor) Ingest(ctx context.Context, sourceID string, data []byte, rootPath string) (*Result, error) {
	if sourceID == "" {
		return nil, core.ErrEmptySourceID
	}
	if rootPath == "" {
		rootPath = sourceID
	}

	if data == nil && strings.HasPrefix(sourceID, i.scheme) {
		if i.blobs == nil {
			return nil, ErrBlobStoreRequired
		}
		fetched, err := i.blobs.Fetch(ctx, sourceID)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", sourceID, err)
		}
		data = fetched
	}

	if len(data) == 0 {
		return i.fatal(ctx, sourceID, 0, ErrEmptyDocument)
	}

	doc, err := extract.ParseDocument(data)
	if err != nil {
		return i.fatal(ctx, sourceID, 0, fmt.Errorf("%w: %w", ErrMalformedDocument, err))
	}

	contentHash := core.HashText(string(data))

	latest, err := i.raws.GetLatestRawRecord(ctx, sourceID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup latest version of %s: %w", sourceID, err)
	}

	version := 1
	if latest != nil {
		if latest.ContentHash == contentHash {
			// Byte-identical content: nothing new to store or enrich.
			i.logger.Info("content unchanged, skipping ingestion",
				"sourceId", sourceID, "version", latest.Version)
			return &Result{Raw: latest, Unchanged: true}, nil
		}
		version = latest.Version + 1
	}

	raw, err := i.raws.AddRawRecord(ctx, &core.RawRecord{
		SourceID:    sourceID,
		Version:     version,
		ContentHash: contentHash,
		Raw:         data,
		Status:      core.RawReceived,
	})
	if err != nil {
		return nil, fmt.Errorf("store raw version %d of %s: %w", version, sourceID, err)
	}

	fragments, stats, err := i.walker.Extract(doc, rootPath)
	if err != nil {
		return i.extractionFailed(ctx, raw, fmt.Errorf("%w: %w", ErrExtractionFailed, err))
	}

	fragments, summary, err := i.engine.Detect(ctx, fragments, version == 1)
	if err != nil {
		return i.extractionFailed(ctx, raw, fmt.Errorf("change detection: %w", err))
	}

	batch := &core.Batch{
		ID:       uuid.NewString(),
		SourceID: sourceID,
		Version:  version,
		Status:   core.BatchCleansed,
		Items:    fragments,
	}
	if _, err := i.batches.AddBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("store batch for %s: %w", sourceID, err)
	}

	if err := i.raws.UpdateRawStatus(ctx, sourceID, version, core.RawExtracted); err != nil {
		return nil, fmt.Errorf("mark version %d of %s extracted: %w", version, sourceID, err)
	}

	i.logger.Info("document ingested",
		"sourceId", sourceID,
		"version", version,
		"batchId", batch.ID,
		"fragments", len(fragments),
		"changed", summary.Changed,
		"analytics", stats.Analytics,
		"blankDropped", stats.BlankDropped)

	return &Result{Raw: raw, Batch: batch, Stats: stats, Delta: summary}, nil
}

// fatal records an ingestion-fatal failure: a terminal batch with no
// fragments and no raw version.
func (i *Ingestor) fatal(ctx context.Context, sourceID string, version int, cause error) (*Result, error) {
	batch := &core.Batch{
		ID:       uuid.NewString(),
		SourceID: sourceID,
		Version:  version,
		Status:   core.BatchFailed,
		Errors:   []string{cause.Error()},
	}
	if _, err := i.batches.AddBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("record failed batch for %s: %w", sourceID, err)
	}
	i.logger.Error("ingestion failed", "sourceId", sourceID, "err", cause)
	return &Result{Batch: batch}, cause
}

// extractionFailed records a mid-document failure, preserving the raw record
// for diagnosis.
func (i *Ingestor) extractionFailed(ctx context.Context, raw *core.RawRecord, cause error) (*Result, error) {
	if err := i.raws.UpdateRawStatus(ctx, raw.SourceID, raw.Version, core.RawFailed); err != nil {
		i.logger.Error("failed to mark raw record failed",
			"sourceId", raw.SourceID, "version", raw.Version, "err", err)
	}
	batch := &core.Batch{
		ID:       uuid.NewString(),
		SourceID: raw.SourceID,
		Version:  raw.Version,
		Status:   core.BatchFailed,
		Errors:   []string{cause.Error()},
	}
	if _, err := i.batches.AddBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("record failed batch for %s: %w", raw.SourceID, err)
	}
	i.logger.Error("extraction failed",
		"sourceId", raw.SourceID, "version", raw.Version, "err", cause)
	return &Result{Raw: raw, Batch: batch}, cause
}
