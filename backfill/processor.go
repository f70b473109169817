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
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// SectionProcessor embeds one section's text and stores its vectors.
type SectionProcessor struct {
	sections  storage.SectionRepository
	vectors   storage.VectorRepository
	embedder  ai.Embedder
	limiter   *rate.Limiter
	chunkSize int
	logger    *slog.Logger
}

// NewSectionProcessor creates a processor. A nil limiter means unlimited.
func NewSectionProcessor(
	sections storage.SectionRepository,
	vectors storage.VectorRepository,
	embedder ai.Embedder,
	limiter *rate.Limiter,
	chunkSize int,
	logger *slog.Logger,
) (*SectionProcessor, error) {
	if sections == nil || vectors == nil {
		return nil, ErrRepositoriesRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SectionProcessor{
		sections:  sections,
		vectors:   vectors,
		embedder:  embedder,
		limiter:   limiter,
		chunkSize: chunkSize,
		logger:    logger.With("component", "section-processor"),
	}, nil
}

// Process embeds one pending section. On success the section is EMBEDDED and
// its vectors replace any stale ones. A throttled provider call reverts the
// section to PENDING and returns ai.ErrThrottled for the caller's backoff;
// any other failure also reverts the section so a later sweep retries it.
func (p *SectionProcessor) Process(ctx context.Context, section *core.Section) error {
	chunks := ChunkText(section.CleansedText, p.chunkSize)
	if len(chunks) == 0 {
		// Nothing to vectorize; finalization normally catches this case.
		return p.sections.UpdateSectionEmbedding(ctx, section.BatchID,
			section.SectionPath, section.SectionURI, section.FieldKey, core.Embedded)
	}

	if err := p.markSection(ctx, section, core.EmbeddingInProgress); err != nil {
		return err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		p.revert(ctx, section)
		return fmt.Errorf("acquire rate-limit permit: %w", err)
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		p.revert(ctx, section)
		return err
	}
	if len(embeddings) != len(chunks) {
		p.revert(ctx, section)
		return fmt.Errorf("%w: %d chunks, %d vectors", ErrEmbeddingCountMismatch, len(chunks), len(embeddings))
	}

	vectors := make([]core.ContentVector, len(chunks))
	for i, chunk := range chunks {
		vectors[i] = core.ContentVector{
			Text:       chunk,
			Vector:     NormalizeVector(embeddings[i]),
			InsertedAt: time.Now().UTC(),
		}
	}
	if err := p.vectors.PutVectors(ctx, section.BatchID,
		section.SectionPath, section.SectionURI, section.FieldKey, vectors); err != nil {
		p.revert(ctx, section)
		return fmt.Errorf("store vectors: %w", err)
	}

	return p.markSection(ctx, section, core.Embedded)
}

func (p *SectionProcessor) markSection(ctx context.Context, section *core.Section, status core.EmbeddingStatus) error {
	err := p.sections.UpdateSectionEmbedding(ctx, section.BatchID,
		section.SectionPath, section.SectionURI, section.FieldKey, status)
	if err != nil {
		return fmt.Errorf("mark section %s/%s %s: %w",
			section.SectionPath, section.SectionURI, status, err)
	}
	return nil
}

// revert puts a section back to PENDING so the next sweep picks it up again.
func (p *SectionProcessor) revert(ctx context.Context, section *core.Section) {
	if err := p.markSection(ctx, section, core.EmbeddingPending); err != nil {
		p.logger.Error("failed to revert section to pending",
			"sectionPath", section.SectionPath,
			"sectionUri", section.SectionURI,
			"err", err)
	}
}
