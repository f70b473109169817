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
	"github.com/poiesic/corpus/storage"
)

// claimableStatuses are the batch statuses from which finalization may be
// claimed. Anything else either already finalized or never reached the queue.
var claimableStatuses = []core.BatchStatus{
	core.BatchQueued,
	core.BatchInProgress,
	core.BatchSkipped,
}

// Finalizer consolidates a finished batch. Finalize is safe to invoke
// redundantly and concurrently; the status CAS admits exactly one caller.
type Finalizer struct {
	batches      storage.BatchRepository
	elements     storage.ElementRepository
	sections     storage.SectionRepository
	fingerprints storage.FingerprintRepository
	tracker      *Tracker
	logger       *slog.Logger
}

// NewFinalizer creates a finalizer.
func NewFinalizer(
	batches storage.BatchRepository,
	elements storage.ElementRepository,
	sections storage.SectionRepository,
	fingerprints storage.FingerprintRepository,
	tracker *Tracker,
	logger *slog.Logger,
) (*Finalizer, error) {
	if batches == nil || elements == nil || sections == nil {
		return nil, ErrRepositoriesRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Finalizer{
		batches:      batches,
		elements:     elements,
		sections:     sections,
		fingerprints: fingerprints,
		tracker:      tracker,
		logger:       logger.With("component", "finalizer"),
	}, nil
}

// Finalize fans the batch's enriched elements out into sections and moves the
// batch to its next status. Callers that lose the claim return nil without
// side effects.
func (f *Finalizer) Finalize(ctx context.Context, batchID string) error {
	claimed, err := f.batches.ClaimBatchStatus(ctx, batchID, claimableStatuses, core.BatchFinalizing)
	if err != nil {
		return fmt.Errorf("claim batch %s for finalization: %w", batchID, err)
	}
	if !claimed {
		return nil
	}

	// The claim is held; the in-memory counter is done regardless of what it
	// says.
	if f.tracker != nil {
		f.tracker.ForceComplete(batchID)
	}

	if err := f.run(ctx, batchID); err != nil {
		// Release the claim so a redelivered outcome can drive another
		// attempt. FINALIZING is not claimable, so a batch left there after
		// a transient failure would be stranded forever.
		if revertErr := f.batches.UpdateBatchStatus(ctx, batchID, core.BatchInProgress); revertErr != nil {
			f.logger.Error("failed to release finalization claim",
				"batchId", batchID, "err", revertErr)
		}
		return err
	}
	return nil
}

// run does the consolidation work under a held claim.
func (f *Finalizer) run(ctx context.Context, batchID string) error {
	batch, err := f.batches.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load batch %s: %w", batchID, err)
	}
	elements, err := f.elements.ListElements(ctx, batchID)
	if err != nil {
		return fmt.Errorf("list elements for %s: %w", batchID, err)
	}

	pending, err := f.consolidate(ctx, batch, elements)
	if err != nil {
		return err
	}

	status := terminalStatus(elements, pending)
	if err := f.batches.UpdateBatchStatus(ctx, batchID, status); err != nil {
		return fmt.Errorf("transition batch %s to %s: %w", batchID, status, err)
	}

	f.logger.Info("batch finalized",
		"batchId", batchID,
		"elements", len(elements),
		"pendingSections", pending,
		"status", status)
	return nil
}

// consolidate writes one section per distinct usage path of each enriched
// element and returns how many sections still need embedding. Error and
// skipped elements carry no enrichment content and produce no sections.
func (f *Finalizer) consolidate(ctx context.Context, batch *core.Batch, elements []*core.EnrichedElement) (int, error) {
	paths := f.usagePathIndex(ctx, batch)

	pending := 0
	for _, element := range elements {
		if element.Status != core.ElementEnriched {
			continue
		}

		identity := core.FragmentIdentity{SourcePath: element.SourcePath, FieldKey: element.FieldKey}
		usagePaths := paths[identity]
		if len(usagePaths) == 0 {
			// No recorded usage; the fragment's own path is its one location.
			usagePaths = []string{element.SourcePath}
		}

		for _, usagePath := range usagePaths {
			sectionPath, sectionURI := core.SplitUsagePath(usagePath, element.SourcePath)

			section := &core.Section{
				BatchID:         batch.ID,
				Version:         batch.Version,
				SectionPath:     sectionPath,
				SectionURI:      sectionURI,
				FieldKey:        element.FieldKey,
				CleansedText:    element.CleansedText,
				Summary:         element.Summary,
				Classification:  element.Classification,
				Keywords:        element.Keywords,
				Tags:            element.Tags,
				Sentiment:       element.Sentiment,
				Model:           element.Model,
				EmbeddingStatus: core.EmbeddingPending,
				UpdatedAt:       time.Now().UTC(),
			}
			// Blank text has nothing to vectorize.
			if section.CleansedText == "" {
				section.EmbeddingStatus = core.Embedded
			}

			err := f.sections.AddSection(ctx, section)
			switch {
			case errors.Is(err, storage.ErrDuplicateKey):
				// Sections written by an earlier attempt that failed partway
				// through still count toward the pending total.
				existing, getErr := f.sections.GetSection(ctx, batch.ID, sectionPath, sectionURI, element.FieldKey)
				if getErr == nil && existing.EmbeddingStatus == core.EmbeddingPending {
					pending++
				}
				continue
			case err != nil:
				return 0, fmt.Errorf("add section %s/%s/%s: %w",
					sectionPath, sectionURI, element.FieldKey, err)
			}
			if section.EmbeddingStatus == core.EmbeddingPending {
				pending++
			}
		}
	}
	return pending, nil
}

// usagePathIndex maps each fragment identity to its distinct usage paths.
// The batch's own fragment list is the primary source; the persisted
// fingerprint index backfills identities whose other usage paths were
// recorded by earlier runs and therefore aren't in this delta's fragments.
func (f *Finalizer) usagePathIndex(ctx context.Context, batch *core.Batch) map[core.FragmentIdentity][]string {
	paths := make(map[core.FragmentIdentity][]string, len(batch.Items))
	seen := make(map[core.FragmentIdentity]map[string]struct{}, len(batch.Items))

	add := func(identity core.FragmentIdentity, usagePath string) {
		if usagePath == "" {
			return
		}
		set, ok := seen[identity]
		if !ok {
			set = make(map[string]struct{})
			seen[identity] = set
		}
		if _, dup := set[usagePath]; dup {
			return
		}
		set[usagePath] = struct{}{}
		paths[identity] = append(paths[identity], usagePath)
	}

	for i := range batch.Items {
		fragment := &batch.Items[i]
		add(fragment.Identity(), fragment.UsagePath)
	}

	if f.fingerprints != nil {
		for identity := range paths {
			fps, err := f.fingerprints.ListFingerprints(ctx, identity.SourcePath, identity.FieldKey)
			if err != nil {
				f.logger.Warn("fingerprint backfill scan failed",
					"sourcePath", identity.SourcePath,
					"fieldKey", identity.FieldKey,
					"err", err)
				continue
			}
			for _, fp := range fps {
				add(identity, fp.UsagePath)
			}
			if len(fps) > 0 {
				continue
			}

			// Identities persisted before the usage index existed only carry
			// the identity-level row.
			fp, err := f.fingerprints.FindFingerprint(ctx, identity.SourcePath, identity.FieldKey)
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					f.logger.Warn("fingerprint backfill lookup failed",
						"sourcePath", identity.SourcePath,
						"fieldKey", identity.FieldKey,
						"err", err)
				}
				continue
			}
			add(identity, fp.UsagePath)
		}
	}
	return paths
}

// terminalStatus derives the batch's next status from its element outcomes.
// The batch status is a summary of counts, never a reflection of whether any
// single call failed.
func terminalStatus(elements []*core.EnrichedElement, pendingSections int) core.BatchStatus {
	if pendingSections > 0 {
		return core.BatchAwaitingEmbeddings
	}

	succeeded, failed := 0, 0
	for _, element := range elements {
		if element.Status.IsError() {
			failed++
		} else {
			succeeded++
		}
	}

	switch {
	case failed == 0:
		return core.BatchComplete
	case succeeded > 0:
		return core.BatchPartial
	default:
		return core.BatchFailed
	}
}
