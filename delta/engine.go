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

package delta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// FingerprintStore is the subset of the fingerprint repository the engine
// needs. Lookups return storage.ErrNotFound for missing fingerprints.
type FingerprintStore interface {
	GetFingerprint(ctx context.Context, sourcePath, fieldKey, usagePath string) (*core.Fingerprint, error)
	FindFingerprint(ctx context.Context, sourcePath, fieldKey string) (*core.Fingerprint, error)
	PutFingerprint(ctx context.Context, fp *core.Fingerprint) error
}

// Summary counts the outcomes of one detection run.
type Summary struct {
	Total          int
	Changed        int
	Unchanged      int
	New            int
	ContextChanged int
}

// Engine performs fingerprint-based change detection.
type Engine struct {
	store           FingerprintStore
	recheckContext  bool
	strictUsagePath bool
	logger          *slog.Logger
	now             func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecheckContext also compares context hashes for fragments whose content
// is unchanged, so facet and provenance edits re-trigger enrichment. Off by
// default: context-only changes rarely affect enrichment output.
func WithRecheckContext(recheck bool) Option {
	return func(e *Engine) {
		e.recheckContext = recheck
	}
}

// WithStrictUsagePaths disables the identity-only fallback lookup: a fragment
// with no fingerprint at its exact usage path counts as new even when an
// older row exists for the same (sourcePath, fieldKey).
func WithStrictUsagePaths(strict bool) Option {
	return func(e *Engine) {
		e.strictUsagePath = strict
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// NewEngine creates a change-detection engine backed by the given store.
func NewEngine(store FingerprintStore, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: slog.Default().With("component", "delta-engine"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Detect annotates each fragment's hashes and Changed flag and rewrites its
// fingerprint. When firstVersion is true every fragment is changed and no
// lookups are performed; fingerprints are still written so the next version
// has a baseline.
func (e *Engine) Detect(ctx context.Context, fragments []core.Fragment, firstVersion bool) ([]core.Fragment, Summary, error) {
	summary := Summary{Total: len(fragments)}

	for i := range fragments {
		f := &fragments[i]
		f.ContentHash = core.HashText(f.RawValue)
		f.ContextHash = core.ContextFingerprint(&f.Context)

		changed, isNew, ctxChanged, err := e.compare(ctx, f, firstVersion)
		if err != nil {
			return nil, Summary{}, err
		}
		f.Changed = changed

		switch {
		case isNew:
			summary.New++
			summary.Changed++
		case changed && ctxChanged:
			summary.ContextChanged++
			summary.Changed++
		case changed:
			summary.Changed++
		default:
			summary.Unchanged++
		}

		if err := e.store.PutFingerprint(ctx, e.fingerprint(f)); err != nil {
			return nil, Summary{}, fmt.Errorf("put fingerprint %s %s: %w", f.SourcePath, f.FieldKey, err)
		}
	}

	e.logger.Debug("change detection complete",
		"total", summary.Total,
		"changed", summary.Changed,
		"new", summary.New,
		"contextChanged", summary.ContextChanged)

	return fragments, summary, nil
}

// compare resolves a fragment's prior fingerprint and decides whether it
// changed. Exact usage-path lookup comes first; the identity-only fallback
// covers fingerprints recorded before usage paths were persisted.
func (e *Engine) compare(ctx context.Context, f *core.Fragment, firstVersion bool) (changed, isNew, ctxChanged bool, err error) {
	if firstVersion {
		return true, true, false, nil
	}

	fp, err := e.store.GetFingerprint(ctx, f.SourcePath, f.FieldKey, f.UsagePath)
	if errors.Is(err, storage.ErrNotFound) && !e.strictUsagePath {
		fp, err = e.store.FindFingerprint(ctx, f.SourcePath, f.FieldKey)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return true, true, false, nil
	}
	if err != nil {
		return false, false, false, fmt.Errorf("lookup fingerprint %s %s: %w", f.SourcePath, f.FieldKey, err)
	}

	if fp.RawContentHash == "" {
		// Fingerprint predates raw hashes; fall back to the cleansed hash.
		if fp.CleansedContentHash != core.HashText(f.Cleansed) {
			return true, false, false, nil
		}
	} else if fp.RawContentHash != f.ContentHash {
		return true, false, false, nil
	}

	if e.recheckContext && fp.ContextHash != f.ContextHash {
		return true, false, true, nil
	}

	return false, false, false, nil
}

func (e *Engine) fingerprint(f *core.Fragment) *core.Fingerprint {
	cleansedHash := core.HashText(f.Cleansed)
	return &core.Fingerprint{
		SourcePath:          f.SourcePath,
		FieldKey:            f.FieldKey,
		UsagePath:           f.UsagePath,
		RawContentHash:      f.ContentHash,
		ContextHash:         f.ContextHash,
		CleansedContentHash: cleansedHash,
		CleansedContextHash: core.HashText(cleansedHash + "\x00" + f.ContextHash),
		UpdatedAt:           e.now(),
	}
}
