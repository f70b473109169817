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
	"log/slog"
	"sync"
	"sync/atomic"
)

// Tracker holds in-memory completion counters, one per in-flight batch.
// It is best-effort: a process restart loses the map, so callers must pair
// ItemCompleted with a durable recount when the batch is unknown.
type Tracker struct {
	mu      sync.Mutex
	batches map[string]*trackerEntry
	logger  *slog.Logger
}

type trackerEntry struct {
	expected  int
	remaining atomic.Int64
}

// NewTracker creates an empty tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		batches: make(map[string]*trackerEntry),
		logger:  logger.With("component", "tracker"),
	}
}

// StartTracking registers a batch with its expected job count. Registering
// a batch twice resets its counter. A non-positive count is a no-op.
func (t *Tracker) StartTracking(batchID string, expected int) {
	if expected <= 0 {
		return
	}
	entry := &trackerEntry{expected: expected}
	entry.remaining.Store(int64(expected))

	t.mu.Lock()
	t.batches[batchID] = entry
	t.mu.Unlock()
}

// ItemCompleted records one finished job. The first return reports whether
// this completion was the batch's last one; it is true exactly once per
// tracked batch. The second return reports whether the batch is tracked at
// all, so callers can fall back to a durable recount after a restart.
func (t *Tracker) ItemCompleted(batchID string) (done, tracked bool) {
	t.mu.Lock()
	entry, ok := t.batches[batchID]
	t.mu.Unlock()
	if !ok {
		return false, false
	}

	remaining := entry.remaining.Add(-1)
	switch {
	case remaining == 0:
		return true, true
	case remaining < 0:
		// More completions than expected jobs. Log and carry on; the
		// finalization CAS makes redundant attempts harmless.
		t.logger.Warn("completion counter went negative",
			"batchId", batchID,
			"expected", entry.expected,
			"remaining", remaining)
	}
	return false, true
}

// ForceComplete removes a batch's entry and reports whether one existed.
// Used when a durable recount proves completion while the in-memory counter
// still disagrees.
func (t *Tracker) ForceComplete(batchID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.batches[batchID]
	delete(t.batches, batchID)
	return ok
}

// Remaining returns the outstanding job count for a batch, or -1 when the
// batch is not tracked.
func (t *Tracker) Remaining(batchID string) int64 {
	t.mu.Lock()
	entry, ok := t.batches[batchID]
	t.mu.Unlock()
	if !ok {
		return -1
	}
	return entry.remaining.Load()
}
