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

// Package orchestrate drives the asynchronous enrichment of cleansed batches.
//
// The pipeline has four cooperating pieces:
//
//   - Producer turns a CLEANSED batch into enrichment jobs. It deduplicates
//     fragments by identity, skips fragments whose cleansed text already has
//     an enriched result from a prior run, registers the batch with the
//     Tracker, and publishes the remaining jobs.
//   - Worker consumes jobs. It acquires a shared rate-limit permit, calls the
//     enrichment provider, and records exactly one element outcome per job.
//     A throttled call is not an outcome: the job is requeued with a delay
//     and completion bookkeeping is left untouched.
//   - Tracker keeps best-effort in-memory completion counters. It is never
//     the sole source of truth; when its state is missing (process restart)
//     the worker falls back to a durable element recount.
//   - Finalizer runs exactly once per batch. It wins the right to finalize
//     through a conditional status update, fans enriched elements out into
//     one section per usage path, resets embedding state, and computes the
//     batch's terminal status.
//
// Runner wires the pieces to a worker pool and a polling loop for a
// long-running service.
package orchestrate
