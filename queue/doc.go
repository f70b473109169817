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

// Package queue carries enrichment jobs between the batch producer and the
// enrichment workers.
//
// The bus wraps a Watermill publisher/subscriber pair. The in-process
// gochannel transport is the default and needs no infrastructure; a NATS
// JetStream transport is available for multi-process deployments.
//
// Retries are owned by the transport. A throttled or failed job is handed
// back with Redeliver and stays on its original delivery: JetStream holds the
// message and schedules the next attempt from its delivery count, while the
// in-process transport defers the nack itself. Backoff grows per attempt and
// is capped, so a long throttling episode cannot push retries out
// indefinitely.
package queue
