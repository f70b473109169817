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

// Package ai provides abstractions for AI services used in Corpus.
//
// This package defines interfaces for AI operations including fragment
// enrichment and text embeddings. It follows the dependency inversion
// principle, allowing the core domain and business logic to depend on
// abstractions rather than concrete implementations.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Enricher: Produces structured enrichment for fragment text
//   - Embedder: Generates vector embeddings from text
//   - Provider: Aggregates AI services for convenient initialization
//
// # Throttling
//
// Rate limiting by the upstream provider is a first-class outcome, not a
// failure. Implementations map HTTP 429 responses to ErrThrottled, and every
// caller in the enrichment pipeline treats ErrThrottled as "retry later".
// A throttled item must never be recorded as failed.
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEnricher, etc.) return
// INTERFACE types to enforce abstraction and prevent accidental coupling to
// concrete implementations.
//
//	provider, err := openai.NewProvider(config)  // returns ai.Provider
//
// Test utility constructors (mock.NewEnricher, mock.NewEmbedder) return
// CONCRETE types to enable test assertions and behavior injection via the
// mock's public fields and methods (CallCount, EnrichFunc, ThrottleFirst).
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	enrichment, err := provider.Enricher().Enrich(ctx, ai.Request{Text: "Buy now!"})
//	if errors.Is(err, ai.ErrThrottled) {
//	    // requeue and try again later
//	}
package ai
