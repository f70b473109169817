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

package mock

import "github.com/poiesic/corpus/ai"

// Provider is a test double for ai.Provider.
// It aggregates mock enricher and embedder instances.
type Provider struct {
	enricher *Enricher
	embedder *Embedder
}

// NewProvider creates a new mock provider with default mock services.
//
// Returns ai.Provider interface for consistency with production constructors.
// Use GetEnricher()/GetEmbedder() to access concrete types for test assertions.
func NewProvider() ai.Provider {
	return &Provider{
		enricher: NewEnricher(),
		embedder: NewEmbedder(),
	}
}

// NewProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewProviderWithServices(enricher *Enricher, embedder *Embedder) ai.Provider {
	return &Provider{
		enricher: enricher,
		embedder: embedder,
	}
}

// Enricher returns the mock enricher.
func (p *Provider) Enricher() ai.Enricher {
	return p.enricher
}

// Embedder returns the mock embedder.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close is a no-op for mock provider.
func (p *Provider) Close() error {
	return nil
}

// GetEnricher returns the underlying mock enricher for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *Provider) GetEnricher() *Enricher {
	return p.enricher
}

// GetEmbedder returns the underlying mock embedder for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *Provider) GetEmbedder() *Embedder {
	return p.embedder
}
