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

package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EnrichmentHost is the base URL for the enrichment service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EnrichmentHost string

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EnrichmentModel is the model identifier to use for fragment enrichment.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	EnrichmentModel string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// APIKey authenticates against the provider. Local OpenAI-compatible
	// services that don't require authentication can leave it empty.
	APIKey string

	// MaxKeywords caps the number of keywords kept from an enrichment.
	// Default: 10
	MaxKeywords int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets both enrichment and embedding hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EnrichmentHost = host
		c.EmbeddingHost = host
	}
}

// WithEnrichmentHost sets the enrichment service host URL.
func WithEnrichmentHost(host string) ConfigOption {
	return func(c *Config) {
		c.EnrichmentHost = host
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEnrichmentModel sets the enrichment model identifier.
func WithEnrichmentModel(model string) ConfigOption {
	return func(c *Config) {
		c.EnrichmentModel = model
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithMaxKeywords caps the number of keywords kept per enrichment.
func WithMaxKeywords(n int) ConfigOption {
	return func(c *Config) {
		c.MaxKeywords = n
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services. By default, both services use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EnrichmentHost:  defaultHost,
		EmbeddingHost:   defaultHost,
		EnrichmentModel: "qwen2.5:3b",
		EmbeddingModel:  "embeddinggemma",
		MaxKeywords:     10,
	}
}

// NewConfig creates a Config with the default values and applies the provided
// options. This is the recommended way to create a Config with custom settings.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.EnrichmentHost != "" && !strings.HasSuffix(c.EnrichmentHost, "/v1") {
		c.EnrichmentHost = strings.TrimSuffix(c.EnrichmentHost, "/") + "/v1"
	}
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/") + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EnrichmentHost == "" {
		return errors.New("ai config: EnrichmentHost is required")
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EnrichmentModel == "" {
		return errors.New("ai config: EnrichmentModel is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.MaxKeywords < 1 {
		return errors.New("ai config: MaxKeywords must be positive")
	}
	return nil
}
