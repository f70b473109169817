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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:11434/v1", cfg.EnrichmentHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.NotEmpty(t, cfg.EnrichmentModel)
	assert.NotEmpty(t, cfg.EmbeddingModel)
	assert.Equal(t, 10, cfg.MaxKeywords)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigOptions(t *testing.T) {
	cfg := NewConfig(
		WithHost("http://ai.internal:9100/v1"),
		WithEnrichmentModel("gpt-4o-mini"),
		WithEmbeddingModel("text-embedding-3-small"),
		WithAPIKey("sk-test"),
		WithMaxKeywords(5),
	)

	assert.Equal(t, "http://ai.internal:9100/v1", cfg.EnrichmentHost)
	assert.Equal(t, "http://ai.internal:9100/v1", cfg.EmbeddingHost)
	assert.Equal(t, "gpt-4o-mini", cfg.EnrichmentModel)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, 5, cfg.MaxKeywords)
}

func TestNewConfigSplitHosts(t *testing.T) {
	cfg := NewConfig(
		WithEnrichmentHost("http://chat.internal"),
		WithEmbeddingHost("http://embed.internal"),
	)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://chat.internal/v1", cfg.EnrichmentHost)
	assert.Equal(t, "http://embed.internal/v1", cfg.EmbeddingHost)
}

func TestNormalizeAddsV1Suffix(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"bare host", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"already normalized", "http://localhost:11434/v1", "http://localhost:11434/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithHost(tt.host))
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.EnrichmentHost)
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
		})
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing enrichment host", func(c *Config) { c.EnrichmentHost = "" }},
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }},
		{"missing enrichment model", func(c *Config) { c.EnrichmentModel = "" }},
		{"missing embedding model", func(c *Config) { c.EmbeddingModel = "" }},
		{"zero max keywords", func(c *Config) { c.MaxKeywords = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnrichmentValidate(t *testing.T) {
	valid := Enrichment{
		Summary:        "A short synopsis.",
		Classification: "marketing",
		Sentiment:      "positive",
	}
	assert.NoError(t, valid.Validate())

	noSentiment := valid
	noSentiment.Sentiment = ""
	assert.NoError(t, noSentiment.Validate())

	noSummary := valid
	noSummary.Summary = ""
	assert.ErrorIs(t, noSummary.Validate(), ErrInvalidResponse)

	badClass := valid
	badClass.Classification = "spam"
	assert.ErrorIs(t, badClass.Validate(), ErrInvalidResponse)

	badSentiment := valid
	badSentiment.Sentiment = "ecstatic"
	assert.ErrorIs(t, badSentiment.Validate(), ErrInvalidResponse)
}
