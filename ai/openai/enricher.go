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

package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"

	"github.com/poiesic/corpus/ai"
)

// Enricher implements ai.Enricher using OpenAI-compatible chat APIs.
type Enricher struct {
	client      *openai.Client
	model       string
	maxKeywords int
	logger      *slog.Logger
}

// enrichmentResponse matches the JSON structure requested from the LLM.
type enrichmentResponse struct {
	Summary        string   `json:"summary"`
	Classification string   `json:"classification"`
	Keywords       []string `json:"keywords"`
	Tags           []string `json:"tags"`
	Sentiment      string   `json:"sentiment"`
}

// newEnricher is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEnricher(config *ai.Config) (*Enricher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Enricher{
		client:      newClient(config.EnrichmentHost, config.APIKey),
		model:       config.EnrichmentModel,
		maxKeywords: config.MaxKeywords,
		logger:      slog.Default().With("component", "openai-enricher"),
	}, nil
}

// NewEnricher creates a new enricher using the provided configuration.
//
// Returns ai.Enricher interface to enforce abstraction.
func NewEnricher(config *ai.Config) (ai.Enricher, error) {
	return newEnricher(config)
}

// Enrich analyzes fragment text with an LLM and returns structured metadata.
// Malformed JSON responses are retried up to 3 times; throttling surfaces as
// ai.ErrThrottled and is never retried here.
func (e *Enricher) Enrich(ctx context.Context, req ai.Request) (*ai.Enrichment, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ai.ErrEmptyText
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt()},
		{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req)},
	}

	// Try up to 3 times in case of malformed JSON.
	var result enrichmentResponse
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       e.model,
			Messages:    messages,
			Temperature: 0,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return nil, mapProviderError("enrich", err)
		}

		if len(resp.Choices) < 1 {
			return nil, fmt.Errorf("enrich: %w: no choices returned", ai.ErrInvalidResponse)
		}

		responseText := stripCodeFences(resp.Choices[0].Message.Content)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing enrichment response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}
	if lastErr != nil {
		return nil, fmt.Errorf("enrich: %w: %w", ai.ErrInvalidResponse, lastErr)
	}

	enrichment := &ai.Enrichment{
		Summary:        strings.TrimSpace(result.Summary),
		Classification: normalizeLabel(result.Classification),
		Keywords:       normalizeKeywords(result.Keywords, e.maxKeywords),
		Tags:           result.Tags,
		Sentiment:      normalizeLabel(result.Sentiment),
	}

	e.logger.Debug("enriched fragment",
		"field", req.FieldKey,
		"classification", enrichment.Classification,
		"keywords", len(enrichment.Keywords))

	return enrichment, nil
}
