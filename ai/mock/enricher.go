package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/corpus/ai"
)

// Enricher is a test double for ai.Enricher.
// It allows custom behavior injection via function fields and can simulate
// provider throttling. Safe for concurrent use.
type Enricher struct {
	// EnrichFunc is called by Enrich if set.
	// If nil, uses default deterministic enrichment.
	EnrichFunc func(ctx context.Context, req ai.Request) (*ai.Enrichment, error)

	throttleRemaining atomic.Int64
	callCount         atomic.Int64
	throttledCount    atomic.Int64
}

// NewEnricher creates a mock enricher with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewEnricher() *Enricher {
	return &Enricher{}
}

// ThrottleFirst makes the next n calls return ai.ErrThrottled before any
// custom or default behavior runs.
func (m *Enricher) ThrottleFirst(n int) *Enricher {
	m.throttleRemaining.Store(int64(n))
	return m
}

// Enrich returns a deterministic enrichment derived from the request text.
func (m *Enricher) Enrich(ctx context.Context, req ai.Request) (*ai.Enrichment, error) {
	m.callCount.Add(1)

	if m.throttleRemaining.Add(-1) >= 0 {
		m.throttledCount.Add(1)
		return nil, ai.ErrThrottled
	}

	if m.EnrichFunc != nil {
		return m.EnrichFunc(ctx, req)
	}

	if strings.TrimSpace(req.Text) == "" {
		return nil, ai.ErrEmptyText
	}

	// Default: summary echoes the text, keywords are its first words.
	words := strings.Fields(strings.ToLower(req.Text))
	keywords := make([]string, 0, 3)
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'()[]{}")
		if w == "" {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == 3 {
			break
		}
	}

	return &ai.Enrichment{
		Summary:        "Content about " + strings.Join(keywords, ", ") + ".",
		Classification: "editorial",
		Keywords:       keywords,
		Sentiment:      "neutral",
	}, nil
}

// CallCount returns the number of times Enrich was called, throttled calls
// included.
func (m *Enricher) CallCount() int {
	return int(m.callCount.Load())
}

// ThrottledCount returns the number of calls that were throttled.
func (m *Enricher) ThrottledCount() int {
	return int(m.throttledCount.Load())
}

// Reset clears counts, throttling, and custom functions.
func (m *Enricher) Reset() {
	m.callCount.Store(0)
	m.throttledCount.Store(0)
	m.throttleRemaining.Store(0)
	m.EnrichFunc = nil
}
