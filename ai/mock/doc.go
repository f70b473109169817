// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Enricher, ai.Embedder,
// and ai.Provider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewProvider()
//	enrichment, err := mockProvider.Enricher().Enrich(ctx, ai.Request{Text: "test"})
//
//	// Custom behavior injection
//	enricher := mock.NewEnricher()
//	enricher.EnrichFunc = func(ctx context.Context, req ai.Request) (*ai.Enrichment, error) {
//	    return nil, errors.New("boom")
//	}
//
//	// Simulated throttling: the first two calls return ai.ErrThrottled
//	enricher := mock.NewEnricher().ThrottleFirst(2)
//
//	// Check call counts
//	count := enricher.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - Enricher: Builds a deterministic enrichment from the request text
//   - Embedder: Returns deterministic vectors based on text hash
//   - Provider: Aggregates mock enricher and embedder
package mock
