package rag

import "fmt"

// DefaultRelevanceFloor is the rerank score a chunk must exceed to reach the prompt.
const DefaultRelevanceFloor = 0.7

// Config tunes the answer pipeline.
type Config struct {
	// RerankEnabled switches between the reranker service and similarity pass-through.
	RerankEnabled bool
	// RelevanceFloor excludes chunks whose rerank score is not strictly above it.
	RelevanceFloor float64
	// RerankBatchSize splits passages into concurrently scored batches. 0 sends one request.
	RerankBatchSize int
	// Workers bounds concurrent search and rerank calls across all queries.
	Workers int
	Scorer  ScorerConfig
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		RerankEnabled:  true,
		RelevanceFloor: DefaultRelevanceFloor,
		Workers:        4,
		Scorer:         DefaultScorerConfig(),
	}
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.RelevanceFloor < 0 || c.RelevanceFloor > 1 {
		return fmt.Errorf("relevance floor must be in [0,1], got %g", c.RelevanceFloor)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.RerankBatchSize < 0 {
		return fmt.Errorf("rerank batch size must be >= 0, got %d", c.RerankBatchSize)
	}
	return c.Scorer.Validate()
}
