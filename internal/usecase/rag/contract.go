package rag

import (
	"context"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/domain/answer"
	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorSearcher returns nearest-neighbour chunks ordered by ascending distance.
// An empty corpus yields an empty slice and a nil error.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int, filter passage.Filter) ([]passage.Candidate, error)
}

// Reranker scores (query, passage) pairs. The result has the same length and order as passages.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Generator produces a completion. Failures are reported inside the Completion, never as errors.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64) domain.Completion
	Info() answer.LLMInfo
}

// TokenCounter counts prompt tokens for diagnostics.
type TokenCounter interface {
	Count(text string) int
}
