package ragquery

import "context"

// Embedder converts query text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Generator answers a fully built prompt. Errors are turned into a diagnostic
// answer text, never into a failed query.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Reranker scores (query, passage) pairs. The result has one score per passage, in order.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}
