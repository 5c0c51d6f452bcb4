package domain

import "context"

type usageKey struct{}

// Usage collects token usage for a single HTTP request.
// The handler puts a mutable pointer into the context before calling the service;
// the pipeline writes after embedding and generation; the handler reads it for response headers.
type Usage struct {
	EmbeddingTokens  int
	PromptTokens     int
	CompletionTokens int
	Embedded         bool // true if embedding was called, even on a cache hit with 0 tokens
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records tokens consumed by the query embedding.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.EmbeddingTokens += n
		u.Embedded = true
	}
}

// AddGenerationTokens records tokens consumed by the language model.
func (u *Usage) AddGenerationTokens(prompt, completion int) {
	if u != nil {
		u.PromptTokens += prompt
		u.CompletionTokens += completion
	}
}
