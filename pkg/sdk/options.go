package ragquery

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	embedder          Embedder
	generator         Generator
	llmProvider       string
	llmModel          string
	generationTimeout time.Duration
	reranker          Reranker

	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int
	relevanceFloor   *float64
	workers          int
	historyTTL       time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the Redis instance holding the chunk index and history.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the query embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator sets the language model. Required. provider and model are
// recorded with every answer.
func WithGenerator(g Generator, provider, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
		c.llmProvider = provider
		c.llmModel = model
	})
}

// WithGenerationTimeout bounds each generator call. Default 90s.
// Calls run one at a time; the timeout starts once a call gets its turn.
func WithGenerationTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.generationTimeout = d
	})
}

// WithReranker enables second-stage scoring. Without it, vector similarity is used.
func WithReranker(r Reranker) Option {
	return optionFunc(func(c *clientConfig) {
		c.reranker = r
	})
}

// WithVectorDimensions sets the chunk vector size. Defaults to 1024 (bge-m3).
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters used when the chunk index is created.
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithRelevanceFloor sets the score a passage must exceed to reach the prompt. Default 0.7.
func WithRelevanceFloor(floor float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.relevanceFloor = &floor
	})
}

// WithWorkers bounds concurrent search and rerank calls. Default 4.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithHistoryTTL expires history entries. Zero (default) keeps them forever.
func WithHistoryTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.historyTTL = ttl
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
