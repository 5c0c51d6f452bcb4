package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/domain/answer"
	"github.com/kailas-cloud/ragquery/internal/domain/passage"
	"github.com/kailas-cloud/ragquery/internal/domain/query"
	logpkg "github.com/kailas-cloud/ragquery/internal/logger"
	"github.com/kailas-cloud/ragquery/internal/metrics"
	"github.com/kailas-cloud/ragquery/internal/telemetry"
	"github.com/kailas-cloud/ragquery/internal/tokenizer"
)

// Pipeline stage names used for metrics and spans.
const (
	stageEmbed    = "embed"
	stageRetrieve = "retrieve"
	stageRerank   = "rerank"
	stageGenerate = "generate"
	stageScore    = "score"
)

// Service runs the retrieval-augmented answer pipeline:
// retrieve -> rerank -> select -> generate -> verify -> score -> decide.
// It holds no per-query state.
type Service struct {
	embed    Embedder
	search   VectorSearcher
	reranker Reranker
	gen      Generator
	cfg      Config
	scorer   *Scorer
	pool     *workerPool
	tokens   TokenCounter
	tracer   trace.Tracer
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTokenCounter sets the counter used for prompt diagnostics.
func WithTokenCounter(c TokenCounter) Option {
	return func(s *Service) { s.tokens = c }
}

// WithTracer overrides the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates the pipeline. reranker may be nil when reranking is disabled.
func New(embed Embedder, search VectorSearcher, reranker Reranker, gen Generator, cfg Config, opts ...Option) *Service {
	s := &Service{
		embed:    embed,
		search:   search,
		reranker: reranker,
		gen:      gen,
		cfg:      cfg,
		scorer:   NewScorer(cfg.Scorer),
		pool:     newWorkerPool(cfg.Workers),
		tokens:   tokenizer.Estimate{},
		tracer:   telemetry.Tracer("github.com/kailas-cloud/ragquery/internal/usecase/rag"),
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Query embeds the question and runs the pipeline.
func (s *Service) Query(ctx context.Context, req query.Request) (answer.Result, error) {
	ctx, span := s.tracer.Start(ctx, "rag.query")
	res, err := s.embedAndRun(ctx, req)
	if err == nil {
		span.SetAttributes(
			attribute.String("rag.outcome", string(res.Kind())),
			attribute.Float64("rag.confidence", res.Confidence()),
		)
	}
	telemetry.End(span, err)
	return res, err
}

func (s *Service) embedAndRun(ctx context.Context, req query.Request) (answer.Result, error) {
	ectx, span := s.tracer.Start(ctx, "rag.embed")
	start := time.Now()
	emb, err := s.embed.Embed(ectx, req.Text())
	embedTime := time.Since(start)
	telemetry.End(span, err)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return answer.Result{}, fmt.Errorf("embed query: %w", err)
	}
	metrics.StageDuration.WithLabelValues(stageEmbed).Observe(embedTime.Seconds())
	domain.UsageFromContext(ctx).AddEmbeddingTokens(emb.TotalTokens)

	return s.Run(ctx, req, emb.Embedding, embedTime)
}

// Run executes the pipeline for an already embedded query. embedTime is reported
// as-is and included in the total.
func (s *Service) Run(
	ctx context.Context, req query.Request, vector []float32, embedTime time.Duration,
) (answer.Result, error) {
	log := logpkg.FromContextOr(ctx, s.logger)
	start := time.Now()
	timings := answer.Timings{Embed: embedTime}
	total := func() time.Duration { return embedTime + time.Since(start) }

	// Retrieving
	cands, err := s.retrieve(ctx, req, vector)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return answer.Result{}, err
	}
	timings.Retrieve = time.Since(start)
	log.Debug("Retrieved candidates",
		zap.Int("count", len(cands)),
		zap.Int("top_k", req.TopKInitial()),
		zap.String("domain_filter", req.DomainFilter()),
	)

	if len(cands) == 0 {
		timings.Total = total()
		metrics.QueriesTotal.WithLabelValues(metrics.OutcomeFallbackEmpty).Inc()
		return answer.NewFallback(0, nil, timings, answer.NoDocumentsWarning, s.gen.Info()), nil
	}

	// Reranking + Selecting
	rerankStart := time.Now()
	final, err := s.rankAndSelect(ctx, req, cands)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return answer.Result{}, err
	}
	timings.Rerank = time.Since(rerankStart)
	metrics.StageDuration.WithLabelValues(stageRerank).Observe(timings.Rerank.Seconds())

	// Generating
	prompt := BuildPrompt(req.Text(), final)
	s.logPrompt(log, final, prompt)

	genStart := time.Now()
	completion := s.generate(ctx, prompt, req.Temperature())
	timings.Generate = time.Since(genStart)
	metrics.StageDuration.WithLabelValues(stageGenerate).Observe(timings.Generate.Seconds())
	if !completion.OK() {
		log.Warn("Generation failed, continuing with diagnostic text",
			zap.String("failure", string(completion.Failure)))
	}

	// Verifying + Scoring
	sources, confidence := s.verifyAndScore(ctx, log, completion.Text, final)

	timings.Total = total()
	result := Decide(confidence, req.MinConfidence(), completion.Text, sources, timings, s.gen.Info())

	outcome := metrics.OutcomeAnswer
	if result.IsFallback() {
		outcome = metrics.OutcomeFallbackThreshold
	}
	metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	log.Debug("Pipeline finished",
		zap.String("outcome", outcome),
		zap.Float64("confidence", confidence),
		zap.Float64("min_confidence", req.MinConfidence()),
		zap.Duration("total", timings.Total),
	)
	return result, nil
}

func (s *Service) retrieve(ctx context.Context, req query.Request, vector []float32) ([]passage.Candidate, error) {
	ctx, span := s.tracer.Start(ctx, "rag.retrieve", trace.WithAttributes(
		attribute.Int("rag.top_k_initial", req.TopKInitial()),
	))
	start := time.Now()

	var cands []passage.Candidate
	err := s.pool.do(ctx, func(ctx context.Context) error {
		var serr error
		cands, serr = s.search.Search(ctx, vector, req.TopKInitial(), passage.Filter{Domain: req.DomainFilter()})
		return serr
	})
	metrics.StageDuration.WithLabelValues(stageRetrieve).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("rag.candidates", len(cands)))
	telemetry.End(span, err)
	if err != nil {
		if errors.Is(err, domain.ErrSearchBackend) {
			return nil, fmt.Errorf("retrieve: %w", err)
		}
		return nil, fmt.Errorf("retrieve: %w: %w", domain.ErrSearchBackend, err)
	}
	return cands, nil
}

func (s *Service) rankAndSelect(ctx context.Context, req query.Request, cands []passage.Candidate) ([]passage.Final, error) {
	ctx, span := s.tracer.Start(ctx, "rag.rerank", trace.WithAttributes(
		attribute.Bool("rag.rerank_enabled", s.cfg.RerankEnabled),
	))
	ranked, err := s.rerank(ctx, req.Text(), cands)
	if err != nil {
		telemetry.End(span, err)
		return nil, err
	}
	final := Select(ranked, s.cfg.RelevanceFloor, req.TopKFinal())
	span.SetAttributes(attribute.Int("rag.selected", len(final)))
	telemetry.End(span, nil)

	log := logpkg.FromContextOr(ctx, s.logger)
	if ce := log.Check(zap.DebugLevel, "Ranked candidates"); ce != nil {
		scores := make([]float64, 0, min(len(ranked), 10))
		for _, r := range ranked[:min(len(ranked), 10)] {
			scores = append(scores, r.RerankScore())
		}
		ce.Write(zap.Float64s("top_scores", scores), zap.Int("ranked", len(ranked)), zap.Int("selected", len(final)))
	}
	return final, nil
}

func (s *Service) generate(ctx context.Context, prompt string, temperature float64) domain.Completion {
	ctx, span := s.tracer.Start(ctx, "rag.generate")
	c := s.gen.Generate(ctx, prompt, temperature)
	span.SetAttributes(
		attribute.String("rag.failure", string(c.Failure)),
		attribute.Int("rag.prompt_tokens", c.PromptTokens),
		attribute.Int("rag.completion_tokens", c.CompletionTokens),
	)
	telemetry.End(span, nil)
	domain.UsageFromContext(ctx).AddGenerationTokens(c.PromptTokens, c.CompletionTokens)
	return c
}

func (s *Service) verifyAndScore(
	ctx context.Context, log *zap.Logger, text string, final []passage.Final,
) ([]answer.Source, float64) {
	_, span := s.tracer.Start(ctx, "rag.score")
	start := time.Now()

	sources, found := Verify(text, final)
	if len(found.Dropped) > 0 {
		metrics.CitationsDroppedTotal.Add(float64(len(found.Dropped)))
		log.Debug("Dropped malformed citation entries", zap.Strings("tokens", found.Dropped))
	}

	b := s.scorer.Explain(sources, text)
	metrics.ConfidenceScore.Observe(b.Confidence)
	metrics.StageDuration.WithLabelValues(stageScore).Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("rag.cited", b.Cited),
		attribute.Float64("rag.confidence", b.Confidence),
	)
	telemetry.End(span, nil)

	log.Debug("Confidence computed",
		zap.Int("cited", b.Cited),
		zap.Int("sources", b.Total),
		zap.Float64("avg_rerank", b.AvgRerank),
		zap.Bool("similarity_fallback", b.UsedSimilarity),
		zap.Float64("citation_ratio", b.CitationRatio),
		zap.Float64("penalty", b.Penalty),
		zap.Float64("raw", b.Raw),
		zap.Float64("confidence", b.Confidence),
	)
	return sources, b.Confidence
}

func (s *Service) logPrompt(log *zap.Logger, final []passage.Final, prompt string) {
	ce := log.Check(zap.DebugLevel, "Prompt built")
	if ce == nil {
		return
	}
	perChunk := make([]int, len(final))
	for i, f := range final {
		perChunk[i] = s.tokens.Count(f.Text())
	}
	ce.Write(
		zap.Int("chunks", len(final)),
		zap.Ints("chunk_tokens", perChunk),
		zap.Int("context_tokens", s.tokens.Count(RenderSources(final))),
		zap.Int("prompt_tokens", s.tokens.Count(prompt)),
	)
}
