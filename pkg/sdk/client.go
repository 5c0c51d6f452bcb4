package ragquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/ragquery/internal/db"
	dbRedis "github.com/kailas-cloud/ragquery/internal/db/redis"
	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/domain/answer"
	domhist "github.com/kailas-cloud/ragquery/internal/domain/history"
	"github.com/kailas-cloud/ragquery/internal/domain/query"
	historyrepo "github.com/kailas-cloud/ragquery/internal/repository/history"
	searchrepo "github.com/kailas-cloud/ragquery/internal/repository/search"
	healthuc "github.com/kailas-cloud/ragquery/internal/usecase/health"
	historyuc "github.com/kailas-cloud/ragquery/internal/usecase/history"
	"github.com/kailas-cloud/ragquery/internal/usecase/rag"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultHNSWM            = 16
	defaultHNSWEF           = 200

	defaultGenerationTimeout = 90 * time.Second
)

// Internal interfaces, swapped for mocks in tests.
type ragUseCase interface {
	Query(ctx context.Context, req query.Request) (answer.Result, error)
}

type historyUseCase interface {
	Record(ctx context.Context, userID, query string, r *answer.Result) (string, error)
	Get(ctx context.Context, userID, id string) (domhist.Entry, error)
	List(ctx context.Context, userID string, limit, offset int) (domhist.Page, error)
	Delete(ctx context.Context, userID, id string) error
}

type store interface {
	Ping(ctx context.Context) error
	Close()
}

// Client is the ragquery SDK entry point.
type Client struct {
	store      store
	ragSvc     ragUseCase
	historySvc historyUseCase
	healthSvc  healthUseCase
	defaults   query.Defaults
	obs        *observer
}

// New creates a Client, connects to Redis and ensures the chunk index exists.
// The provided context is used for the readiness check and index creation.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		vectorDimensions: domain.DefaultVectorConfig().Dimensions,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("ragquery: create redis store: %w", err)
	}
	if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("ragquery: database not ready: %w", err)
	}

	c, err := wireClient(ctx, s, cfg, obs)
	if err != nil {
		s.Close()
		return nil, err
	}
	return c, nil
}

func (c *clientConfig) validate() error {
	if len(c.addrs) == 0 {
		return errors.New("ragquery: database address required (use WithRedis)")
	}
	if c.embedder == nil {
		return errors.New("ragquery: embedder required (use WithEmbedder)")
	}
	if c.generator == nil {
		return errors.New("ragquery: generator required (use WithGenerator)")
	}
	if c.vectorDimensions <= 0 {
		return fmt.Errorf("ragquery: vector dimensions must be positive, got %d", c.vectorDimensions)
	}
	return nil
}

func (c *clientConfig) ragConfig() rag.Config {
	rc := rag.DefaultConfig()
	rc.RerankEnabled = c.reranker != nil
	if c.relevanceFloor != nil {
		rc.RelevanceFloor = *c.relevanceFloor
	}
	if c.workers > 0 {
		rc.Workers = c.workers
	}
	return rc
}

func (c *clientConfig) indexConfig() searchrepo.IndexConfig {
	ic := searchrepo.IndexConfig{
		Dimensions:     c.vectorDimensions,
		Distance:       db.DistanceCosine,
		M:              defaultHNSWM,
		EFConstruction: defaultHNSWEF,
	}
	if c.hnswM > 0 {
		ic.M = c.hnswM
	}
	if c.hnswEFConstruct > 0 {
		ic.EFConstruction = c.hnswEFConstruct
	}
	return ic
}

func wireClient(ctx context.Context, s *dbRedis.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	rc := cfg.ragConfig()
	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("ragquery: %w", err)
	}

	searcher := searchrepo.NewRedis(s)
	if err := searcher.EnsureIndex(ctx, cfg.indexConfig()); err != nil {
		return nil, fmt.Errorf("ragquery: ensure chunk index: %w", err)
	}

	gen := newGeneratorAdapter(cfg.generator,
		answer.LLMInfo{Provider: cfg.llmProvider, Model: cfg.llmModel},
		cfg.generationTimeout)
	ragSvc := rag.New(&embedderAdapter{inner: cfg.embedder}, searcher, cfg.reranker, gen, rc)
	historySvc := historyuc.New(historyrepo.New(s, cfg.historyTTL))

	return &Client{
		store:      s,
		ragSvc:     ragSvc,
		historySvc: historySvc,
		healthSvc:  healthuc.New(s),
		defaults:   query.StandardDefaults(),
		obs:        obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// History returns the per-user query history service.
func (c *Client) History() *HistoryService {
	return &HistoryService{svc: c.historySvc, obs: c.obs}
}

// embedderAdapter wraps public Embedder to satisfy the pipeline's embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// generatorAdapter runs one generation at a time, in arrival order, and turns
// generator errors into diagnostic completions.
type generatorAdapter struct {
	inner   Generator
	info    answer.LLMInfo
	timeout time.Duration
	lock    *semaphore.Weighted
}

func newGeneratorAdapter(g Generator, info answer.LLMInfo, timeout time.Duration) *generatorAdapter {
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	return &generatorAdapter{
		inner:   g,
		info:    info,
		timeout: timeout,
		lock:    semaphore.NewWeighted(1),
	}
}

// Generate holds the lock for the whole call. Once acquired, the call runs to
// completion or timeout even if ctx is cancelled.
func (a *generatorAdapter) Generate(ctx context.Context, prompt string, temperature float64) domain.Completion {
	if err := a.lock.Acquire(ctx, 1); err != nil {
		return domain.Failed(domain.FailureTimeout)
	}
	defer a.lock.Release(1)

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	text, err := a.inner.Generate(cctx, prompt, temperature)
	switch {
	case err == nil:
		return domain.Completed(text, 0, 0)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(cctx.Err(), context.DeadlineExceeded):
		return domain.Failed(domain.FailureTimeout)
	default:
		return domain.Failed(domain.FailureTransport)
	}
}

func (a *generatorAdapter) Info() answer.LLMInfo { return a.info }
