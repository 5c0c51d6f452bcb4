package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/config"
	"github.com/kailas-cloud/ragquery/internal/db"
	"github.com/kailas-cloud/ragquery/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/ragquery/internal/db/redis"
	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/domain/query"
	logpkg "github.com/kailas-cloud/ragquery/internal/logger"
	"github.com/kailas-cloud/ragquery/internal/metrics"
	"github.com/kailas-cloud/ragquery/internal/repository/embcache"
	historyrepo "github.com/kailas-cloud/ragquery/internal/repository/history"
	searchrepo "github.com/kailas-cloud/ragquery/internal/repository/search"
	"github.com/kailas-cloud/ragquery/internal/telemetry"
	"github.com/kailas-cloud/ragquery/internal/tokenizer"
	chiTransport "github.com/kailas-cloud/ragquery/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/ragquery/internal/transport/openai"
	"github.com/kailas-cloud/ragquery/internal/transport/rerank"
	"github.com/kailas-cloud/ragquery/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragquery/internal/usecase/health"
	historyuc "github.com/kailas-cloud/ragquery/internal/usecase/history"
	"github.com/kailas-cloud/ragquery/internal/usecase/rag"
	"github.com/kailas-cloud/ragquery/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragquery API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("search_backend", cfg.Search.Backend),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("reranker", cfg.Reranker.Enabled),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
	)

	ctx := context.Background()
	domain.KeyPrefix = cfg.Storage.KeyPrefix

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version.Version,
		Environment:    env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Redis holds history and the embedding cache for every search backend.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	searcher, searchPinger, closeSearch := buildSearcher(ctx, cfg, store, readiness, logger)
	defer closeSearch()

	embedder := buildEmbedder(cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache.Enabled),
	)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		Provider:  cfg.LLM.Provider,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:    logger,
	})

	// Pass a nil interface, not a typed nil pointer, when reranking is off.
	var reranker rag.Reranker
	var rerankClient *rerank.Client
	if cfg.Reranker.Enabled {
		rerankClient = rerank.New(rerank.Config{
			URL:     cfg.Reranker.URL,
			API:     cfg.Reranker.API,
			APIKey:  cfg.Reranker.APIKey,
			Model:   cfg.Reranker.Model,
			Timeout: time.Duration(cfg.Reranker.TimeoutSec) * time.Second,
			Logger:  logger,
		})
		reranker = rerankClient
	}

	counter, err := tokenizer.NewOrEstimate(cfg.LLM.Model)
	if err != nil {
		logger.Warn("BPE ranks unavailable, estimating prompt tokens", zap.Error(err))
	}

	ragSvc := rag.New(embedder, searcher, reranker, generator, ragConfig(cfg),
		rag.WithTokenCounter(counter),
		rag.WithLogger(logger),
	)

	historySvc := historyuc.New(
		historyrepo.New(store, time.Duration(cfg.History.TTLSec)*time.Second),
		historyuc.WithPageSizes(cfg.History.DefaultPageSize, cfg.History.MaxPageSize),
	)

	healthOpts := []healthuc.Option{
		healthuc.WithEmbedding(embeddingHealthChecker{embedder: embedder}),
		healthuc.WithLLM(generator),
	}
	if searchPinger != nil {
		healthOpts = append(healthOpts, healthuc.WithSearch(searchPinger))
	}
	if rerankClient != nil {
		healthOpts = append(healthOpts, healthuc.WithReranker(rerankClient))
	}
	healthSvc := healthuc.New(store, healthOpts...)

	server := chiTransport.NewServer(ragSvc, historySvc, healthSvc, queryDefaults(cfg), logger)
	router := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildSearcher selects the vector backend. The returned pinger is nil for redis,
// which the database check already covers.
func buildSearcher(
	ctx context.Context,
	cfg config.Config,
	store *dbRedis.Store,
	readiness time.Duration,
	logger *zap.Logger,
) (rag.VectorSearcher, healthuc.DBPinger, func()) {
	switch cfg.Search.Backend {
	case config.BackendPostgres:
		pg, err := postgres.Open(postgres.Config{
			DSN:          cfg.Search.Postgres.DSN,
			MaxOpenConns: cfg.Search.Postgres.MaxOpenConns,
		})
		if err != nil {
			logger.Fatal("Failed to open postgres", zap.Error(err))
		}
		if err := pg.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Postgres not ready", zap.Error(err))
		}
		logger.Info("Connected to postgres",
			zap.String("chunks_table", cfg.Search.Postgres.ChunksTable),
			zap.String("documents_table", cfg.Search.Postgres.DocsTable),
		)
		searcher := searchrepo.NewPGVector(pg, cfg.Search.Postgres.ChunksTable, cfg.Search.Postgres.DocsTable)
		return searcher, pg, func() { _ = pg.Close() }

	case config.BackendQdrant:
		client, err := searchrepo.DialQdrant(searchrepo.QdrantConfig{
			Host:   cfg.Search.Qdrant.Host,
			Port:   cfg.Search.Qdrant.Port,
			APIKey: cfg.Search.Qdrant.APIKey,
			UseTLS: cfg.Search.Qdrant.UseTLS,
		})
		if err != nil {
			logger.Fatal("Failed to create qdrant client", zap.Error(err))
		}
		logger.Info("Using qdrant collection", zap.String("collection", cfg.Search.Qdrant.Collection))
		searcher := searchrepo.NewQdrant(client, cfg.Search.Qdrant.Collection)
		return searcher, qdrantPinger{client: client}, func() { _ = client.Close() }

	default:
		metric, err := db.ParseDistanceMetric(cfg.Search.DistanceMetric)
		if err != nil {
			logger.Fatal("Invalid distance metric", zap.Error(err))
		}
		searcher := searchrepo.NewRedis(store)
		err = searcher.EnsureIndex(ctx, searchrepo.IndexConfig{
			Dimensions:     cfg.Embedding.Dimensions,
			Distance:       metric,
			M:              cfg.Index.HNSWM,
			EFConstruction: cfg.Index.HNSWEFConstruct,
		})
		if err != nil {
			logger.Fatal("Failed to ensure chunk index", zap.Error(err))
		}
		logger.Info("Chunk index ready", zap.String("index", searchrepo.IndexName()))
		return searcher, nil, func() {}
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
func buildEmbedder(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) domain.Embedder {
	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:   cfg.Embedding.APIKey,
		BaseURL:  cfg.Embedding.BaseURL,
		Model:    cfg.Embedding.Model,
		Provider: cfg.Embedding.Provider,
		Logger:   logger,
	})

	if cfg.Embedding.Cache.Enabled {
		embedder = embcache.New(embedder, store, embcache.Options{
			Model: cfg.Embedding.Model,
			TTL:   time.Duration(cfg.Embedding.Cache.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embedding.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Dimensions, logger,
	)

	// Instruction prefix is outermost so the cache key includes it.
	if cfg.Embedding.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}
	return embedder
}

func ragConfig(cfg config.Config) rag.Config {
	r := cfg.RAG
	return rag.Config{
		RerankEnabled:   cfg.Reranker.Enabled,
		RelevanceFloor:  *r.RelevanceFloor,
		RerankBatchSize: cfg.Reranker.BatchSize,
		Workers:         r.Workers,
		Scorer: rag.ScorerConfig{
			RerankWeight:       r.RerankWeight,
			CitationWeight:     r.CitationWeight,
			Penalty:            r.UncertaintyPenalty,
			BaseFloor:          r.BaseConfidence,
			UncertaintyPhrases: r.UncertaintyPhrases,
		},
	}
}

func queryDefaults(cfg config.Config) query.Defaults {
	return query.Defaults{
		TopKInitial:   cfg.RAG.TopKInitial,
		TopKFinal:     cfg.RAG.TopKFinal,
		MinConfidence: *cfg.RAG.MinConfidence,
		Temperature:   *cfg.RAG.Temperature,
	}
}

// qdrantPinger adapts the gRPC health endpoint to healthuc.DBPinger.
type qdrantPinger struct {
	client *qdrant.Client
}

func (p qdrantPinger) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// embeddingHealthChecker wraps domain.Embedder to implement healthuc.Checker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func (h embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
