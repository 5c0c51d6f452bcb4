package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/db"
	"github.com/kailas-cloud/ragquery/internal/domain"
)

func TestEmbed_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	ce, ms := newTestCachedEmbedder(t, inner, Options{Model: "bge-m3"})

	var setKey string
	ms.setFn = func(_ context.Context, key string, _ []byte) error {
		setKey = key
		return nil
	}

	result, err := ce.Embed(context.Background(), "how do generators work?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.1 {
		t.Fatalf("unexpected vector: %v", result.Embedding)
	}
	if result.TotalTokens != 10 {
		t.Fatalf("expected TotalTokens=10, got %d", result.TotalTokens)
	}
	if !strings.HasPrefix(setKey, "ragq:emb_cache:") {
		t.Fatalf("unexpected cache key %q", setKey)
	}
}

func TestEmbed_CacheHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	ce, ms := newTestCachedEmbedder(t, inner, Options{})

	cached := vectorToCacheBytes([]float32{0.4, 0.5, 0.6})
	ms.getFn = func(context.Context, string) ([]byte, error) { return cached, nil }

	result, err := ce.Embed(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.4 {
		t.Fatalf("expected cached vector, got: %v", result.Embedding)
	}
	if result.TotalTokens != 0 {
		t.Fatalf("expected TotalTokens=0 on cache hit, got %d", result.TotalTokens)
	}
	if inner.calls != 0 {
		t.Fatalf("inner embedder called on hit")
	}
}

func TestEmbed_TTLUsesSetWithTTL(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, ms := newTestCachedEmbedder(t, inner, Options{TTL: time.Hour})

	var gotTTL time.Duration
	ms.setWithTTLFn = func(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
		gotTTL = ttl
		return nil
	}
	ms.setFn = func(context.Context, string, []byte) error {
		t.Error("Set must not be called when TTL is configured")
		return nil
	}

	if _, err := ce.Embed(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTTL != time.Hour {
		t.Fatalf("ttl = %v", gotTTL)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	ce, ms := newTestCachedEmbedder(t, inner, Options{})

	var setCalled bool
	ms.setFn = func(context.Context, string, []byte) error {
		setCalled = true
		return nil
	}

	_, err := ce.Embed(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error")
	}
	if setCalled {
		t.Fatal("failed embedding must not be cached")
	}
}

func TestEmbed_CacheErrorsAreNotFatal(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.5}}}
	ce, ms := newTestCachedEmbedder(t, inner, Options{})

	ms.getFn = func(context.Context, string) ([]byte, error) { return nil, errors.New("conn reset") }
	ms.setFn = func(context.Context, string, []byte) error { return errors.New("conn reset") }

	result, err := ce.Embed(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Embedding[0] != 0.5 {
		t.Fatalf("unexpected vector: %v", result.Embedding)
	}
}

func TestEmbed_CorruptCacheFallsThrough(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.7}}}
	ce, ms := newTestCachedEmbedder(t, inner, Options{})

	ms.getFn = func(context.Context, string) ([]byte, error) { return []byte{1, 2, 3}, nil }

	result, err := ce.Embed(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 || result.Embedding[0] != 0.7 {
		t.Fatalf("expected inner call, got calls=%d vec=%v", inner.calls, result.Embedding)
	}
}

func TestCacheKey_ScopedByModel(t *testing.T) {
	a := New(&mockEmbedder{}, &mockKVStore{}, Options{Model: "bge-m3"}, nil, nil)
	b := New(&mockEmbedder{}, &mockKVStore{}, Options{Model: "e5-large"}, nil, nil)

	if a.cacheKey("q") == b.cacheKey("q") {
		t.Fatal("keys for different models must differ")
	}
	if a.cacheKey("q") != a.cacheKey("q") {
		t.Fatal("keys must be deterministic")
	}
}

func TestEmbed_CacheMetrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ms := &mockKVStore{}
	ce := New(inner, ms, Options{}, counter, zap.NewNop())

	if _, err := ce.Embed(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ms.getFn = func(context.Context, string) ([]byte, error) { return vectorToCacheBytes([]float32{1}), nil }
	if _, err := ce.Embed(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss = %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hit = %v", got)
	}
}

func TestBytesToVector_Invalid(t *testing.T) {
	if _, err := bytesToVector([]byte{1, 2}); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := (&CachedEmbedder{store: &mockKVStore{
		getFn: func(context.Context, string) ([]byte, error) { return nil, db.ErrKeyNotFound },
	}, logger: zap.NewNop()}).getFromCache(context.Background(), "k"); ok {
		t.Fatal("not-found must be a miss")
	}
}
