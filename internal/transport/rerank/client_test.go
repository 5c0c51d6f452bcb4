package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/ragquery/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

func newTestClient(url, api string) *Client {
	return New(Config{URL: url, API: api, APIKey: "secret", Model: "bge-reranker-v2-m3", Timeout: time.Second})
}

func TestScore_TEI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		var req teiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Query != "what is bimap?" || !slices.Equal(req.Texts, []string{"a", "b", "c"}) {
			t.Errorf("request = %+v", req)
		}
		// TEI returns results sorted by score.
		_, _ = w.Write([]byte(`[{"index":2,"score":0.9},{"index":0,"score":0.5},{"index":1,"score":0.1}]`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL, APITEI).Score(context.Background(), "what is bimap?", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, []float64{0.5, 0.1, 0.9}) {
		t.Errorf("scores = %v", got)
	}
}

func TestScore_Cohere(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req cohereRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "bge-reranker-v2-m3" || req.TopN != 2 || len(req.Documents) != 2 {
			t.Errorf("request = %+v", req)
		}
		_, _ = w.Write([]byte(`{"results":[{"index":1,"relevance_score":0.8},{"index":0,"relevance_score":0.3}]}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL, APICohere).Score(context.Background(), "q", []string{"x", "y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, []float64{0.3, 0.8}) {
		t.Errorf("scores = %v", got)
	}
}

func TestScore_Empty(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", APITEI)
	got, err := c.Score(context.Background(), "q", nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestScore_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"status", http.StatusServiceUnavailable, `model loading`},
		{"bad json", http.StatusOK, `{not json`},
		{"missing index", http.StatusOK, `[{"index":0,"score":0.5}]`},
		{"out of range", http.StatusOK, `[{"index":0,"score":0.5},{"index":5,"score":0.1}]`},
		{"no score", http.StatusOK, `[{"index":0},{"index":1,"score":0.1}]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			if _, err := newTestClient(server.URL, APITEI).Score(context.Background(), "q", []string{"a", "b"}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestScore_Metrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"index":0,"score":0.5}]`))
	}))
	defer server.Close()

	before := testutil.ToFloat64(metrics.RerankRequestsTotal.WithLabelValues("bge-reranker-v2-m3", "success"))
	if _, err := newTestClient(server.URL, APITEI).Score(context.Background(), "q", []string{"a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := testutil.ToFloat64(metrics.RerankRequestsTotal.WithLabelValues("bge-reranker-v2-m3", "success"))
	if after-before != 1 {
		t.Errorf("success counter delta = %v", after-before)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"index":0,"score":0.99}]`))
	}))
	defer server.Close()

	if err := newTestClient(server.URL, APITEI).HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	down := newTestClient("http://127.0.0.1:1", APITEI)
	if err := down.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error for unreachable service")
	}
}
