// Package rerank is an HTTP client for cross-encoder reranking services.
// Two request formats are supported: Hugging Face text-embeddings-inference
// (POST {"query","texts"} -> [{"index","score"}]) and the Cohere/Jina style
// (POST {"model","query","documents"} -> {"results":[{"index","relevance_score"}]}).
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/logger"
	"github.com/kailas-cloud/ragquery/internal/metrics"
)

// Request formats.
const (
	APITEI    = "tei"
	APICohere = "cohere"
)

const maxErrorBody = 512

// Config holds reranker service settings.
type Config struct {
	URL     string
	API     string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client scores (query, passage) pairs through a remote reranker.
type Client struct {
	url    string
	api    string
	apiKey string
	model  string
	http   *http.Client
	logger *zap.Logger
}

// New creates a reranker client.
func New(cfg Config) *Client {
	c := &Client{
		url:    cfg.URL,
		api:    cfg.API,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: cfg.Logger,
	}
	if c.api == "" {
		c.api = APITEI
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

type teiRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
}

type cohereRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type indexedScore struct {
	Index          int      `json:"index"`
	Score          *float64 `json:"score"`
	RelevanceScore *float64 `json:"relevance_score"`
}

type cohereResponse struct {
	Results []indexedScore `json:"results"`
}

// Score returns one relevance score per passage, in input order.
func (c *Client) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}

	scores, err := c.score(ctx, query, passages)
	status := "success"
	if err != nil {
		status = "error"
		logger.FromContextOr(ctx, c.logger).Warn("Rerank request failed",
			zap.String("model", c.model),
			zap.Int("passages", len(passages)),
			zap.Error(err),
		)
	}
	metrics.RerankRequestsTotal.WithLabelValues(c.model, status).Inc()
	return scores, err
}

func (c *Client) score(ctx context.Context, query string, passages []string) ([]float64, error) {
	var body any
	if c.api == APICohere {
		body = cohereRequest{Model: c.model, Query: query, Documents: passages, TopN: len(passages)}
	} else {
		body = teiRequest{Query: query, Texts: passages}
	}

	raw, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	results, err := decodeScores(raw)
	if err != nil {
		return nil, err
	}
	return orderScores(results, len(passages))
}

func (c *Client) post(ctx context.Context, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rerank response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, fmt.Errorf("rerank status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return data, nil
}

// decodeScores accepts both a bare array (TEI) and a {"results": [...]} object.
func decodeScores(data []byte) ([]indexedScore, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var out []indexedScore
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("decode rerank response: %w", err)
		}
		return out, nil
	}
	var resp cohereResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	return resp.Results, nil
}

func orderScores(results []indexedScore, n int) ([]float64, error) {
	scores := make([]float64, n)
	seen := make([]bool, n)
	for _, r := range results {
		if r.Index < 0 || r.Index >= n {
			return nil, fmt.Errorf("rerank index %d out of range [0,%d)", r.Index, n)
		}
		v := r.Score
		if v == nil {
			v = r.RelevanceScore
		}
		if v == nil {
			return nil, fmt.Errorf("rerank result %d has no score", r.Index)
		}
		scores[r.Index] = *v
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank response missing index %d", i)
		}
	}
	return scores, nil
}

// HealthCheck scores a trivial pair.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.score(ctx, "ping", []string{"pong"}); err != nil {
		return errors.Join(errors.New("reranker unavailable"), err)
	}
	return nil
}
