package openai

import (
	"context"
	"errors"
	"math"
	"net"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/domain/answer"
	"github.com/kailas-cloud/ragquery/internal/logger"
	"github.com/kailas-cloud/ragquery/internal/metrics"
)

// Generation defaults.
const (
	DefaultSystemPrompt = "You are a helpful technical assistant."
	DefaultMaxTokens    = 2048
	DefaultTimeout      = 90 * time.Second
)

// GeneratorConfig holds the chat completion settings.
type GeneratorConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Provider     string
	SystemPrompt string
	MaxTokens    int
	Timeout      time.Duration
	Logger       *zap.Logger
}

// Generator sends prompts to a chat completions endpoint one at a time.
// Local model servers handle a single request well; callers queue in arrival order.
type Generator struct {
	client       *openai.Client
	model        string
	provider     string
	systemPrompt string
	maxTokens    int
	timeout      time.Duration
	lock         *semaphore.Weighted
	logger       *zap.Logger
}

// NewGenerator creates a serialized chat completion client.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	g := &Generator{
		model:        cfg.Model,
		provider:     cfg.Provider,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    cfg.MaxTokens,
		timeout:      cfg.Timeout,
		lock:         semaphore.NewWeighted(1),
		logger:       cfg.Logger,
	}
	if g.systemPrompt == "" {
		g.systemPrompt = DefaultSystemPrompt
	}
	if g.maxTokens <= 0 {
		g.maxTokens = DefaultMaxTokens
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	// The per-call deadline bounds the request; the HTTP client carries no timeout of its own.
	g.client = newClient(cfg.APIKey, cfg.BaseURL, 0)
	return g
}

// Info returns the provider and model recorded with each answer.
func (g *Generator) Info() answer.LLMInfo {
	return answer.LLMInfo{Provider: g.provider, Model: g.model}
}

// Generate runs one completion. Failures come back as a diagnostic Completion, never as an error.
// Once the lock is held the request runs to completion or timeout even if ctx is cancelled.
func (g *Generator) Generate(ctx context.Context, prompt string, temperature float64) domain.Completion {
	log := logger.FromContextOr(ctx, g.logger)

	waitStart := time.Now()
	if err := g.lock.Acquire(ctx, 1); err != nil {
		log.Warn("Gave up waiting for the language model", zap.Error(err))
		return g.fail(domain.FailureTimeout)
	}
	defer g.lock.Release(1)
	metrics.GeneratorLockWait.Observe(time.Since(waitStart).Seconds())

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: requestTemperature(temperature),
		MaxTokens:   g.maxTokens,
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(cctx, req)
	duration := time.Since(start)

	if err != nil {
		kind := classify(err)
		log.Error("Language model request failed",
			zap.String("provider", g.provider),
			zap.String("model", g.model),
			zap.String("failure", string(kind)),
			zap.Int("status", statusCode(err)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return g.fail(kind)
	}

	if len(resp.Choices) == 0 {
		log.Error("Language model returned no choices", zap.String("model", g.model))
		return g.fail(domain.FailureMalformed)
	}

	metrics.GeneratorRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	metrics.GeneratorTokensTotal.WithLabelValues(g.provider, g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.GeneratorTokensTotal.WithLabelValues(g.provider, g.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	log.Debug("Language model response generated",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return domain.Completed(resp.Choices[0].Message.Content, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return parseAPIError("llm", err, errors.New("llm unavailable"))
	}
	return nil
}

func (g *Generator) fail(kind domain.FailureKind) domain.Completion {
	metrics.GeneratorRequestsTotal.WithLabelValues(g.provider, g.model, string(kind)).Inc()
	return domain.Failed(kind)
}

func classify(err error) domain.FailureKind {
	if statusCode(err) != 0 {
		return domain.FailureUpstreamStatus
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FailureTimeout
	}
	return domain.FailureTransport
}

// requestTemperature maps 0 to the smallest positive value: go-openai drops a zero
// temperature from the request and servers would apply their own default.
func requestTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
