package answer

import (
	"fmt"
	"time"
)

// Fixed texts of the fallback variant.
const (
	FallbackTag        = "fallback"
	NoDocumentsWarning = "No relevant documents found."
	ApologyText        = "Unfortunately, I cannot give a confident answer based on the available " +
		"information. Please review the most relevant sources listed below."
)

// Kind distinguishes a generated answer from a refusal.
type Kind string

const (
	// KindAnswer is a generated, sufficiently grounded answer.
	KindAnswer Kind = "answer"
	// KindFallback is a refusal carrying the closest matches.
	KindFallback Kind = "fallback"
)

// Timings is the per-stage latency breakdown of one query.
type Timings struct {
	Embed    time.Duration
	Retrieve time.Duration
	Rerank   time.Duration
	Generate time.Duration
	Total    time.Duration
}

// LLMInfo identifies the model that produced an answer.
type LLMInfo struct {
	Provider string
	Model    string
}

// Result is the outcome of the answer pipeline.
type Result struct {
	kind       Kind
	response   string
	confidence float64
	sources    []Source
	timings    Timings
	warnings   []string
	llm        LLMInfo
}

// NewAnswer creates the answer variant.
func NewAnswer(response string, confidence float64, sources []Source, t Timings, llm LLMInfo) Result {
	return Result{
		kind:       KindAnswer,
		response:   response,
		confidence: clamp01(confidence),
		sources:    sources,
		timings:    t,
		warnings:   []string{},
		llm:        llm,
	}
}

// NewFallback creates the refusal variant. Only the embed and total timings survive;
// warnings are always [warning, "fallback"].
func NewFallback(confidence float64, sources []Source, t Timings, warning string, llm LLMInfo) Result {
	if sources == nil {
		sources = []Source{}
	}
	return Result{
		kind:       KindFallback,
		response:   ApologyText,
		confidence: clamp01(confidence),
		sources:    sources,
		timings:    Timings{Embed: t.Embed, Total: t.Total},
		warnings:   []string{warning, FallbackTag},
		llm:        llm,
	}
}

// LowConfidenceWarning formats the threshold message of a low-confidence fallback.
func LowConfidenceWarning(confidence, threshold float64) string {
	return fmt.Sprintf("Confidence score %.2f is below threshold %g.", confidence, threshold)
}

// Kind returns the result variant.
func (r *Result) Kind() Kind { return r.kind }

// IsFallback reports whether the result is a refusal.
func (r *Result) IsFallback() bool { return r.kind == KindFallback }

// Response returns the answer text (markdown) or the apology.
func (r *Result) Response() string { return r.response }

// Confidence returns the confidence score in [0,1].
func (r *Result) Confidence() float64 { return r.confidence }

// Sources returns the numbered sources.
func (r *Result) Sources() []Source { return r.sources }

// Timings returns the latency breakdown.
func (r *Result) Timings() Timings { return r.timings }

// Warnings returns the warnings list, empty for answers.
func (r *Result) Warnings() []string { return r.warnings }

// LLM returns the model identity.
func (r *Result) LLM() LLMInfo { return r.llm }

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}
