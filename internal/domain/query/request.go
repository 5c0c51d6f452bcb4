package query

import (
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/ragquery/internal/domain"
)

// Query parameter limits.
const (
	MinQueryLength = 3
	// MaxQueryLength is the maximum allowed query length in characters.
	MaxQueryLength = 4096
	MaxTopKInitial = 100
	MaxTopKFinal   = 20
)

// Defaults are applied to parameters the caller left unset.
type Defaults struct {
	TopKInitial   int
	TopKFinal     int
	MinConfidence float64
	Temperature   float64
}

// StandardDefaults mirrors the service configuration defaults.
func StandardDefaults() Defaults {
	return Defaults{
		TopKInitial:   30,
		TopKFinal:     7,
		MinConfidence: 0.70,
		Temperature:   0.3,
	}
}

// Input is the raw query as received from a client. Nil pointers mean "use the default".
type Input struct {
	Query         string
	TopKInitial   *int
	TopKFinal     *int
	MinConfidence *float64
	Temperature   *float64
	DomainFilter  string
}

// Request is a validated query.
type Request struct {
	text          string
	topKInitial   int
	topKFinal     int
	minConfidence float64
	temperature   float64
	domainFilter  string
}

// New validates the input and fills unset parameters from d.
func New(in Input, d Defaults) (Request, error) {
	if strings.TrimSpace(in.Query) == "" {
		return Request{}, domain.NewValidationError("query", "is required")
	}
	n := utf8.RuneCountInString(in.Query)
	if n < MinQueryLength {
		return Request{}, domain.NewValidationError("query", "must be at least 3 characters")
	}
	if n > MaxQueryLength {
		return Request{}, domain.NewValidationError("query", "is too long")
	}

	r := Request{
		text:          in.Query,
		topKInitial:   d.TopKInitial,
		topKFinal:     d.TopKFinal,
		minConfidence: d.MinConfidence,
		temperature:   d.Temperature,
		domainFilter:  strings.TrimSpace(in.DomainFilter),
	}

	if in.TopKInitial != nil {
		if *in.TopKInitial < 1 || *in.TopKInitial > MaxTopKInitial {
			return Request{}, domain.NewValidationError("top_k_initial", "must be between 1 and 100")
		}
		r.topKInitial = *in.TopKInitial
	}
	if in.TopKFinal != nil {
		if *in.TopKFinal < 1 || *in.TopKFinal > MaxTopKFinal {
			return Request{}, domain.NewValidationError("top_k_final", "must be between 1 and 20")
		}
		r.topKFinal = *in.TopKFinal
	}
	if in.MinConfidence != nil {
		if *in.MinConfidence < 0 || *in.MinConfidence > 1 {
			return Request{}, domain.NewValidationError("min_confidence", "must be between 0 and 1")
		}
		r.minConfidence = *in.MinConfidence
	}
	if in.Temperature != nil {
		if *in.Temperature < 0 || *in.Temperature > 1 {
			return Request{}, domain.NewValidationError("temperature", "must be between 0 and 1")
		}
		r.temperature = *in.Temperature
	}

	return r, nil
}

// Text returns the question text.
func (r *Request) Text() string { return r.text }

// TopKInitial returns the number of nearest neighbours to retrieve.
func (r *Request) TopKInitial() int { return r.topKInitial }

// TopKFinal returns the maximum number of sources handed to the generator.
func (r *Request) TopKFinal() int { return r.topKFinal }

// MinConfidence returns the threshold below which the answer is replaced by a fallback.
func (r *Request) MinConfidence() float64 { return r.minConfidence }

// Temperature returns the sampling temperature for generation.
func (r *Request) Temperature() float64 { return r.temperature }

// DomainFilter returns the optional source domain restriction.
func (r *Request) DomainFilter() string { return r.domainFilter }
