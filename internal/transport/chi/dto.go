package chi

import (
	"time"

	"github.com/kailas-cloud/ragquery/internal/domain/answer"
	domhist "github.com/kailas-cloud/ragquery/internal/domain/history"
	"github.com/kailas-cloud/ragquery/internal/domain/query"
)

type errorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

type queryRequest struct {
	Query         string   `json:"query"`
	TopKInitial   *int     `json:"top_k_initial,omitempty"`
	TopKFinal     *int     `json:"top_k_final,omitempty"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	DomainFilter  *string  `json:"domain_filter,omitempty"`
}

func (r queryRequest) toInput() query.Input {
	in := query.Input{
		Query:         r.Query,
		TopKInitial:   r.TopKInitial,
		TopKFinal:     r.TopKFinal,
		MinConfidence: r.MinConfidence,
		Temperature:   r.Temperature,
	}
	if r.DomainFilter != nil {
		in.DomainFilter = *r.DomainFilter
	}
	return in
}

type sourceDTO struct {
	SourceID    int     `json:"source_id"`
	ChunkID     string  `json:"chunk_id"`
	DocumentID  string  `json:"document_id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Path        string  `json:"path,omitempty"`
	Domain      string  `json:"domain,omitempty"`
	Similarity  float64 `json:"similarity"`
	RerankScore float64 `json:"rerank_score"`
	Excerpt     string  `json:"excerpt"`
	Cited       bool    `json:"cited"`
}

type llmDTO struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// timingsDTO omits the post-embedding stages for fallbacks.
type timingsDTO struct {
	Embed    int64  `json:"embed"`
	Retrieve *int64 `json:"retrieve,omitempty"`
	Rerank   *int64 `json:"rerank,omitempty"`
	LLM      *int64 `json:"llm,omitempty"`
	Total    int64  `json:"total"`
}

type queryResponse struct {
	QueryID         string      `json:"query_id"`
	ResponseMD      string      `json:"response_md"`
	ConfidenceScore float64     `json:"confidence_score"`
	Sources         []sourceDTO `json:"sources"`
	LLM             *llmDTO     `json:"llm,omitempty"`
	TimingsMS       timingsDTO  `json:"timings_ms"`
	Warnings        []string    `json:"warnings"`
}

type historyEntryDTO struct {
	QueryID         string      `json:"query_id"`
	Query           string      `json:"query"`
	ResponseMD      string      `json:"response_md"`
	ConfidenceScore float64     `json:"confidence_score"`
	Fallback        bool        `json:"fallback"`
	LLM             llmDTO      `json:"llm"`
	Sources         []sourceDTO `json:"sources"`
	Warnings        []string    `json:"warnings"`
	CreatedAt       time.Time   `json:"created_at"`
}

type historyListResponse struct {
	Items  []historyEntryDTO `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func resultToDTO(id string, r *answer.Result) queryResponse {
	sources := make([]sourceDTO, len(r.Sources()))
	for i, s := range r.Sources() {
		meta := s.Meta()
		sources[i] = sourceDTO{
			SourceID:    s.SourceID(),
			ChunkID:     meta.ChunkID,
			DocumentID:  meta.DocumentID,
			Title:       meta.Title,
			URL:         meta.URL,
			Path:        meta.Path,
			Domain:      meta.Domain,
			Similarity:  s.Similarity(),
			RerankScore: s.RerankScore(),
			Excerpt:     s.Excerpt(),
			Cited:       s.Cited(),
		}
	}

	t := r.Timings()
	resp := queryResponse{
		QueryID:         id,
		ResponseMD:      r.Response(),
		ConfidenceScore: r.Confidence(),
		Sources:         sources,
		TimingsMS: timingsDTO{
			Embed: t.Embed.Milliseconds(),
			Total: t.Total.Milliseconds(),
		},
		Warnings: nonNil(r.Warnings()),
	}
	if !r.IsFallback() {
		resp.LLM = &llmDTO{Provider: r.LLM().Provider, Model: r.LLM().Model}
		resp.TimingsMS.Retrieve = millis(t.Retrieve)
		resp.TimingsMS.Rerank = millis(t.Rerank)
		resp.TimingsMS.LLM = millis(t.Generate)
	}
	return resp
}

func entryToDTO(e *domhist.Entry) historyEntryDTO {
	sources := make([]sourceDTO, len(e.Sources))
	for i, s := range e.Sources {
		sources[i] = sourceDTO(s)
	}
	return historyEntryDTO{
		QueryID:         e.ID,
		Query:           e.Query,
		ResponseMD:      e.Response,
		ConfidenceScore: e.Confidence,
		Fallback:        e.Fallback,
		LLM:             llmDTO{Provider: e.LLMProvider, Model: e.LLMModel},
		Sources:         sources,
		Warnings:        nonNil(e.Warnings),
		CreatedAt:       e.CreatedAt.UTC(),
	}
}

func millis(d time.Duration) *int64 {
	v := d.Milliseconds()
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
