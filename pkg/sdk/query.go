package ragquery

import (
	"context"
	"time"

	"github.com/kailas-cloud/ragquery/internal/domain/answer"
	domhist "github.com/kailas-cloud/ragquery/internal/domain/history"
	"github.com/kailas-cloud/ragquery/internal/domain/query"
)

// Query answers a question and records it in the user's history.
// A low-confidence outcome is not an error: it comes back with Fallback set.
func (c *Client) Query(ctx context.Context, req QueryRequest) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query", start, err) }()

	r, err := query.New(query.Input{
		Query:         req.Query,
		TopKInitial:   req.TopKInitial,
		TopKFinal:     req.TopKFinal,
		MinConfidence: req.MinConfidence,
		Temperature:   req.Temperature,
		DomainFilter:  req.DomainFilter,
	}, c.defaults)
	if err != nil {
		return Answer{}, err
	}

	res, err := c.ragSvc.Query(ctx, r)
	if err != nil {
		return Answer{}, err
	}

	id, err := c.historySvc.Record(ctx, req.UserID, r.Text(), &res)
	if err != nil {
		return Answer{}, err
	}
	return resultToAnswer(id, &res), nil
}

func resultToAnswer(id string, r *answer.Result) Answer {
	sources := make([]Source, len(r.Sources()))
	for i, s := range r.Sources() {
		meta := s.Meta()
		sources[i] = Source{
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
	return Answer{
		ID:         id,
		Response:   r.Response(),
		Confidence: r.Confidence(),
		Fallback:   r.IsFallback(),
		Sources:    sources,
		Timings:    Timings(t),
		Warnings:   append([]string(nil), r.Warnings()...),
		LLM:        LLMInfo(r.LLM()),
	}
}

func entryFromDomain(e *domhist.Entry) HistoryEntry {
	sources := make([]Source, len(e.Sources))
	for i, s := range e.Sources {
		sources[i] = Source(s)
	}
	return HistoryEntry{
		ID:         e.ID,
		UserID:     e.UserID,
		Query:      e.Query,
		Response:   e.Response,
		Confidence: e.Confidence,
		Fallback:   e.Fallback,
		LLM:        LLMInfo{Provider: e.LLMProvider, Model: e.LLMModel},
		Sources:    sources,
		Warnings:   e.Warnings,
		CreatedAt:  e.CreatedAt,
	}
}
