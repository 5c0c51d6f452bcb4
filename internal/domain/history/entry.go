package history

import (
	"time"

	"github.com/kailas-cloud/ragquery/internal/domain/answer"
)

// DefaultUserID is used when a request carries no user identity.
const DefaultUserID = "1"

// SourceRecord is the persisted form of an answer source.
type SourceRecord struct {
	SourceID    int     `json:"source_id"`
	ChunkID     string  `json:"chunk_id"`
	DocumentID  string  `json:"document_id"`
	Title       string  `json:"title,omitempty"`
	URL         string  `json:"url,omitempty"`
	Path        string  `json:"path,omitempty"`
	Domain      string  `json:"domain,omitempty"`
	Similarity  float64 `json:"similarity"`
	RerankScore float64 `json:"rerank_score"`
	Excerpt     string  `json:"excerpt"`
	Cited       bool    `json:"cited"`
}

// Entry is one answered query.
type Entry struct {
	ID          string
	UserID      string
	Query       string
	Response    string
	Confidence  float64
	Fallback    bool
	LLMProvider string
	LLMModel    string
	Sources     []SourceRecord
	Warnings    []string
	CreatedAt   time.Time
}

// FromResult builds a history entry from a pipeline result.
func FromResult(id, userID, query string, r *answer.Result, createdAt time.Time) Entry {
	sources := make([]SourceRecord, len(r.Sources()))
	for i, s := range r.Sources() {
		meta := s.Meta()
		sources[i] = SourceRecord{
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

	return Entry{
		ID:          id,
		UserID:      userID,
		Query:       query,
		Response:    r.Response(),
		Confidence:  r.Confidence(),
		Fallback:    r.IsFallback(),
		LLMProvider: r.LLM().Provider,
		LLMModel:    r.LLM().Model,
		Sources:     sources,
		Warnings:    append([]string(nil), r.Warnings()...),
		CreatedAt:   createdAt.UTC(),
	}
}

// Page is a slice of a user's history, newest first.
type Page struct {
	Entries []Entry
	Total   int
	// Limit and Offset are the effective paging values after defaults and clamping.
	Limit  int
	Offset int
}
