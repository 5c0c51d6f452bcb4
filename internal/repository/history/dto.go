package history

import (
	"encoding/json"
	"fmt"
	"time"

	domhist "github.com/kailas-cloud/ragquery/internal/domain/history"
)

// entryDoc is the JSON document stored per query.
type entryDoc struct {
	ID          string                 `json:"query_id"`
	UserID      string                 `json:"user_id"`
	Query       string                 `json:"query"`
	Response    string                 `json:"response_md"`
	Confidence  float64                `json:"confidence"`
	Fallback    bool                   `json:"fallback"`
	LLMProvider string                 `json:"llm_provider"`
	LLMModel    string                 `json:"llm_model"`
	Sources     []domhist.SourceRecord `json:"sources"`
	Warnings    []string               `json:"warnings,omitempty"`
	CreatedAtMs int64                  `json:"created_at"`
}

func entryToJSON(e domhist.Entry) ([]byte, error) {
	doc := entryDoc{
		ID:          e.ID,
		UserID:      e.UserID,
		Query:       e.Query,
		Response:    e.Response,
		Confidence:  e.Confidence,
		Fallback:    e.Fallback,
		LLMProvider: e.LLMProvider,
		LLMModel:    e.LLMModel,
		Sources:     e.Sources,
		Warnings:    e.Warnings,
		CreatedAtMs: e.CreatedAt.UnixMilli(),
	}
	if doc.Sources == nil {
		doc.Sources = []domhist.SourceRecord{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal history entry: %w", err)
	}
	return data, nil
}

func entryFromJSON(data []byte) (domhist.Entry, error) {
	var doc entryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return domhist.Entry{}, fmt.Errorf("unmarshal history entry: %w", err)
	}
	return domhist.Entry{
		ID:          doc.ID,
		UserID:      doc.UserID,
		Query:       doc.Query,
		Response:    doc.Response,
		Confidence:  doc.Confidence,
		Fallback:    doc.Fallback,
		LLMProvider: doc.LLMProvider,
		LLMModel:    doc.LLMModel,
		Sources:     doc.Sources,
		Warnings:    doc.Warnings,
		CreatedAt:   time.UnixMilli(doc.CreatedAtMs).UTC(),
	}, nil
}
