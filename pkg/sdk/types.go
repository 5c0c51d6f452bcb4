package ragquery

import "time"

// QueryRequest is a question plus optional overrides. Nil fields use the defaults.
type QueryRequest struct {
	Query         string
	UserID        string // empty records under the default user
	TopKInitial   *int
	TopKFinal     *int
	MinConfidence *float64
	Temperature   *float64
	DomainFilter  string
}

// Answer is the pipeline outcome, already recorded in history under ID.
type Answer struct {
	ID         string
	Response   string
	Confidence float64
	Fallback   bool
	Sources    []Source
	Timings    Timings
	Warnings   []string
	LLM        LLMInfo
}

// Source is a passage shown to the model, numbered as it was cited.
type Source struct {
	SourceID    int
	ChunkID     string
	DocumentID  string
	Title       string
	URL         string
	Path        string
	Domain      string
	Similarity  float64
	RerankScore float64
	Excerpt     string
	Cited       bool
}

// Timings is the per-stage latency breakdown.
type Timings struct {
	Embed    time.Duration
	Retrieve time.Duration
	Rerank   time.Duration
	Generate time.Duration
	Total    time.Duration
}

// LLMInfo identifies the model behind an answer.
type LLMInfo struct {
	Provider string
	Model    string
}

// HistoryEntry is one stored answer.
type HistoryEntry struct {
	ID         string
	UserID     string
	Query      string
	Response   string
	Confidence float64
	Fallback   bool
	LLM        LLMInfo
	Sources    []Source
	Warnings   []string
	CreatedAt  time.Time
}

// HistoryPage is a slice of a user's history, newest first.
type HistoryPage struct {
	Entries []HistoryEntry
	Total   int
	// Limit is the page size actually applied.
	Limit  int
	Offset int
}
