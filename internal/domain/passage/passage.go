// Package passage holds the retrieval refinement chain:
// Candidate (vector search) -> Ranked (second-stage score) -> Final (selected, numbered).
// Each stage wraps the previous value and never changes it.
package passage

// Meta holds the descriptive attributes of a chunk.
type Meta struct {
	ChunkID    string
	DocumentID string
	Title      string
	URL        string
	Path       string
	Domain     string
}

// SimilarityFromDistance converts a vector distance into a similarity score.
func SimilarityFromDistance(distance float64) float64 {
	return max(0, 1-distance)
}

// Candidate is a chunk returned by nearest-neighbour search.
type Candidate struct {
	meta       Meta
	text       string
	similarity float64
}

// NewCandidate creates a search candidate.
func NewCandidate(meta Meta, text string, similarity float64) Candidate {
	return Candidate{meta: meta, text: text, similarity: similarity}
}

// Meta returns the chunk attributes.
func (c Candidate) Meta() Meta { return c.meta }

// ChunkID returns the chunk identifier.
func (c Candidate) ChunkID() string { return c.meta.ChunkID }

// DocumentID returns the parent document identifier.
func (c Candidate) DocumentID() string { return c.meta.DocumentID }

// Title returns the parent document title.
func (c Candidate) Title() string { return c.meta.Title }

// URL returns the parent document source URL.
func (c Candidate) URL() string { return c.meta.URL }

// Text returns the chunk text.
func (c Candidate) Text() string { return c.text }

// Similarity returns the vector similarity in [0,1].
func (c Candidate) Similarity() float64 { return c.similarity }

// Ranked is a candidate with a second-stage relevance score.
type Ranked struct {
	Candidate
	rerankScore float64
}

// Rank attaches a rerank score to a candidate.
func Rank(c Candidate, score float64) Ranked {
	return Ranked{Candidate: c, rerankScore: score}
}

// RerankScore returns the second-stage relevance score.
func (r Ranked) RerankScore() float64 { return r.rerankScore }

// Final is a ranked candidate chosen for the prompt. Position is 1-based and is
// the N in "[SOURCE N]".
type Final struct {
	Ranked
	position int
}

// Number assigns 1-based positions to ranked candidates in the given order.
func Number(ranked []Ranked) []Final {
	out := make([]Final, len(ranked))
	for i, r := range ranked {
		out[i] = Final{Ranked: r, position: i + 1}
	}
	return out
}

// Position returns the 1-based source number.
func (f Final) Position() int { return f.position }

// Filter narrows nearest-neighbour search. Zero value matches everything.
type Filter struct {
	Domain string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool { return f.Domain == "" }
