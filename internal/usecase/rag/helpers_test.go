package rag

import (
	"fmt"

	"github.com/kailas-cloud/ragquery/internal/domain/answer"
	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

func cand(id string, text string, sim float64) passage.Candidate {
	return passage.NewCandidate(passage.Meta{
		ChunkID:    id,
		DocumentID: "doc-" + id,
		Title:      "Title " + id,
		URL:        "https://docs.example.com/" + id,
	}, text, sim)
}

func ranked(scores ...float64) []passage.Ranked {
	out := make([]passage.Ranked, len(scores))
	for i, sc := range scores {
		id := fmt.Sprintf("c%d", i)
		out[i] = passage.Rank(cand(id, "text "+id, 0.5), sc)
	}
	return out
}

// sources builds numbered sources; cited lists 1-based positions.
func sources(rr []passage.Ranked, cited ...int) []answer.Source {
	set := make(map[int]bool, len(cited))
	for _, c := range cited {
		set[c] = true
	}
	final := passage.Number(rr)
	out := make([]answer.Source, len(final))
	for i, f := range final {
		out[i] = answer.NewSource(f, set[f.Position()])
	}
	return out
}
