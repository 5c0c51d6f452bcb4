package rag

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

func TestRankBySimilarity_StableDescending(t *testing.T) {
	got := RankBySimilarity([]passage.Candidate{
		cand("a", "a", 0.7), cand("b", "b", 0.9), cand("c", "c", 0.7),
	})
	ids := []string{got[0].ChunkID(), got[1].ChunkID(), got[2].ChunkID()}
	if !slices.Equal(ids, []string{"b", "a", "c"}) {
		t.Errorf("order = %v", ids)
	}
}

func TestRerank_Batches(t *testing.T) {
	var cands []passage.Candidate
	scores := map[string]float64{}
	for i := range 5 {
		text := fmt.Sprintf("p%d", i)
		cands = append(cands, cand(text, text, 0.5))
		scores[text] = float64(i) / 10
	}
	rr := &mockReranker{scores: scores}
	cfg := DefaultConfig()
	cfg.RerankBatchSize = 2
	svc := New(&mockEmbedder{}, &mockSearcher{}, rr, &mockGenerator{}, cfg)

	got, err := svc.rerank(context.Background(), "q", cands)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rr.calls) != 3 {
		t.Errorf("calls = %d, want 3", len(rr.calls))
	}
	for _, c := range rr.calls {
		if len(c) > 2 {
			t.Errorf("batch too large: %v", c)
		}
	}
	for i, r := range got {
		want := fmt.Sprintf("p%d", 4-i)
		if r.ChunkID() != want {
			t.Errorf("position %d = %s, want %s", i, r.ChunkID(), want)
		}
		if r.RerankScore() != scores[r.ChunkID()] {
			t.Errorf("%s score = %v, want %v", r.ChunkID(), r.RerankScore(), scores[r.ChunkID()])
		}
	}
}

func TestRerank_AllEmptySkipsPort(t *testing.T) {
	rr := &mockReranker{}
	svc := New(&mockEmbedder{}, &mockSearcher{}, rr, &mockGenerator{}, DefaultConfig())

	got, err := svc.rerank(context.Background(), "q", []passage.Candidate{cand("a", "  ", 0.9), cand("b", "", 0.8)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rr.calls) != 0 {
		t.Error("reranker called with no passages")
	}
	for _, r := range got {
		if r.RerankScore() != 0 {
			t.Errorf("%s score = %v, want 0", r.ChunkID(), r.RerankScore())
		}
	}
	if got[0].ChunkID() != "a" {
		t.Errorf("tie order changed: %s first", got[0].ChunkID())
	}
}

func TestRerank_BlankPassagesKeepScoresAligned(t *testing.T) {
	rr := &mockReranker{scores: map[string]float64{"x": 0.9, "y": 0.2}}
	svc := New(&mockEmbedder{}, &mockSearcher{}, rr, &mockGenerator{}, DefaultConfig())

	got, err := svc.rerank(context.Background(), "q", []passage.Candidate{
		cand("e", "  ", 0.9), cand("y", "y", 0.8), cand("x", "x", 0.1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent := rr.sent(); !slices.Equal(sent, []string{"y", "x"}) {
		t.Errorf("sent = %v, want [y x]", sent)
	}

	want := map[string]float64{"x": 0.9, "y": 0.2, "e": 0}
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.ChunkID()
		if r.RerankScore() != want[r.ChunkID()] {
			t.Errorf("%s score = %v, want %v", r.ChunkID(), r.RerankScore(), want[r.ChunkID()])
		}
	}
	if !slices.Equal(ids, []string{"x", "y", "e"}) {
		t.Errorf("order = %v, want [x y e]", ids)
	}
}
