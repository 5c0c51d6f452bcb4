package rag

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

func TestBuildPrompt_Blocks(t *testing.T) {
	final := passage.Number([]passage.Ranked{
		passage.Rank(cand("a", "alpha text", 0.9), 0.9),
		passage.Rank(cand("b", "beta text", 0.8), 0.8),
	})

	got := BuildPrompt("what is alpha?", final)

	want := "[SOURCE 1] (Title: Title a, URL: https://docs.example.com/a)\nalpha text" +
		"\n\n---\n\n" +
		"[SOURCE 2] (Title: Title b, URL: https://docs.example.com/b)\nbeta text"
	if !strings.Contains(got, want) {
		t.Errorf("prompt missing rendered sources:\n%s", got)
	}
	if !strings.Contains(got, "what is alpha?") {
		t.Error("prompt missing question")
	}
}

func TestBuildPrompt_Rules(t *testing.T) {
	got := BuildPrompt("q", nil)
	for _, want := range []string{
		"Do not invent",
		"[SOURCE 1]",
		"[SOURCE 1, 2]",
		"Paraphrase",
		`"` + NotFoundAnswer + `"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	final := passage.Number(ranked(0.9, 0.8, 0.75))
	if BuildPrompt("q", final) != BuildPrompt("q", final) {
		t.Error("prompt differs between calls")
	}
}

func TestRenderSources_UnknownMeta(t *testing.T) {
	c := passage.NewCandidate(passage.Meta{ChunkID: "x"}, "body", 0.9)
	got := RenderSources(passage.Number([]passage.Ranked{passage.Rank(c, 0.9)}))
	if got != "[SOURCE 1] (Title: unknown, URL: unknown)\nbody" {
		t.Errorf("got %q", got)
	}
}
