package rag

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

// RankBySimilarity uses the vector similarity as the rerank score.
func RankBySimilarity(cands []passage.Candidate) []passage.Ranked {
	out := make([]passage.Ranked, len(cands))
	for i, c := range cands {
		out[i] = passage.Rank(c, c.Similarity())
	}
	sortByRerank(out)
	return out
}

// sortByRerank orders descending by rerank score; ties keep their incoming order.
func sortByRerank(ranked []passage.Ranked) {
	slices.SortStableFunc(ranked, func(a, b passage.Ranked) int {
		return cmp.Compare(b.RerankScore(), a.RerankScore())
	})
}

// rerank scores candidates with the reranker service. Chunks with blank text are
// not sent and score 0.
func (s *Service) rerank(ctx context.Context, query string, cands []passage.Candidate) ([]passage.Ranked, error) {
	if !s.cfg.RerankEnabled || s.reranker == nil {
		return RankBySimilarity(cands), nil
	}

	var (
		texts []string
		pos   []int
	)
	for i, c := range cands {
		if strings.TrimSpace(c.Text()) == "" {
			continue
		}
		texts = append(texts, c.Text())
		pos = append(pos, i)
	}

	scores := make([]float64, len(texts))
	if len(texts) > 0 {
		if err := s.scoreBatches(ctx, query, texts, scores); err != nil {
			return nil, err
		}
	}

	byCandidate := make([]float64, len(cands))
	for j, i := range pos {
		byCandidate[i] = scores[j]
	}

	out := make([]passage.Ranked, len(cands))
	for i, c := range cands {
		out[i] = passage.Rank(c, byCandidate[i])
	}
	sortByRerank(out)
	return out, nil
}

// scoreBatches fills scores (same length as texts) batch by batch. Each batch
// writes its own window of scores.
func (s *Service) scoreBatches(ctx context.Context, query string, texts []string, scores []float64) error {
	size := s.cfg.RerankBatchSize
	if size <= 0 || size > len(texts) {
		size = len(texts)
	}

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(texts); lo += size {
		hi := min(lo+size, len(texts))
		g.Go(func() error {
			return s.pool.do(gctx, func(ctx context.Context) error {
				got, err := s.reranker.Score(ctx, query, texts[lo:hi])
				if err != nil {
					return fmt.Errorf("%w: %w", domain.ErrRerankerError, err)
				}
				if len(got) != hi-lo {
					return fmt.Errorf("%w: got %d scores for %d passages",
						domain.ErrRerankerError, len(got), hi-lo)
				}
				copy(scores[lo:hi], got)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rerank: %w", err)
	}
	return nil
}
