package rag

import (
	"slices"

	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

// Select keeps chunks whose rerank score is strictly above floor, then truncates
// to maxCount. The result is numbered 1..n in descending rerank order.
func Select(ranked []passage.Ranked, floor float64, maxCount int) []passage.Final {
	if maxCount <= 0 || len(ranked) == 0 {
		return []passage.Final{}
	}

	sorted := slices.Clone(ranked)
	sortByRerank(sorted)

	kept := make([]passage.Ranked, 0, min(len(sorted), maxCount))
	for _, r := range sorted {
		if !(r.RerankScore() > floor) {
			continue
		}
		kept = append(kept, r)
		if len(kept) == maxCount {
			break
		}
	}
	return passage.Number(kept)
}
