package rag

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/ragquery/internal/domain/answer"
)

// Sentinel scores returned before the weighted formula applies.
const (
	NoSourcesConfidence = 0.0
	UncitedConfidence   = 0.1
)

// ScorerConfig holds the confidence formula policy.
type ScorerConfig struct {
	RerankWeight   float64
	CitationWeight float64
	// Penalty is subtracted when the answer contains an uncertainty phrase.
	Penalty float64
	// BaseFloor is the lowest score a cited answer can get from the formula.
	BaseFloor          float64
	UncertaintyPhrases []string
}

// DefaultScorerConfig returns weights 0.6/0.4, penalty 0.4 and floor 0.3.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		RerankWeight:       0.6,
		CitationWeight:     0.4,
		Penalty:            0.4,
		BaseFloor:          0.3,
		UncertaintyPhrases: []string{"not found", "не найдено", "недостаточно информации"},
	}
}

// Validate requires the weights to sum to 1.
func (c ScorerConfig) Validate() error {
	if math.Abs(c.RerankWeight+c.CitationWeight-1) > 1e-9 {
		return fmt.Errorf("confidence weights must sum to 1, got %g + %g", c.RerankWeight, c.CitationWeight)
	}
	if c.BaseFloor < 0 || c.BaseFloor > 1 {
		return fmt.Errorf("confidence base floor must be in [0,1], got %g", c.BaseFloor)
	}
	if c.Penalty < 0 {
		return fmt.Errorf("confidence penalty must be >= 0, got %g", c.Penalty)
	}
	return nil
}

// Breakdown exposes the intermediate values of one score computation.
type Breakdown struct {
	Cited          int
	Total          int
	AvgRerank      float64
	UsedSimilarity bool
	CitationRatio  float64
	Penalty        float64
	Raw            float64
	Confidence     float64
}

// Scorer computes answer confidence.
type Scorer struct {
	cfg     ScorerConfig
	phrases []string
}

// NewScorer creates a scorer. Phrases are matched case-insensitively.
func NewScorer(cfg ScorerConfig) *Scorer {
	phrases := make([]string, 0, len(cfg.UncertaintyPhrases))
	for _, p := range cfg.UncertaintyPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}
	return &Scorer{cfg: cfg, phrases: phrases}
}

// Score returns confidence in [0,1].
func (s *Scorer) Score(sources []answer.Source, text string) float64 {
	return s.Explain(sources, text).Confidence
}

// Explain computes the score along with its components.
func (s *Scorer) Explain(sources []answer.Source, text string) Breakdown {
	b := Breakdown{Total: len(sources)}
	if len(sources) == 0 {
		b.Confidence = NoSourcesConfidence
		return b
	}

	var sumRerank, sumSim float64
	for _, src := range sources {
		if !src.Cited() {
			continue
		}
		b.Cited++
		sumRerank += src.RerankScore()
		sumSim += src.Similarity()
	}
	if b.Cited == 0 {
		b.Confidence = UncitedConfidence
		return b
	}

	b.AvgRerank = sumRerank / float64(b.Cited)
	if b.AvgRerank <= 0 {
		b.AvgRerank = sumSim / float64(b.Cited)
		b.UsedSimilarity = true
	}
	b.CitationRatio = float64(b.Cited) / float64(b.Total)
	if s.uncertain(text) {
		b.Penalty = s.cfg.Penalty
	}

	b.Raw = b.AvgRerank*s.cfg.RerankWeight + b.CitationRatio*s.cfg.CitationWeight - b.Penalty
	b.Confidence = clamp(max(s.cfg.BaseFloor, b.Raw), 0, 1)
	if math.IsNaN(b.Confidence) {
		b.Confidence = 0
	}
	return b
}

func (s *Scorer) uncertain(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range s.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return min(hi, max(lo, v))
}
