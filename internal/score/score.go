// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score computes the weighted quality score of normalized search
// results. Weights and the credibility tier table come from an explicit
// types.ScoringConfig so callers can substitute alternates.
//
// Overall = Σ weight·sub-score over relevance, credibility, recency,
// completeness, and actionability, each clamped to [0,10].
package score

import (
	"fmt"
	"math"
	"time"

	"github.com/pdiddy/research-agent/pkg/types"
)

const (
	maxScore = 10.0

	// weightTolerance bounds how far the weights may drift from summing to 1.
	weightTolerance = 1e-6
)

// Scorer applies one ScoringConfig. It is safe for concurrent use.
type Scorer struct {
	cfg   types.ScoringConfig
	tiers *tierTable
}

// New validates cfg and returns a Scorer. Zero-valued tuning fields fall
// back to the defaults of types.DefaultScoringConfig.
func New(cfg types.ScoringConfig) (*Scorer, error) {
	w := cfg.Weights
	for name, v := range map[string]float64{
		"relevance":     w.Relevance,
		"credibility":   w.Credibility,
		"recency":       w.Recency,
		"completeness":  w.Completeness,
		"actionability": w.Actionability,
	} {
		if v < 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("invalid %s weight %v", name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return nil, fmt.Errorf("score weights sum to %.6f, want 1.0", sum)
	}

	def := types.DefaultScoringConfig()
	if cfg.RecencyHalfLife <= 0 {
		cfg.RecencyHalfLife = def.RecencyHalfLife
	}
	if cfg.SnippetTarget <= 0 {
		cfg.SnippetTarget = def.SnippetTarget
	}
	if cfg.DefaultCredibility <= 0 {
		cfg.DefaultCredibility = def.DefaultCredibility
	}
	if cfg.UndatedRecency < 0 {
		cfg.UndatedRecency = 0
	}

	return &Scorer{cfg: cfg, tiers: newTierTable(cfg.Tiers, cfg.DefaultCredibility)}, nil
}

// Default returns a Scorer using types.DefaultScoringConfig.
func Default() *Scorer {
	s, err := New(types.DefaultScoringConfig())
	if err != nil {
		panic(err)
	}
	return s
}

// Score computes all sub-scores of n for query as of now.
func (s *Scorer) Score(n types.NormalizedResult, query string, now time.Time) types.ScoredResult {
	r := types.ScoredResult{
		NormalizedResult: n,
		Relevance:        clamp(Relevance(query, n.Title+" "+n.Snippet)),
		Credibility:      clamp(s.tiers.credibility(n.SourceDomain)),
		Recency:          clamp(s.recency(n.PublishedDate, now)),
		Completeness:     clamp(s.completeness(n)),
		Actionability:    clamp(Actionability(n.Title + " " + n.Snippet)),
	}
	r.OverallScore = s.Overall(r)
	return r
}

// ScoreAll scores every result in order.
func (s *Scorer) ScoreAll(results []types.NormalizedResult, query string, now time.Time) []types.ScoredResult {
	out := make([]types.ScoredResult, len(results))
	for i, n := range results {
		out[i] = s.Score(n, query, now)
	}
	return out
}

// Overall returns the weighted sum of r's sub-scores, clamped to [0,10].
func (s *Scorer) Overall(r types.ScoredResult) float64 {
	w := s.cfg.Weights
	return clamp(w.Relevance*r.Relevance +
		w.Credibility*r.Credibility +
		w.Recency*r.Recency +
		w.Completeness*r.Completeness +
		w.Actionability*r.Actionability)
}

// Credibility returns the tier score of domain.
func (s *Scorer) Credibility(domain string) float64 {
	return clamp(s.tiers.credibility(domain))
}

// recency halves every RecencyHalfLife. Future dates count as age zero.
func (s *Scorer) recency(published, now time.Time) float64 {
	if published.IsZero() {
		return s.cfg.UndatedRecency
	}
	age := now.Sub(published)
	if age < 0 {
		age = 0
	}
	halfLives := float64(age) / float64(s.cfg.RecencyHalfLife)
	return maxScore * math.Pow(0.5, halfLives)
}

// completeness: title 2, date 2, snippet up to 6 scaled to SnippetTarget.
func (s *Scorer) completeness(n types.NormalizedResult) float64 {
	var total float64
	if n.Title != "" {
		total += 2
	}
	if !n.PublishedDate.IsZero() {
		total += 2
	}
	ratio := float64(len(n.Snippet)) / float64(s.cfg.SnippetTarget)
	total += 6 * math.Min(1, ratio)
	return total
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > maxScore:
		return maxScore
	}
	return v
}
