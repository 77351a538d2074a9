// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

type tier struct {
	score   float64
	labels  map[string]bool
	domains []string
}

// tierTable resolves a domain to the score of the first matching tier.
type tierTable struct {
	tiers    []tier
	fallback float64
}

func newTierTable(cfg []types.CredibilityTier, fallback float64) *tierTable {
	t := &tierTable{fallback: fallback}
	for _, c := range cfg {
		tr := tier{score: c.Score, labels: make(map[string]bool, len(c.Labels))}
		for _, l := range c.Labels {
			tr.labels[strings.ToLower(strings.Trim(l, ". "))] = true
		}
		for _, d := range c.Domains {
			tr.domains = append(tr.domains, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "*.")))
		}
		t.tiers = append(t.tiers, tr)
	}
	return t
}

func (t *tierTable) credibility(domain string) float64 {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	if domain == "" {
		return t.fallback
	}
	for _, tr := range t.tiers {
		if tr.matches(domain) {
			return tr.score
		}
	}
	return t.fallback
}

// matches checks the allowlist (domain or subdomain) and the label rule:
// the top-level label ("nasa.gov") or the second-level label under a
// two-letter country code ("moh.gov.eg", "ox.ac.uk").
func (tr tier) matches(domain string) bool {
	for _, d := range tr.domains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	if len(tr.labels) == 0 {
		return false
	}
	labels := strings.Split(domain, ".")
	n := len(labels)
	if n >= 2 && tr.labels[labels[n-1]] {
		return true
	}
	if n >= 3 && len(labels[n-1]) == 2 && tr.labels[labels[n-2]] {
		return true
	}
	return false
}
