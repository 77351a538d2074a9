// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank filters, deduplicates, thresholds, sorts, and truncates
// scored results. The pipeline is deterministic and idempotent: running it
// on its own output with the same config returns the same sequence.
package rank

import (
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Output holds the ranked results and per-step drop counts.
type Output struct {
	Results           []types.ScoredResult
	Excluded          int
	DuplicatesRemoved int
	BelowThreshold    int
	Truncated         int
}

// Apply runs the domain filter, dedup, score threshold, sort, and truncate
// steps in that order. An empty result is not an error.
func Apply(results []types.ScoredResult, cfg types.FilterConfig) Output {
	var out Output

	kept, excluded := filterDomains(results, cfg.IncludeDomains, cfg.ExcludeDomains)
	out.Excluded = excluded

	deduped, removed := deduplicate(kept)
	out.DuplicatesRemoved = removed

	passing := deduped[:0]
	for _, r := range deduped {
		if r.OverallScore < cfg.MinScore {
			out.BelowThreshold++
			continue
		}
		passing = append(passing, r)
	}

	sortResults(passing)

	if limit := cfg.Limit(); len(passing) > limit {
		out.Truncated = len(passing) - limit
		passing = passing[:limit]
	}
	out.Results = passing
	return out
}

// Rank returns only the ranked results of Apply.
func Rank(results []types.ScoredResult, cfg types.FilterConfig) []types.ScoredResult {
	return Apply(results, cfg).Results
}

// filterDomains returns a fresh slice so callers' input is never reordered.
func filterDomains(results []types.ScoredResult, include, exclude []string) ([]types.ScoredResult, int) {
	kept := make([]types.ScoredResult, 0, len(results))
	dropped := 0
	for _, r := range results {
		if matchResult(r, exclude) {
			dropped++
			continue
		}
		if len(include) > 0 && !matchResult(r, include) {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// matchResult checks the registrable domain with MatchDomain and the URL's
// host with MatchHost, so "docs.python.org" selects that site even though
// its source domain is python.org.
func matchResult(r types.ScoredResult, patterns []string) bool {
	if MatchAny(r.SourceDomain, patterns) {
		return true
	}
	host := hostOf(r)
	if host == "" {
		return false
	}
	for _, p := range patterns {
		if MatchHost(host, p) {
			return true
		}
	}
	return false
}

func hostOf(r types.ScoredResult) string {
	raw := r.URL
	if raw == "" {
		raw = r.CanonicalURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// MatchHost reports whether host equals the pattern's domain or is a
// subdomain of it. A leading "*." on the pattern is ignored.
func MatchHost(host, pattern string) bool {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	pattern = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(pattern), "."))
	pattern = strings.TrimPrefix(pattern, "*.")
	if host == "" || pattern == "" {
		return false
	}
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}

// MatchAny reports whether domain matches one of patterns.
func MatchAny(domain string, patterns []string) bool {
	for _, p := range patterns {
		if MatchDomain(domain, p) {
			return true
		}
	}
	return false
}

// MatchDomain compares case-insensitively. A "*.example.com" pattern
// matches example.com and any subdomain; other patterns match exactly.
func MatchDomain(domain, pattern string) bool {
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	pattern = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(pattern), "."))
	if domain == "" || pattern == "" {
		return false
	}
	if base, ok := strings.CutPrefix(pattern, "*."); ok {
		return domain == base || strings.HasSuffix(domain, "."+base)
	}
	return domain == pattern
}

// deduplicate keeps one result per canonical URL. A later duplicate with a
// strictly higher score replaces the kept one in place, so ties keep the
// first-seen entry and its position.
func deduplicate(results []types.ScoredResult) ([]types.ScoredResult, int) {
	seen := make(map[string]int) // dedup key → index in deduped
	deduped := make([]types.ScoredResult, 0, len(results))
	removed := 0

	for _, r := range results {
		key := dedupKey(r)
		if idx, ok := seen[key]; ok {
			if r.OverallScore > deduped[idx].OverallScore {
				deduped[idx] = r
			}
			removed++
			continue
		}
		seen[key] = len(deduped)
		deduped = append(deduped, r)
	}
	return deduped, removed
}

func dedupKey(r types.ScoredResult) string {
	if r.CanonicalURL != "" {
		return r.CanonicalURL
	}
	return r.URL
}

// sortResults orders by score desc, then date desc (undated last), then
// input order.
func sortResults(results []types.ScoredResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		return a.PublishedDate.After(b.PublishedDate)
	})
}
