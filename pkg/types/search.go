// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research-agent pipeline:
// provider payloads, normalized and scored results, filter settings, and the
// final research report.
package types

import "time"

// Provider identifies one of the external search APIs.
type Provider string

const (
	ProviderPerplexity Provider = "perplexity"
	ProviderTavily     Provider = "tavily"
	ProviderExa        Provider = "exa"
)

// AllProviders lists every supported provider in canonical dispatch order.
var AllProviders = []Provider{ProviderPerplexity, ProviderTavily, ProviderExa}

func (p Provider) String() string { return string(p) }

// Valid reports whether p names a supported provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderPerplexity, ProviderTavily, ProviderExa:
		return true
	}
	return false
}

// RawResult is a single provider-specific result as decoded from the API
// response. Its shape differs per provider; the normalizer knows the keys.
type RawResult map[string]any

// NormalizedResult is a provider-independent view of one search hit.
type NormalizedResult struct {
	// URL is the result location as returned by the provider.
	URL string `json:"url" yaml:"url"`

	// CanonicalURL is the normalized form of URL used as the dedup key.
	CanonicalURL string `json:"canonical_url" yaml:"canonical_url"`

	Title   string `json:"title" yaml:"title"`
	Snippet string `json:"snippet" yaml:"snippet"`

	// PublishedDate is the zero time when the provider gave no usable date.
	PublishedDate time.Time `json:"published_date,omitempty" yaml:"published_date,omitempty"`

	// SourceDomain is the lower-cased registrable domain of URL (e.g. "arxiv.org").
	SourceDomain string `json:"source_domain" yaml:"source_domain"`

	Provider Provider `json:"provider" yaml:"provider"`
}

// ScoredResult is a NormalizedResult with its quality sub-scores. Every
// score lies in [0,10]. OverallScore is the weighted sum of the five
// sub-scores and is fixed when the result is produced.
type ScoredResult struct {
	NormalizedResult `yaml:",inline"`

	Relevance     float64 `json:"relevance" yaml:"relevance"`
	Credibility   float64 `json:"credibility" yaml:"credibility"`
	Recency       float64 `json:"recency" yaml:"recency"`
	Completeness  float64 `json:"completeness" yaml:"completeness"`
	Actionability float64 `json:"actionability" yaml:"actionability"`
	OverallScore  float64 `json:"overall_score" yaml:"overall_score"`
}

// Default filter values.
const (
	DefaultMinScore   = 6.0
	DefaultMaxResults = 10
)

// FilterConfig controls which scored results survive the rank pipeline.
type FilterConfig struct {
	// IncludeDomains, when non-empty, keeps only results whose source domain
	// matches an entry. A "*." prefix matches the domain and its subdomains.
	IncludeDomains []string `json:"include_domains,omitempty" yaml:"include_domains,omitempty"`

	// ExcludeDomains drops results whose source domain matches an entry.
	ExcludeDomains []string `json:"exclude_domains,omitempty" yaml:"exclude_domains,omitempty"`

	// FocusDomains are passed to domain-targeting providers as a search hint.
	// They do not filter results.
	FocusDomains []string `json:"focus_domains,omitempty" yaml:"focus_domains,omitempty"`

	// MinScore drops results whose overall score is below it.
	MinScore float64 `json:"min_score" yaml:"min_score"`

	// MaxResults caps the result count. Zero or less uses DefaultMaxResults.
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// DefaultFilterConfig returns a FilterConfig with the standard threshold and cap.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinScore:   DefaultMinScore,
		MaxResults: DefaultMaxResults,
	}
}

// Limit returns the effective result cap.
func (c FilterConfig) Limit() int {
	if c.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return c.MaxResults
}

// SearchMode selects which providers a request uses and how domains apply.
type SearchMode string

const (
	ModeNormal SearchMode = "normal"
	ModeURL    SearchMode = "url"
	ModeHybrid SearchMode = "hybrid"
)

// ProviderFailure records a provider that contributed nothing to a report.
type ProviderFailure struct {
	Provider Provider `json:"provider" yaml:"provider"`
	Reason   string   `json:"reason" yaml:"reason"`
	TimedOut bool     `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`
}

// Methodology describes how a report was produced.
type Methodology struct {
	SearchMode     SearchMode `json:"search_mode,omitempty" yaml:"search_mode,omitempty"`
	ToolsUsed      []Provider `json:"tools_used" yaml:"tools_used"`
	DomainsFocused []string   `json:"domains_focused,omitempty" yaml:"domains_focused,omitempty"`

	// Failures lists providers that failed or timed out (partial failure).
	Failures []ProviderFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Notes    []string          `json:"notes,omitempty" yaml:"notes,omitempty"`

	Candidates        int `json:"candidates" yaml:"candidates"`
	Malformed         int `json:"malformed" yaml:"malformed"`
	DuplicatesRemoved int `json:"duplicates_removed" yaml:"duplicates_removed"`
}

// PartialFailure reports whether some, but not all, dispatched providers failed.
func (m Methodology) PartialFailure() bool {
	return len(m.Failures) > 0 && len(m.Failures) < len(m.ToolsUsed)
}

// ResearchReport is the ranked outcome of one research request.
type ResearchReport struct {
	Query   string         `json:"query" yaml:"query"`
	Results []ScoredResult `json:"results" yaml:"results"`

	// Summary is the first synthesized answer a provider returned, if any.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	Methodology Methodology `json:"methodology" yaml:"methodology"`
	GeneratedAt time.Time   `json:"generated_at" yaml:"generated_at"`
}
