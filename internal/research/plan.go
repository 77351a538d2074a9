// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"fmt"
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Request is a research request as received from the CLI or the A2A
// endpoint. Zero values select defaults.
type Request struct {
	Query string `json:"query" yaml:"query"`

	// Mode selects providers and how Domains apply (default normal).
	Mode types.SearchMode `json:"search_mode,omitempty" yaml:"search_mode,omitempty"`

	// Domains are required by url and hybrid modes.
	Domains []string `json:"domains,omitempty" yaml:"domains,omitempty"`

	// ExcludeDomains are dropped in every mode.
	ExcludeDomains []string `json:"exclude_domains,omitempty" yaml:"exclude_domains,omitempty"`

	// Providers, when set, replace the mode's provider set in the given order.
	Providers []types.Provider `json:"providers,omitempty" yaml:"providers,omitempty"`

	// MaxResultsPerTool caps each provider's results and the final list (default 10).
	MaxResultsPerTool int `json:"max_results_per_tool,omitempty" yaml:"max_results_per_tool,omitempty"`

	// MinScore overrides the default threshold of 6.0 when non-nil.
	MinScore *float64 `json:"min_score,omitempty" yaml:"min_score,omitempty"`
}

// modeProviders is the provider set of each search mode in dispatch order.
var modeProviders = map[types.SearchMode][]types.Provider{
	types.ModeNormal: {types.ProviderTavily, types.ProviderExa},
	types.ModeURL:    {types.ProviderTavily},
	types.ModeHybrid: {types.ProviderPerplexity, types.ProviderTavily, types.ProviderExa},
}

// ParseMode validates a search mode name. Empty selects normal.
func ParseMode(s string) (types.SearchMode, error) {
	m := types.SearchMode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return types.ModeNormal, nil
	}
	if _, ok := modeProviders[m]; !ok {
		return "", fmt.Errorf("%w %q (want normal, url, or hybrid)", ErrUnknownMode, s)
	}
	return m, nil
}

// ParseProviders validates provider names.
func ParseProviders(names []string) ([]types.Provider, error) {
	var out []types.Provider
	for _, n := range names {
		p := types.Provider(strings.ToLower(strings.TrimSpace(n)))
		if p == "" {
			continue
		}
		if !p.Valid() {
			return nil, fmt.Errorf("%w %q", ErrUnknownProvider, n)
		}
		out = append(out, p)
	}
	return out, nil
}

// Planned is a request resolved into what to dispatch.
type Planned struct {
	Mode      types.SearchMode
	Providers []types.Provider
	Filter    types.FilterConfig
}

// Plan resolves req into its search mode, the providers to dispatch, and
// the filter config.
//
//   - normal: tavily and exa, no domain restriction.
//   - url: tavily only, results restricted to Domains.
//   - hybrid: all three providers; Domains focus tavily's search but do
//     not filter results.
func Plan(req Request) (Planned, error) {
	if strings.TrimSpace(req.Query) == "" {
		return Planned{}, ErrEmptyQuery
	}
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return Planned{}, err
	}

	fc := types.DefaultFilterConfig()
	if req.MaxResultsPerTool > 0 {
		fc.MaxResults = req.MaxResultsPerTool
	}
	if req.MinScore != nil {
		fc.MinScore = *req.MinScore
	}
	fc.ExcludeDomains = cleanDomains(req.ExcludeDomains)

	domains := cleanDomains(req.Domains)
	switch mode {
	case types.ModeURL:
		if len(domains) == 0 {
			return Planned{}, fmt.Errorf("%w: %s", ErrDomainsRequired, mode)
		}
		fc.IncludeDomains = domains
	case types.ModeHybrid:
		if len(domains) == 0 {
			return Planned{}, fmt.Errorf("%w: %s", ErrDomainsRequired, mode)
		}
		fc.FocusDomains = domains
	}

	providers := append([]types.Provider(nil), modeProviders[mode]...)
	if len(req.Providers) > 0 {
		names := make([]string, len(req.Providers))
		for i, p := range req.Providers {
			names[i] = string(p)
		}
		if providers, err = ParseProviders(names); err != nil {
			return Planned{}, err
		}
	}
	if len(providers) == 0 {
		return Planned{}, ErrNoProviders
	}
	return Planned{Mode: mode, Providers: providers, Filter: fc}, nil
}

// cleanDomains lower-cases and trims domain entries, dropping blanks, a
// leading "www." and any URL scheme or path a caller pasted in.
func cleanDomains(domains []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if i := strings.Index(d, "://"); i >= 0 {
			d = d[i+3:]
		}
		if i := strings.IndexAny(d, "/?#"); i >= 0 {
			d = d[:i]
		}
		d = strings.TrimPrefix(strings.TrimSuffix(d, "."), "www.")
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
