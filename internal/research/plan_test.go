// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/pkg/types"
)

func TestPlanModes(t *testing.T) {
	tests := []struct {
		name          string
		req           Request
		wantMode      types.SearchMode
		wantProviders []types.Provider
		wantInclude   []string
		wantFocus     []string
	}{
		{
			name:          "default is normal",
			req:           Request{Query: "q"},
			wantMode:      types.ModeNormal,
			wantProviders: []types.Provider{types.ProviderTavily, types.ProviderExa},
		},
		{
			name:          "url restricts to domains",
			req:           Request{Query: "q", Mode: types.ModeURL, Domains: []string{"https://www.NU.edu.eg/about", " mit.edu "}},
			wantMode:      types.ModeURL,
			wantProviders: []types.Provider{types.ProviderTavily},
			wantInclude:   []string{"nu.edu.eg", "mit.edu"},
		},
		{
			name:          "hybrid focuses without filtering",
			req:           Request{Query: "q", Mode: "HYBRID", Domains: []string{"*.gov"}},
			wantMode:      types.ModeHybrid,
			wantProviders: []types.Provider{types.ProviderPerplexity, types.ProviderTavily, types.ProviderExa},
			wantFocus:     []string{"*.gov"},
		},
		{
			name:          "explicit providers override mode",
			req:           Request{Query: "q", Providers: []types.Provider{"Exa", types.ProviderPerplexity}},
			wantMode:      types.ModeNormal,
			wantProviders: []types.Provider{types.ProviderExa, types.ProviderPerplexity},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planned, err := Plan(tt.req)
			require.NoError(t, err)
			fc := planned.Filter
			assert.Equal(t, tt.wantMode, planned.Mode)
			assert.Equal(t, tt.wantProviders, planned.Providers)
			assert.Equal(t, tt.wantInclude, fc.IncludeDomains)
			assert.Equal(t, tt.wantFocus, fc.FocusDomains)
			assert.Equal(t, types.DefaultMinScore, fc.MinScore)
			assert.Equal(t, types.DefaultMaxResults, fc.MaxResults)
		})
	}
}

func TestPlanOverrides(t *testing.T) {
	threshold := 7.5
	planned, err := Plan(Request{
		Query:             "q",
		MaxResultsPerTool: 3,
		MinScore:          &threshold,
		ExcludeDomains:    []string{"Reddit.com", ""},
	})
	require.NoError(t, err)
	fc := planned.Filter
	assert.Equal(t, 3, fc.MaxResults)
	assert.Equal(t, 7.5, fc.MinScore)
	assert.Equal(t, []string{"reddit.com"}, fc.ExcludeDomains)

	zero := 0.0
	planned, err = Plan(Request{Query: "q", MinScore: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0.0, planned.Filter.MinScore)
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"empty query", Request{Query: " "}, ErrEmptyQuery},
		{"url without domains", Request{Query: "q", Mode: types.ModeURL}, ErrDomainsRequired},
		{"hybrid without domains", Request{Query: "q", Mode: types.ModeHybrid, Domains: []string{" "}}, ErrDomainsRequired},
		{"unknown mode", Request{Query: "q", Mode: "deep"}, ErrUnknownMode},
		{"unknown provider", Request{Query: "q", Providers: []types.Provider{"bing"}}, ErrUnknownProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseProviders(t *testing.T) {
	got, err := ParseProviders([]string{"tavily", " EXA ", ""})
	require.NoError(t, err)
	assert.Equal(t, []types.Provider{types.ProviderTavily, types.ProviderExa}, got)

	_, err = ParseProviders([]string{"google"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
