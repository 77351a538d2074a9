// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// tavilyAPIBase is the Tavily API root. Declared as a var so tests can
// substitute an httptest server.
var tavilyAPIBase = "https://api.tavily.com"

const (
	tavilyDefaultDepth = "advanced"
	tavilyMaxResults   = 20
)

// TavilyBackend queries the Tavily Search API. It is the domain-targeting
// provider: FocusDomains are sent as include_domains alongside IncludeDomains.
type TavilyBackend struct {
	Client *http.Client
	Config types.TavilyConfig
	HTTP   types.HTTPConfig
}

// Name returns the backend identifier.
func (b *TavilyBackend) Name() types.Provider { return types.ProviderTavily }

// Search posts the query to /search.
func (b *TavilyBackend) Search(ctx context.Context, query string, fc types.FilterConfig) ([]types.RawResult, error) {
	results, _, err := b.SearchWithAnswer(ctx, query, fc)
	return results, err
}

// SearchWithAnswer is Search that also returns Tavily's answer when
// Config.IncludeAnswer is set.
func (b *TavilyBackend) SearchWithAnswer(ctx context.Context, query string, fc types.FilterConfig) ([]types.RawResult, string, error) {
	depth := b.Config.SearchDepth
	if depth == "" {
		depth = tavilyDefaultDepth
	}
	maxResults := fc.Limit()
	if maxResults > tavilyMaxResults {
		maxResults = tavilyMaxResults
	}

	payload := tavilyRequest{
		Query:          query,
		SearchDepth:    depth,
		MaxResults:     maxResults,
		IncludeAnswer:  b.Config.IncludeAnswer,
		IncludeDomains: mergeDomains(fc.IncludeDomains, fc.FocusDomains),
		ExcludeDomains: apiDomains(fc.ExcludeDomains),
	}

	var resp tavilyResponse
	err := postJSON(ctx, b.Client, types.ProviderTavily,
		endpoint(b.Config.BaseURL, tavilyAPIBase, "/search"),
		map[string]string{"Authorization": "Bearer " + b.Config.APIKey},
		b.HTTP, payload, &resp)
	if err != nil {
		return nil, "", err
	}
	return resp.Results, strings.TrimSpace(resp.Answer), nil
}

// Tavily API JSON structures.
type tavilyRequest struct {
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeAnswer  bool     `json:"include_answer"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

type tavilyResponse struct {
	Query        string            `json:"query"`
	Answer       string            `json:"answer"`
	Results      []types.RawResult `json:"results"`
	ResponseTime float64           `json:"response_time"`
}
