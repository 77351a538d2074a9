// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"

	"github.com/pdiddy/research-agent/pkg/types"
)

// perplexityAPIBase is the Perplexity API root. Declared as a var so tests
// can substitute an httptest server.
var perplexityAPIBase = "https://api.perplexity.ai"

// perplexityMaxResults is the largest max_results the Search API accepts.
const perplexityMaxResults = 20

// PerplexityBackend queries the Perplexity Search API.
type PerplexityBackend struct {
	Client *http.Client
	Config types.PerplexityConfig
	HTTP   types.HTTPConfig
}

// Name returns the backend identifier.
func (b *PerplexityBackend) Name() types.Provider { return types.ProviderPerplexity }

// Search posts the query to /search. Include domains and "-"-prefixed
// exclude domains share the search_domain_filter list.
func (b *PerplexityBackend) Search(ctx context.Context, query string, fc types.FilterConfig) ([]types.RawResult, error) {
	maxResults := fc.Limit()
	if maxResults > perplexityMaxResults {
		maxResults = perplexityMaxResults
	}

	payload := perplexityRequest{
		Query:      query,
		MaxResults: maxResults,
	}
	payload.DomainFilter = apiDomains(fc.IncludeDomains)
	for _, d := range apiDomains(fc.ExcludeDomains) {
		payload.DomainFilter = append(payload.DomainFilter, "-"+d)
	}

	var resp perplexityResponse
	err := postJSON(ctx, b.Client, types.ProviderPerplexity,
		endpoint(b.Config.BaseURL, perplexityAPIBase, "/search"),
		map[string]string{"Authorization": "Bearer " + b.Config.APIKey},
		b.HTTP, payload, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Perplexity API JSON structures.
type perplexityRequest struct {
	Query        string   `json:"query"`
	MaxResults   int      `json:"max_results"`
	DomainFilter []string `json:"search_domain_filter,omitempty"`
}

type perplexityResponse struct {
	ID      string            `json:"id"`
	Results []types.RawResult `json:"results"`
}
