// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"

	"github.com/pdiddy/research-agent/pkg/types"
)

// exaAPIBase is the Exa API root. Declared as a var so tests can
// substitute an httptest server.
var exaAPIBase = "https://api.exa.ai"

const exaDefaultTextChars = 800

// ExaBackend queries the Exa neural search API with page contents.
type ExaBackend struct {
	Client *http.Client
	Config types.ExaConfig
	HTTP   types.HTTPConfig
}

// Name returns the backend identifier.
func (b *ExaBackend) Name() types.Provider { return types.ProviderExa }

// Search posts the query to /search, requesting page text capped at
// TextMaxCharacters.
func (b *ExaBackend) Search(ctx context.Context, query string, fc types.FilterConfig) ([]types.RawResult, error) {
	chars := b.Config.TextMaxCharacters
	if chars <= 0 {
		chars = exaDefaultTextChars
	}

	payload := exaRequest{
		Query:          query,
		NumResults:     fc.Limit(),
		UseAutoprompt:  b.Config.UseAutoprompt,
		IncludeDomains: apiDomains(fc.IncludeDomains),
		ExcludeDomains: apiDomains(fc.ExcludeDomains),
	}
	payload.Contents.Text.MaxCharacters = chars

	var resp exaResponse
	err := postJSON(ctx, b.Client, types.ProviderExa,
		endpoint(b.Config.BaseURL, exaAPIBase, "/search"),
		map[string]string{"x-api-key": b.Config.APIKey},
		b.HTTP, payload, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Exa API JSON structures.
type exaRequest struct {
	Query          string   `json:"query"`
	NumResults     int      `json:"numResults"`
	UseAutoprompt  bool     `json:"useAutoprompt"`
	IncludeDomains []string `json:"includeDomains,omitempty"`
	ExcludeDomains []string `json:"excludeDomains,omitempty"`
	Contents       struct {
		Text struct {
			MaxCharacters int `json:"maxCharacters"`
		} `json:"text"`
	} `json:"contents"`
}

type exaResponse struct {
	RequestID          string            `json:"requestId"`
	AutopromptString   string            `json:"autopromptString"`
	Results            []types.RawResult `json:"results"`
	ResolvedSearchType string            `json:"resolvedSearchType"`
}
