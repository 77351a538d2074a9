// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search implements the provider clients that turn a query and a
// filter config into raw, provider-specific result payloads. Each provider
// (Perplexity, Tavily, Exa) implements Backend; the research orchestrator
// fans out to them and owns normalization, scoring, and ranking.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Backend searches a single provider API.
type Backend interface {
	Name() types.Provider
	Search(ctx context.Context, query string, fc types.FilterConfig) ([]types.RawResult, error)
}

// Answerer is implemented by backends whose API can also return a short
// synthesized answer next to the results.
type Answerer interface {
	SearchWithAnswer(ctx context.Context, query string, fc types.FilterConfig) ([]types.RawResult, string, error)
}

// maxErrorBody bounds how much of a failed response body is kept in an APIError.
const maxErrorBody = 512

// APIError is returned when a provider answers with a non-2xx status.
type APIError struct {
	Provider   types.Provider
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API returned HTTP %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API returned HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// NewBackends builds a backend for every provider that has an API key.
// Providers without a key are omitted; the orchestrator reports them as
// not configured when a request names them.
func NewBackends(cfg types.Config, client *http.Client) map[types.Provider]Backend {
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTP.Timeout}
	}
	backends := make(map[types.Provider]Backend)
	if cfg.Providers.Perplexity.APIKey != "" {
		backends[types.ProviderPerplexity] = &PerplexityBackend{
			Client: client, Config: cfg.Providers.Perplexity, HTTP: cfg.HTTP,
		}
	}
	if cfg.Providers.Tavily.APIKey != "" {
		backends[types.ProviderTavily] = &TavilyBackend{
			Client: client, Config: cfg.Providers.Tavily, HTTP: cfg.HTTP,
		}
	}
	if cfg.Providers.Exa.APIKey != "" {
		backends[types.ProviderExa] = &ExaBackend{
			Client: client, Config: cfg.Providers.Exa, HTTP: cfg.HTTP,
		}
	}
	return backends
}

// postJSON sends payload to endpoint with retry on 429/503 and decodes
// the JSON response into out.
func postJSON(ctx context.Context, client *http.Client, provider types.Provider, endpoint string, headers map[string]string, httpCfg types.HTTPConfig, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if httpCfg.UserAgent != "" {
		req.Header.Set("User-Agent", httpCfg.UserAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, httpCfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("%s API request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing %s response: %w", provider, err)
	}
	return nil
}

// endpoint joins a base URL and path, tolerating a trailing slash on base.
func endpoint(base, fallback, path string) string {
	if strings.TrimSpace(base) == "" {
		base = fallback
	}
	return strings.TrimRight(strings.TrimSpace(base), "/") + path
}

// apiDomains strips the "*." wildcard prefix, which provider APIs do not
// understand; they already match subdomains of a plain domain.
func apiDomains(domains []string) []string {
	if len(domains) == 0 {
		return nil
	}
	out := make([]string, 0, len(domains))
	seen := make(map[string]bool)
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "*."))
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// mergeDomains returns the distinct union of a and b in order.
func mergeDomains(a, b []string) []string {
	return apiDomains(append(append([]string(nil), a...), b...))
}
