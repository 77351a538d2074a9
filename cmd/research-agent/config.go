// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/research-agent/internal/logging"
	"github.com/pdiddy/research-agent/internal/research"
	"github.com/pdiddy/research-agent/internal/score"
	"github.com/pdiddy/research-agent/internal/search"
	"github.com/pdiddy/research-agent/internal/taskstore"
	"github.com/pdiddy/research-agent/pkg/types"
)

// setDefaults registers every scalar setting so config files and
// RESEARCH_AGENT_* environment variables can override it.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	defaults := map[string]any{
		"http.timeout":                      d.HTTP.Timeout,
		"http.user_agent":                   d.HTTP.UserAgent,
		"http.max_retries":                  d.HTTP.MaxRetries,
		"providers.perplexity.api_key":      "",
		"providers.perplexity.base_url":     d.Providers.Perplexity.BaseURL,
		"providers.tavily.api_key":          "",
		"providers.tavily.base_url":         d.Providers.Tavily.BaseURL,
		"providers.tavily.search_depth":     d.Providers.Tavily.SearchDepth,
		"providers.tavily.include_answer":   d.Providers.Tavily.IncludeAnswer,
		"providers.exa.api_key":             "",
		"providers.exa.base_url":            d.Providers.Exa.BaseURL,
		"providers.exa.use_autoprompt":      d.Providers.Exa.UseAutoprompt,
		"providers.exa.text_max_characters": d.Providers.Exa.TextMaxCharacters,
		"research.provider_timeout":         d.Research.ProviderTimeout,
		"research.max_results_per_tool":     d.Research.MaxResultsPerTool,
		"research.min_score":                d.Research.MinScore,
		"research.default_mode":             string(d.Research.DefaultMode),
		"scoring.weights.relevance":         d.Scoring.Weights.Relevance,
		"scoring.weights.credibility":       d.Scoring.Weights.Credibility,
		"scoring.weights.recency":           d.Scoring.Weights.Recency,
		"scoring.weights.completeness":      d.Scoring.Weights.Completeness,
		"scoring.weights.actionability":     d.Scoring.Weights.Actionability,
		"scoring.default_credibility":       d.Scoring.DefaultCredibility,
		"scoring.recency_half_life":         d.Scoring.RecencyHalfLife,
		"scoring.undated_recency":           d.Scoring.UndatedRecency,
		"scoring.snippet_target":            d.Scoring.SnippetTarget,
		"server.addr":                       d.Server.Addr,
		"server.public_url":                 d.Server.PublicURL,
		"server.api_keys":                   []string{},
		"server.rate_limit.per_minute":      d.Server.RateLimit.PerMinute,
		"server.rate_limit.per_hour":        d.Server.RateLimit.PerHour,
		"store.path":                        d.Store.Path,
		"log.level":                         d.Log.Level,
		"log.format":                        d.Log.Format,
		"log.file":                          d.Log.File,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// loadConfig decodes v over the defaults and fills provider and server
// keys from .secrets/ and the conventional environment variables.
func loadConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	if v.IsSet("scoring.tiers") {
		// A configured tier table replaces the default one entirely.
		cfg.Scoring.Tiers = nil
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	p := &cfg.Providers
	p.Perplexity.APIKey = firstSet(p.Perplexity.APIKey, loadedKeys.Perplexity, os.Getenv("PERPLEXITY_API_KEY"))
	p.Tavily.APIKey = firstSet(p.Tavily.APIKey, loadedKeys.Tavily, os.Getenv("TAVILY_API_KEY"))
	p.Exa.APIKey = firstSet(p.Exa.APIKey, loadedKeys.Exa, os.Getenv("EXA_API_KEY"))

	if len(cfg.Server.APIKeys) == 0 {
		cfg.Server.APIKeys = loadedKeys.A2A
	}
	if len(cfg.Server.APIKeys) == 0 {
		cfg.Server.APIKeys = splitList(os.Getenv("A2A_API_KEYS"))
	}
	cfg.Server.APIKeys = splitList(strings.Join(cfg.Server.APIKeys, ","))
	return cfg, nil
}

// firstSet returns the first non-blank value, trimmed.
func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// splitList splits comma- or newline-separated values, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' }) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func newLogger(cfg types.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log, os.Stderr)
}

// newOrchestrator wires the configured providers and scorer.
func newOrchestrator(cfg types.Config, log *zap.Logger) (*research.Orchestrator, error) {
	scorer, err := score.New(cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}
	backends := search.NewBackends(cfg, &http.Client{Timeout: cfg.HTTP.Timeout})
	if len(backends) == 0 {
		log.Warn("no provider API keys configured: set PERPLEXITY_API_KEY, TAVILY_API_KEY, or EXA_API_KEY")
	}
	return &research.Orchestrator{
		Backends:        backends,
		Scorer:          scorer,
		ProviderTimeout: cfg.Research.ProviderTimeout,
		Defaults:        cfg.Research,
		Logger:          log,
	}, nil
}

// openStore opens the task store, or returns nil when the store is disabled.
func openStore(cfg types.Config) (*taskstore.Store, error) {
	if cfg.Store.Path == "" {
		return nil, nil
	}
	return taskstore.NewStore(cfg.Store.Path)
}

// setup loads config and builds the logger every command needs.
func setup() (types.Config, *zap.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return cfg, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}
