// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package a2a

import (
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// AgentCard describes the agent to other agents discovering it through
// GET /a2a/info.
type AgentCard struct {
	Name           string         `json:"name"`
	Version        string         `json:"version"`
	Description    string         `json:"description"`
	Capabilities   Capabilities   `json:"capabilities"`
	URL            string         `json:"url"`
	Authentication Authentication `json:"authentication"`
	RateLimits     RateLimits     `json:"rate_limits"`
}

// Capabilities lists the skills the agent offers.
type Capabilities struct {
	Skills []Skill `json:"skills"`
}

// Skill is one callable capability and its request parameters.
type Skill struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]Parameter `json:"parameters"`
}

// Parameter documents one field of a skill request.
type Parameter struct {
	Type        string     `json:"type"`
	Required    bool       `json:"required,omitempty"`
	Enum        []string   `json:"enum,omitempty"`
	Default     any        `json:"default,omitempty"`
	Items       *Parameter `json:"items,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Authentication lists the accepted credential schemes.
type Authentication struct {
	Schemes []string `json:"schemes"`
}

// RateLimits advertises the per-client request limits.
type RateLimits struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	RequestsPerHour   int `json:"requests_per_hour"`
}

const skillName = "autonomous_research"

// NewAgentCard builds the card advertised by a server running with cfg.
func NewAgentCard(cfg types.ServerConfig, version string) AgentCard {
	stringList := &Parameter{Type: "string"}
	return AgentCard{
		Name:        "research-agent",
		Version:     version,
		Description: "Research orchestrator. Searches Perplexity, Tavily, and Exa in parallel, scores every source on relevance, credibility, recency, completeness, and actionability, and returns a ranked Markdown report.",
		Capabilities: Capabilities{Skills: []Skill{{
			Name:        skillName,
			Description: "Runs one research query across the configured search providers and returns the filtered, deduplicated, and ranked sources.",
			Parameters: map[string]Parameter{
				"query": {Type: "string", Required: true, Description: "The research topic or question."},
				"search_mode": {
					Type:        "string",
					Enum:        []string{string(types.ModeNormal), string(types.ModeURL), string(types.ModeHybrid)},
					Default:     string(types.ModeNormal),
					Description: "normal searches broadly, url restricts results to domains, hybrid adds perplexity and focuses on domains.",
				},
				"domains":              {Type: "array", Items: stringList, Description: "Domains to restrict to (url) or focus on (hybrid). Supports *.example.org."},
				"exclude_domains":      {Type: "array", Items: stringList, Description: "Domains whose results are dropped."},
				"providers":            {Type: "array", Items: &Parameter{Type: "string", Enum: providerNames()}, Description: "Overrides the providers chosen by search_mode."},
				"max_results_per_tool": {Type: "integer", Default: types.DefaultMaxResults, Description: "Results requested from each provider and kept in the final list."},
				"min_score":            {Type: "number", Default: types.DefaultMinScore, Description: "Minimum overall score (0-10) a result must reach."},
			},
		}}},
		URL:            strings.TrimSuffix(cfg.PublicURL, "/") + "/a2a/task",
		Authentication: Authentication{Schemes: []string{"bearer", "x-api-key"}},
		RateLimits: RateLimits{
			RequestsPerMinute: cfg.RateLimit.PerMinute,
			RequestsPerHour:   cfg.RateLimit.PerHour,
		},
	}
}

func providerNames() []string {
	names := make([]string, len(types.AllProviders))
	for i, p := range types.AllProviders {
		names[i] = string(p)
	}
	return names
}
