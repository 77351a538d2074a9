package types

import "time"

// HTTPConfig holds shared HTTP settings used by the provider clients.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-agent/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on HTTP 429/503 responses (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// PerplexityConfig holds settings for the Perplexity search client.
type PerplexityConfig struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
}

// TavilyConfig holds settings for the Tavily search client.
type TavilyConfig struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// SearchDepth is "basic" or "advanced" (default "advanced").
	SearchDepth string `json:"search_depth" yaml:"search_depth" mapstructure:"search_depth"`

	// IncludeAnswer asks Tavily for a short synthesized answer, reported as
	// the report's summary (default true).
	IncludeAnswer bool `json:"include_answer" yaml:"include_answer" mapstructure:"include_answer"`
}

// ExaConfig holds settings for the Exa search client.
type ExaConfig struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// UseAutoprompt lets Exa rewrite the query for neural search (default true).
	UseAutoprompt bool `json:"use_autoprompt" yaml:"use_autoprompt" mapstructure:"use_autoprompt"`

	// TextMaxCharacters caps the page text Exa returns per result (default 800).
	TextMaxCharacters int `json:"text_max_characters" yaml:"text_max_characters" mapstructure:"text_max_characters"`
}

// ProvidersConfig groups the per-provider client settings.
type ProvidersConfig struct {
	Perplexity PerplexityConfig `json:"perplexity" yaml:"perplexity" mapstructure:"perplexity"`
	Tavily     TavilyConfig     `json:"tavily" yaml:"tavily" mapstructure:"tavily"`
	Exa        ExaConfig        `json:"exa" yaml:"exa" mapstructure:"exa"`
}

// ResearchConfig holds orchestrator settings.
type ResearchConfig struct {
	// ProviderTimeout bounds each provider call (default 30s).
	ProviderTimeout time.Duration `json:"provider_timeout" yaml:"provider_timeout" mapstructure:"provider_timeout"`

	// MaxResultsPerTool is the default per-provider and final result cap (default 10).
	MaxResultsPerTool int `json:"max_results_per_tool" yaml:"max_results_per_tool" mapstructure:"max_results_per_tool"`

	// MinScore is the default overall-score threshold (default 6.0).
	MinScore float64 `json:"min_score" yaml:"min_score" mapstructure:"min_score"`

	// DefaultMode is used when a request names no search mode (default "normal").
	DefaultMode SearchMode `json:"default_mode" yaml:"default_mode" mapstructure:"default_mode"`
}

// ScoreWeights are the multipliers of the five sub-scores. They must sum to 1.
type ScoreWeights struct {
	Relevance     float64 `json:"relevance" yaml:"relevance" mapstructure:"relevance"`
	Credibility   float64 `json:"credibility" yaml:"credibility" mapstructure:"credibility"`
	Recency       float64 `json:"recency" yaml:"recency" mapstructure:"recency"`
	Completeness  float64 `json:"completeness" yaml:"completeness" mapstructure:"completeness"`
	Actionability float64 `json:"actionability" yaml:"actionability" mapstructure:"actionability"`
}

// Sum returns the total of all weights.
func (w ScoreWeights) Sum() float64 {
	return w.Relevance + w.Credibility + w.Recency + w.Completeness + w.Actionability
}

// CredibilityTier assigns Score to any domain matching one of Domains (the
// domain itself or a subdomain) or ending in one of the Labels as a
// top-level or second-level label (e.g. "gov" matches "nasa.gov" and
// "moh.gov.eg").
type CredibilityTier struct {
	Name    string   `json:"name" yaml:"name" mapstructure:"name"`
	Score   float64  `json:"score" yaml:"score" mapstructure:"score"`
	Labels  []string `json:"labels,omitempty" yaml:"labels,omitempty" mapstructure:"labels"`
	Domains []string `json:"domains,omitempty" yaml:"domains,omitempty" mapstructure:"domains"`
}

// ScoringConfig holds every constant of the scoring engine.
type ScoringConfig struct {
	Weights ScoreWeights `json:"weights" yaml:"weights" mapstructure:"weights"`

	// Tiers are checked in order; the first match wins.
	Tiers []CredibilityTier `json:"tiers" yaml:"tiers" mapstructure:"tiers"`

	// DefaultCredibility applies to domains matching no tier (default 2).
	DefaultCredibility float64 `json:"default_credibility" yaml:"default_credibility" mapstructure:"default_credibility"`

	// RecencyHalfLife is the age at which recency drops to half (default 365 days).
	RecencyHalfLife time.Duration `json:"recency_half_life" yaml:"recency_half_life" mapstructure:"recency_half_life"`

	// UndatedRecency is the recency score for results without a date (default 5).
	UndatedRecency float64 `json:"undated_recency" yaml:"undated_recency" mapstructure:"undated_recency"`

	// SnippetTarget is the snippet length that earns full snippet credit (default 400).
	SnippetTarget int `json:"snippet_target" yaml:"snippet_target" mapstructure:"snippet_target"`
}

// DefaultScoringConfig returns the production weights and credibility table.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: ScoreWeights{
			Relevance:     0.35,
			Credibility:   0.25,
			Recency:       0.15,
			Completeness:  0.15,
			Actionability: 0.10,
		},
		Tiers: []CredibilityTier{
			{
				Name:   "institutional",
				Score:  10,
				Labels: []string{"gov", "edu", "mil", "ac"},
				Domains: []string{
					"nature.com", "science.org", "sciencedirect.com", "springer.com",
					"wiley.com", "cell.com", "thelancet.com", "nejm.org", "jamanetwork.com",
					"bmj.com", "plos.org", "pnas.org", "ieee.org", "acm.org", "arxiv.org",
					"tandfonline.com", "sagepub.com", "oup.com", "cambridge.org", "frontiersin.org",
					"mdpi.com", "biorxiv.org", "medrxiv.org", "who.int", "oecd.org", "worldbank.org",
				},
			},
			{
				Name:  "news",
				Score: 5,
				Domains: []string{
					"reuters.com", "apnews.com", "bbc.com", "bbc.co.uk", "nytimes.com", "wsj.com",
					"ft.com", "economist.com", "theguardian.com", "bloomberg.com", "washingtonpost.com",
					"npr.org", "cnbc.com", "forbes.com", "axios.com", "techcrunch.com", "wired.com",
					"arstechnica.com", "theverge.com", "aljazeera.com",
				},
			},
		},
		DefaultCredibility: 2,
		RecencyHalfLife:    365 * 24 * time.Hour,
		UndatedRecency:     5,
		SnippetTarget:      400,
	}
}

// RateLimitConfig bounds requests per client on the A2A server.
type RateLimitConfig struct {
	PerMinute int `json:"per_minute" yaml:"per_minute" mapstructure:"per_minute"`
	PerHour   int `json:"per_hour" yaml:"per_hour" mapstructure:"per_hour"`
}

// ServerConfig holds A2A server settings.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// PublicURL is the externally reachable base URL advertised in the agent card.
	PublicURL string `json:"public_url" yaml:"public_url" mapstructure:"public_url"`

	// APIKeys are accepted as bearer tokens or X-API-Key values. Empty disables auth.
	APIKeys []string `json:"api_keys,omitempty" yaml:"api_keys,omitempty" mapstructure:"api_keys"`

	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`
}

// StoreConfig locates the task store database.
type StoreConfig struct {
	// Path is the SQLite file (default "data/tasks.db"). Empty disables the store.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	// Level is debug, info, warn, or error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "json" or "console" (default console).
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// File, when set, receives a copy of every log line with rotation.
	File string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// Config groups all settings of the research agent.
type Config struct {
	HTTP      HTTPConfig      `json:"http" yaml:"http" mapstructure:"http"`
	Providers ProvidersConfig `json:"providers" yaml:"providers" mapstructure:"providers"`
	Research  ResearchConfig  `json:"research" yaml:"research" mapstructure:"research"`
	Scoring   ScoringConfig   `json:"scoring" yaml:"scoring" mapstructure:"scoring"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns a Config populated with the standard defaults.
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:    30 * time.Second,
			UserAgent:  "research-agent/0.1",
			MaxRetries: 3,
		},
		Providers: ProvidersConfig{
			Perplexity: PerplexityConfig{BaseURL: "https://api.perplexity.ai"},
			Tavily:     TavilyConfig{BaseURL: "https://api.tavily.com", SearchDepth: "advanced", IncludeAnswer: true},
			Exa:        ExaConfig{BaseURL: "https://api.exa.ai", UseAutoprompt: true, TextMaxCharacters: 800},
		},
		Research: ResearchConfig{
			ProviderTimeout:   30 * time.Second,
			MaxResultsPerTool: DefaultMaxResults,
			MinScore:          DefaultMinScore,
			DefaultMode:       ModeNormal,
		},
		Scoring: DefaultScoringConfig(),
		Server: ServerConfig{
			Addr:      ":8080",
			PublicURL: "http://localhost:8080",
			RateLimit: RateLimitConfig{PerMinute: 10, PerHour: 100},
		},
		Store: StoreConfig{Path: "data/tasks.db"},
		Log:   LogConfig{Level: "info", Format: "console"},
	}
}
