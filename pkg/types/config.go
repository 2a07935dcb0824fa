// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-scraper/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the metadata search providers.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// EnableSemanticScholar controls whether the Semantic Scholar provider is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar"`

	// EnableOpenAlex controls whether the OpenAlex provider is used.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex"`

	// EnableCrossref controls whether the Crossref provider is used.
	EnableCrossref bool `json:"enable_crossref" yaml:"enable_crossref"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// CrossrefMailto identifies the caller to Crossref's polite pool.
	CrossrefMailto string `json:"crossref_mailto,omitempty" yaml:"crossref_mailto,omitempty"`
}

// ResolveConfig holds settings for the resolver chain.
type ResolveConfig struct {
	HTTPConfig `yaml:",inline"`

	// TemplateURL is a user-supplied URL pattern containing a {doi}
	// placeholder. When empty the template strategy is disabled.
	TemplateURL string `json:"template_url,omitempty" yaml:"template_url,omitempty"`

	// OpenAlexEmail is sent as the mailto parameter on OpenAlex lookups.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`
}

// DownloadConfig holds settings for the PDF downloader.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxRetries is the number of retry attempts after the first try
	// for transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// BackoffBase is the delay before the first retry; subsequent retries
	// double it (default 500ms).
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`

	// BackoffMax caps the per-retry delay (default 10s).
	BackoffMax time.Duration `json:"backoff_max" yaml:"backoff_max"`

	// VerifyPDF enables structural verification of downloaded files
	// beyond the magic-byte check.
	VerifyPDF bool `json:"verify_pdf" yaml:"verify_pdf"`
}

// RateLimitConfig holds settings for the per-host request gate.
type RateLimitConfig struct {
	// DefaultInterval is the minimum delay between requests to the same
	// host (default 2s, matching the upstream APIs' anonymous tiers).
	DefaultInterval time.Duration `json:"default_interval" yaml:"default_interval"`

	// HostIntervals overrides the interval for specific hosts.
	HostIntervals map[string]time.Duration `json:"host_intervals,omitempty" yaml:"host_intervals,omitempty"`

	// PenaltyFactor multiplies a host's interval after a 429 (default 2).
	PenaltyFactor float64 `json:"penalty_factor" yaml:"penalty_factor"`

	// MaxInterval caps a penalized host's interval (default 2m).
	MaxInterval time.Duration `json:"max_interval" yaml:"max_interval"`

	// Cooldown is how long a host stays penalized after its last 429
	// before the interval decays back to baseline (default 30s).
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`
}

// PipelineConfig groups all component configurations. A run receives an
// immutable snapshot; nothing reads global state after the run starts.
type PipelineConfig struct {
	Search    SearchConfig    `json:"search" yaml:"search"`
	Resolve   ResolveConfig   `json:"resolve" yaml:"resolve"`
	Download  DownloadConfig  `json:"download" yaml:"download"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`

	// Workers bounds the per-record resolve+download pool (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// RunTimeout is the overall deadline for a run; 0 means none.
	RunTimeout time.Duration `json:"run_timeout" yaml:"run_timeout"`
}

// DefaultConfig returns the configuration defaults shared by the CLI and
// library callers.
func DefaultConfig() PipelineConfig {
	http := HTTPConfig{
		Timeout:   60 * time.Second,
		UserAgent: "paper-scraper/0.1",
	}
	return PipelineConfig{
		Search: SearchConfig{
			HTTPConfig:            http,
			EnableSemanticScholar: true,
			EnableOpenAlex:        true,
			EnableCrossref:        true,
		},
		Resolve: ResolveConfig{HTTPConfig: http},
		Download: DownloadConfig{
			HTTPConfig:  http,
			MaxRetries:  3,
			BackoffBase: 500 * time.Millisecond,
			BackoffMax:  10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			DefaultInterval: 2 * time.Second,
			PenaltyFactor:   2,
			MaxInterval:     2 * time.Minute,
			Cooldown:        30 * time.Second,
		},
		Workers: 4,
	}
}
