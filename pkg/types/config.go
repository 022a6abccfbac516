// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "dataset-popularity/0.1"). GitHub rejects requests without one.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the GitHub code search client.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the GitHub REST API root (default https://api.github.com).
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIVersion is sent as X-GitHub-Api-Version (default 2022-11-28).
	APIVersion string `json:"api_version" yaml:"api_version"`

	// Token is the GitHub credential. It is resolved once at startup and
	// never serialized.
	Token string `json:"-" yaml:"-"`

	// RequestDelay is the minimum spacing between two search requests
	// (default 7s, under GitHub's 10 requests/minute code search ceiling).
	// Zero disables pacing.
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay"`

	// MaxRateLimitRetries is how many times a rate-limited request is paused
	// and retried before the run gives up. Zero means the default of 10.
	MaxRateLimitRetries int `json:"max_rate_limit_retries" yaml:"max_rate_limit_retries"`

	// MaxRateLimitWait caps a single rate-limit pause (default 5m).
	MaxRateLimitWait time.Duration `json:"max_rate_limit_wait" yaml:"max_rate_limit_wait"`
}

// ReportConfig holds settings for the CSV report writer.
type ReportConfig struct {
	// OutputDir is the directory that receives one CSV per ecosystem.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Sentinel replaces the count of a dataset whose query failed (default "NA").
	Sentinel string `json:"sentinel" yaml:"sentinel"`
}

// HistoryConfig holds settings for the optional run archive.
type HistoryConfig struct {
	// Path is the SQLite database file. Empty disables the archive.
	Path string `json:"path" yaml:"path"`
}

// MetricsConfig holds settings for the optional Prometheus textfile export.
type MetricsConfig struct {
	// Textfile is the path of the .prom file written after a run. Empty disables it.
	Textfile string `json:"textfile" yaml:"textfile"`
}

// RegistryConfig holds settings for the R dataset registry export.
type RegistryConfig struct {
	// Package is the R package whose bundled datasets are listed (default "datasets").
	Package string `json:"package" yaml:"package"`

	// Output is the JSON file that receives the dataset names.
	Output string `json:"output" yaml:"output"`

	// Rscript is the Rscript binary name or path (default "Rscript").
	Rscript string `json:"rscript" yaml:"rscript"`

	// Image is the container image used when Rscript is not installed (default "r-base:latest").
	Image string `json:"image" yaml:"image"`
}

// Config groups the settings of one dataset-popularity invocation.
type Config struct {
	// Catalog is the dataset catalog file. Empty uses the embedded default.
	Catalog string `json:"catalog" yaml:"catalog"`

	// Ecosystem restricts a run to one catalog ecosystem. Empty runs all.
	Ecosystem string `json:"ecosystem" yaml:"ecosystem"`

	Search   SearchConfig   `json:"search" yaml:"search"`
	Report   ReportConfig   `json:"report" yaml:"report"`
	History  HistoryConfig  `json:"history" yaml:"history"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
	Registry RegistryConfig `json:"registry" yaml:"registry"`
}
