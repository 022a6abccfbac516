// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/dataset-popularity/internal/codesearch"
	"github.com/pdiddy/dataset-popularity/internal/registry"
	"github.com/pdiddy/dataset-popularity/internal/report"
	"github.com/pdiddy/dataset-popularity/pkg/types"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultMaxRetries    = 10
	defaultMaxWait       = 5 * time.Minute
	defaultUserAgentName = "dataset-popularity/"
)

func setDefaults() {
	viper.SetDefault("output_dir", ".")
	viper.SetDefault("sentinel", report.DefaultSentinel)
	viper.SetDefault("log-level", "info")
	viper.SetDefault("search.base_url", codesearch.DefaultBaseURL)
	viper.SetDefault("search.api_version", codesearch.DefaultAPIVersion)
	viper.SetDefault("search.timeout", defaultTimeout)
	viper.SetDefault("search.request_delay", codesearch.DefaultRequestDelay)
	viper.SetDefault("search.max_rate_limit_retries", defaultMaxRetries)
	viper.SetDefault("search.max_rate_limit_wait", defaultMaxWait)
	viper.SetDefault("registry.package", registry.DefaultPackage)
	viper.SetDefault("registry.output", registry.DefaultOutput)
	viper.SetDefault("registry.rscript", registry.DefaultRscript)
	viper.SetDefault("registry.image", registry.DefaultImage)
}

// loadConfig assembles the run configuration from viper.
func loadConfig() (types.Config, error) {
	cfg := types.Config{
		Catalog:   viper.GetString("catalog"),
		Ecosystem: viper.GetString("ecosystem"),
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("search.timeout"),
				UserAgent: viper.GetString("search.user_agent"),
			},
			BaseURL:             viper.GetString("search.base_url"),
			APIVersion:          viper.GetString("search.api_version"),
			Token:               viper.GetString("github_token"),
			RequestDelay:        viper.GetDuration("search.request_delay"),
			MaxRateLimitRetries: viper.GetInt("search.max_rate_limit_retries"),
			MaxRateLimitWait:    viper.GetDuration("search.max_rate_limit_wait"),
		},
		Report: types.ReportConfig{
			OutputDir: viper.GetString("output_dir"),
			Sentinel:  viper.GetString("sentinel"),
		},
		History: types.HistoryConfig{Path: viper.GetString("history.path")},
		Metrics: types.MetricsConfig{Textfile: viper.GetString("metrics.textfile")},
		Registry: types.RegistryConfig{
			Package: viper.GetString("registry.package"),
			Output:  viper.GetString("registry.output"),
			Rscript: viper.GetString("registry.rscript"),
			Image:   viper.GetString("registry.image"),
		},
	}
	if cfg.Search.UserAgent == "" {
		cfg.Search.UserAgent = defaultUserAgentName + version
	}
	return cfg, validateConfig(cfg)
}

func validateConfig(cfg types.Config) error {
	switch {
	case cfg.Search.Timeout <= 0:
		return types.Configf("search.timeout must be positive, got %s", cfg.Search.Timeout)
	case cfg.Search.RequestDelay < 0:
		return types.Configf("search.request_delay must not be negative, got %s", cfg.Search.RequestDelay)
	case cfg.Search.MaxRateLimitRetries < 1:
		return types.Configf("search.max_rate_limit_retries must be at least 1, got %d", cfg.Search.MaxRateLimitRetries)
	case cfg.Search.MaxRateLimitWait <= 0:
		return types.Configf("search.max_rate_limit_wait must be positive, got %s", cfg.Search.MaxRateLimitWait)
	case cfg.Report.OutputDir == "":
		return types.Configf("output_dir must not be empty")
	}
	return nil
}
