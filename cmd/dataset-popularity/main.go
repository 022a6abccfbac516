// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the dataset-popularity CLI.
//
// Running the binary without a subcommand queries GitHub code search once
// for every catalog dataset and writes one CSV report per ecosystem.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/dataset-popularity/internal/codesearch"
	"github.com/pdiddy/dataset-popularity/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "DATASET_POPULARITY"

// rootCmd is the base command for the dataset-popularity CLI.
var rootCmd = &cobra.Command{
	Use:   "dataset-popularity",
	Short: "Count how often toy datasets are loaded in public GitHub code",
	Long: `dataset-popularity asks GitHub code search how many files load each
toy dataset of an ecosystem (scikit-learn loaders, R's datasets package)
and writes one CSV per ecosystem with the columns dataset,count.

Datasets whose query fails get the sentinel NA instead of a count. A GitHub
token is read from github_token in the config, the GITHUB_TOKEN environment
variable (a .env file is honoured), or .secrets/github-token.`,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return initLogging() },
	RunE:              runQuery,
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults()

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./dataset-popularity.yaml or ~/.config/dataset-popularity/dataset-popularity.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error, disabled)")
	pf.String("history", "", "SQLite file archiving every run (empty disables)")
	_ = viper.BindPFlag("log-level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("history.path", pf.Lookup("history"))

	f := rootCmd.Flags()
	f.String("catalog", "", "dataset catalog YAML (default: built-in catalog)")
	f.String("ecosystem", "", "query only this catalog ecosystem")
	f.String("output-dir", ".", "directory receiving the CSV reports")
	f.String("sentinel", "NA", "value written for datasets whose query failed")
	f.Duration("delay", codesearch.DefaultRequestDelay, "minimum spacing between search requests (0 disables pacing)")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
	_ = viper.BindPFlag("catalog", f.Lookup("catalog"))
	_ = viper.BindPFlag("ecosystem", f.Lookup("ecosystem"))
	_ = viper.BindPFlag("output_dir", f.Lookup("output-dir"))
	_ = viper.BindPFlag("sentinel", f.Lookup("sentinel"))
	_ = viper.BindPFlag("search.request_delay", f.Lookup("delay"))
	_ = viper.BindPFlag("metrics.textfile", f.Lookup("metrics-file"))
}

// initConfig reads the config file, .env and environment variables.
func initConfig() {
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("dataset-popularity")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "dataset-popularity"))
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// initLogging configures the global logger from log-level.
func initLogging() error {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("log-level")))
	if err != nil {
		return types.WrapConfig("log-level", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	})
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
