// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/dataset-popularity/internal/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Export the dataset names bundled with an R package",
	Long: `Registry asks R for the datasets shipped with a package (default
"datasets") and writes them as a JSON array. Point an ecosystem's
datasets_file at the result to query every one of them.

Rscript is used when installed; otherwise the listing runs in an r-base
container through docker or podman.`,
	RunE: runRegistry,
}

func init() {
	f := registryCmd.Flags()
	f.String("package", registry.DefaultPackage, "R package whose datasets are listed")
	f.StringP("output", "o", registry.DefaultOutput, "JSON file to write")
	f.String("rscript", registry.DefaultRscript, "Rscript binary")
	f.String("image", registry.DefaultImage, "container image used when Rscript is not installed")
	_ = viper.BindPFlag("registry.package", f.Lookup("package"))
	_ = viper.BindPFlag("registry.output", f.Lookup("output"))
	_ = viper.BindPFlag("registry.rscript", f.Lookup("rscript"))
	_ = viper.BindPFlag("registry.image", f.Lookup("image"))

	rootCmd.AddCommand(registryCmd)
}

func runRegistry(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lister, err := registry.NewLister(cfg.Registry, log.Logger)
	if err != nil {
		return err
	}
	names, err := lister.List(cmd.Context())
	if err != nil {
		return err
	}
	if err := registry.Export(cfg.Registry.Output, names); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d %s datasets to %s\n", len(names), lister.Package, cfg.Registry.Output)
	return nil
}
