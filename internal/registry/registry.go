// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry lists the datasets bundled with an R package and
// exports the names as a JSON array the catalog can read through
// datasets_file.
//
// The list comes from R itself: Rscript on the host when installed,
// otherwise the same script inside an r-base container.
package registry

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/dataset-popularity/internal/container"
	"github.com/pdiddy/dataset-popularity/pkg/types"
)

const (
	DefaultPackage = "datasets"
	DefaultRscript = "Rscript"
	DefaultImage   = "r-base:latest"
	DefaultOutput  = "r_datasets_list.json"
)

// packageName matches a valid R package name.
var packageName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9.]*[A-Za-z0-9]$`)

// Lister runs the dataset listing script.
type Lister struct {
	Package string
	Rscript string
	Image   string
	Log     zerolog.Logger

	lookPath func(string) (string, error)
	runLocal func(ctx context.Context, name string, args []string, stdout io.Writer) error
	detect   func() (container.Runtime, error)
}

// NewLister returns a lister for cfg with defaults applied. An invalid
// package name is a *types.ConfigError.
func NewLister(cfg types.RegistryConfig, log zerolog.Logger) (*Lister, error) {
	l := &Lister{
		Package:  cfg.Package,
		Rscript:  cfg.Rscript,
		Image:    cfg.Image,
		Log:      log,
		lookPath: exec.LookPath,
		runLocal: container.RunCommand,
		detect:   container.DetectRuntime,
	}
	if l.Package == "" {
		l.Package = DefaultPackage
	}
	if l.Rscript == "" {
		l.Rscript = DefaultRscript
	}
	if l.Image == "" {
		l.Image = DefaultImage
	}
	if !packageName.MatchString(l.Package) {
		return nil, types.Configf("invalid R package name %q", l.Package)
	}
	return l, nil
}

// Script returns the R expression printing one dataset item per line.
func Script(pkg string) string {
	return fmt.Sprintf(`cat(data(package=%q)$results[, "Item"], sep="\n")`, pkg)
}

// List returns the dataset names of the package, in R's order.
func (l *Lister) List(ctx context.Context) ([]string, error) {
	args := []string{"--vanilla", "-e", Script(l.Package)}
	var out bytes.Buffer

	if path, err := l.lookPath(l.Rscript); err == nil {
		l.Log.Debug().Str("rscript", path).Str("package", l.Package).Msg("listing datasets with local R")
		if err := l.runLocal(ctx, path, args, &out); err != nil {
			return nil, fmt.Errorf("running %s: %w", l.Rscript, err)
		}
	} else {
		rt, derr := l.detect()
		if derr != nil {
			return nil, fmt.Errorf("%s not found and %w", l.Rscript, derr)
		}
		if err := rt.ImageExists(l.Image); err != nil {
			l.Log.Info().Str("image", l.Image).Str("runtime", rt.Name()).Msg("image not present locally; the runtime will pull it")
		}
		l.Log.Debug().Str("runtime", rt.Name()).Str("image", l.Image).Str("package", l.Package).Msg("listing datasets in container")
		command := append([]string{DefaultRscript}, args...)
		if err := rt.Run(ctx, l.Image, command, &out); err != nil {
			return nil, err
		}
	}

	names, err := ParseItems(&out)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("R package %s lists no datasets", l.Package)
	}
	return names, nil
}

// ParseItems reads one item per line. Items of the form "beaver1 (beavers)"
// name an object inside a data file and are reduced to the object name.
// Blank lines are dropped and duplicates keep their first position.
func ParseItems(r io.Reader) ([]string, error) {
	var names []string
	seen := make(map[string]bool)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		item := strings.TrimSpace(sc.Text())
		if i := strings.Index(item, " ("); i > 0 && strings.HasSuffix(item, ")") {
			item = item[:i]
		}
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		names = append(names, item)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset list: %w", err)
	}
	return names, nil
}

// Export writes names as an indented JSON array, replacing path atomically.
func Export(path string, names []string) error {
	if names == nil {
		names = []string{}
	}
	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dataset list: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
