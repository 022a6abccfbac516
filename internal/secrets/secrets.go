// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves the GitHub credential used for code search.
//
// The token may come from configuration, from the GITHUB_TOKEN environment
// variable, or from a secrets directory holding one plain-text file per key
// (.secrets/github-token). The first non-empty source wins.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/dataset-popularity/pkg/types"
)

const (
	// GitHubTokenKey is the secrets-directory file holding the token.
	GitHubTokenKey = "github-token"

	// GitHubTokenEnv is the conventional environment variable for the token.
	GitHubTokenEnv = "GITHUB_TOKEN"

	// DefaultDir is the secrets directory relative to the working directory.
	DefaultDir = ".secrets"
)

// Sources lists where a token may be found, in priority order.
type Sources struct {
	// Configured is a token from the config file or the prefixed environment variable.
	Configured string

	// Getenv reads the environment; nil means os.Getenv.
	Getenv func(string) string

	// Dir is the secrets directory; empty means DefaultDir.
	Dir string

	Log zerolog.Logger
}

// GitHubToken returns the first non-empty token and a description of where
// it came from. No token at all is a *types.ConfigError.
func GitHubToken(src Sources) (token, origin string, err error) {
	if v := strings.TrimSpace(src.Configured); v != "" {
		return v, "configuration", nil
	}

	getenv := src.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(GitHubTokenEnv)); v != "" {
		return v, GitHubTokenEnv, nil
	}

	dir := src.Dir
	if dir == "" {
		dir = DefaultDir
	}
	loaded, err := Load(dir, src.Log)
	if err != nil {
		return "", "", types.WrapConfig("loading secrets", err)
	}
	if v, ok := loaded[GitHubTokenKey]; ok {
		return v, filepath.Join(dir, GitHubTokenKey), nil
	}

	return "", "", types.Configf("%s is not set: export it, add it to .env, or write it to %s",
		GitHubTokenEnv, filepath.Join(dir, GitHubTokenKey))
}

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error; Load returns an empty map.
// Dotfiles, subdirectories and empty files are skipped. Unreadable files
// are logged and skipped.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	loaded := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			loaded[name] = value
		}
	}

	return loaded, nil
}
