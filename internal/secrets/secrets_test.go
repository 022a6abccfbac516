// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dataset-popularity/pkg/types"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestGitHubToken(t *testing.T) {
	tests := []struct {
		name       string
		src        func(t *testing.T) Sources
		wantToken  string
		wantOrigin string
	}{
		{
			name: "configured value wins",
			src: func(t *testing.T) Sources {
				dir := t.TempDir()
				writeFile(t, dir, GitHubTokenKey, "from-file")
				return Sources{Configured: " from-config ", Getenv: env(map[string]string{GitHubTokenEnv: "from-env"}), Dir: dir}
			},
			wantToken:  "from-config",
			wantOrigin: "configuration",
		},
		{
			name: "environment before secrets dir",
			src: func(t *testing.T) Sources {
				dir := t.TempDir()
				writeFile(t, dir, GitHubTokenKey, "from-file")
				return Sources{Getenv: env(map[string]string{GitHubTokenEnv: "from-env\n"}), Dir: dir}
			},
			wantToken:  "from-env",
			wantOrigin: GitHubTokenEnv,
		},
		{
			name: "secrets dir as last resort",
			src: func(t *testing.T) Sources {
				dir := t.TempDir()
				writeFile(t, dir, GitHubTokenKey, "  ghp_file  \n")
				return Sources{Getenv: env(nil), Dir: dir}
			},
			wantToken: "ghp_file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tt.src(t)
			token, origin, err := GitHubToken(src)
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
			if tt.wantOrigin != "" {
				assert.Equal(t, tt.wantOrigin, origin)
			} else {
				assert.Equal(t, filepath.Join(src.Dir, GitHubTokenKey), origin)
			}
		})
	}
}

func TestGitHubTokenMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, GitHubTokenKey, "   \n")

	_, _, err := GitHubToken(Sources{Getenv: env(map[string]string{GitHubTokenEnv: "  "}), Dir: dir})
	require.Error(t, err)
	assert.True(t, types.IsConfigError(err))
	assert.Contains(t, err.Error(), "GITHUB_TOKEN is not set")
}

func TestGitHubTokenMissingDirectory(t *testing.T) {
	_, _, err := GitHubToken(Sources{Getenv: env(nil), Dir: filepath.Join(t.TempDir(), "absent")})
	require.Error(t, err)
	assert.True(t, types.IsConfigError(err))
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "github-token", "  ghp_abc123  \n")
				writeFile(t, dir, "other-key", "xyz")
				return dir
			},
			want: map[string]string{"github-token": "ghp_abc123", "other-key": "xyz"},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files, dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "github-token", "valid")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{"github-token": "valid"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), zerolog.Nop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadNotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plain", "x")
	_, err := Load(filepath.Join(dir, "plain"), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading secrets directory")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
