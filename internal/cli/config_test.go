package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klauern/skillkit/internal/config"
	"github.com/klauern/skillkit/internal/util"
)

func TestConfigShow(t *testing.T) {
	tests := map[string]struct {
		args []string
		want []string
	}{
		"default action": {
			args: []string{"config"},
			want: []string{"# skillkit configuration", "# Using defaults", "registry:", "sort_by: stars"},
		},
		"show subcommand": {
			args: []string{"config", "show"},
			want: []string{"marketplace:", "cache_enabled: false"},
		},
		"json": {
			args: []string{"config", "show", "--format", "json"},
			want: []string{`"Registry"`},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			newWorkspace(t)

			out, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestConfigInit(t *testing.T) {
	ws := newWorkspace(t)
	path := filepath.Join(ws.home, ".skillkit", "config.yaml")

	out, err := runCLI(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created config file: "+path)
	assert.FileExists(t, path)

	_, err = runCLI(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = runCLI(t, "config", "init", "--force")
	require.NoError(t, err)

	out, err = runCLI(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# Loaded from: "+path)
}

func TestConfigFlag(t *testing.T) {
	ws := newWorkspace(t)
	custom := filepath.Join(ws.project, "custom.yaml")
	cfg := config.Default()
	cfg.Install.Agents = []string{"cursor"}
	cfg.Output.Format = "quiet"
	require.NoError(t, cfg.SaveToPath(custom))

	ws.skill(t, filepath.Join(".cursor", "skills"), "lint", "Run linters")
	ws.skill(t, "skills", "pdf", "Work with PDF files")

	out, err := runCLI(t, "--config", custom, "list")
	require.NoError(t, err)
	assert.Equal(t, "pdf\nlint\n", out, "format comes from the config file")

	out, err = runCLI(t, "--config", custom, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, custom+" (exists)")

	_, err = runCLI(t, "--config", filepath.Join(ws.project, "missing.yaml"), "list")
	require.Error(t, err)
}

func TestConfigFlag_TOML(t *testing.T) {
	ws := newWorkspace(t)
	custom := filepath.Join(ws.project, "skillkit.toml")
	util.WriteFile(t, custom, "[install]\nagents = [\"cursor\"]\n\n[output]\nformat = \"quiet\"\n")
	ws.skill(t, filepath.Join(".cursor", "skills"), "lint", "Run linters")

	out, err := runCLI(t, "--config", custom, "list")
	require.NoError(t, err)
	assert.Equal(t, "lint\n", out)

	_, err = runCLI(t, "--config", custom, "config", "init", "--force")
	require.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	ws := newWorkspace(t)

	out, err := runCLI(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "(not found)")
	assert.Contains(t, out, "Claude Code:")
	assert.Contains(t, out, util.TrackingLogPath())
	assert.Contains(t, out, filepath.Join(ws.home, ".skillkit", "skills"))
}

func TestConfigEdit(t *testing.T) {
	ws := newWorkspace(t)
	path := filepath.Join(ws.home, ".skillkit", "config.yaml")

	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")
	_, err := runCLI(t, "config", "edit")
	require.Error(t, err)
	assert.NoFileExists(t, path)

	t.Setenv("VISUAL", "vi")
	out, err := runCLI(t, "config", "edit")
	require.NoError(t, err)
	assert.Contains(t, out, "Creating default configuration")
	assert.Contains(t, out, "Run: vi "+path)
	assert.FileExists(t, path)
}

func TestConfigEnvOverrides(t *testing.T) {
	newWorkspace(t)
	t.Setenv("SKILLKIT_REGISTRY_LIMIT", "5")
	t.Setenv("SKILLKIT_INSTALL_AGENTS", "claude,codex")

	out, err := runCLI(t, "config", "show", "-f", "json")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 5, cfg.Registry.Limit)
	assert.Equal(t, []string{"claude", "codex"}, cfg.Install.Agents)
	_, statErr := os.Stat(config.FilePath())
	assert.True(t, os.IsNotExist(statErr), "show does not write a config file")
}
