package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upgradescope.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		configTOML  string
		expectError string
		check       func(t *testing.T, c *Config)
	}{
		{
			name: "full config",
			configTOML: `
[input]
before = "vendor-old"
after = "vendor-new"
consumers = ["app", "modules"]
exclude_namespaces = ['Vendor\Tests\*']
exclude_dirs = ["tests"]

[cache]
enabled = false

[history]
enabled = true
context_lines = 5

[output]
report = "out.md"
json = "out.json"

[log]
level = "debug"
format = "json"
`,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "vendor-old", c.Input.Before)
				assert.Equal(t, []string{"app", "modules"}, c.Input.Consumers)
				assert.Equal(t, []string{`Vendor\Tests\*`}, c.Input.ExcludeNamespaces)
				assert.Equal(t, []string{"tests"}, c.Input.ExcludeDirs)
				assert.False(t, c.Cache.Enabled)
				assert.True(t, c.History.Enabled)
				assert.Equal(t, 5, c.History.ContextLines)
				assert.Equal(t, "git", c.History.GitBinary)
				assert.Equal(t, "out.json", c.Output.JSON)
				assert.Equal(t, "json", c.Log.Format)
			},
		},
		{
			name:       "empty config keeps defaults",
			configTOML: ``,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, Default(), c)
			},
		},
		{
			name:        "invalid toml",
			configTOML:  `[input`,
			expectError: "failed to parse config file",
		},
		{
			name:        "unknown key",
			configTOML:  "[input]\nbefor = \"x\"\n",
			expectError: "input.befor",
		},
		{
			name:        "bad namespace glob",
			configTOML:  "[input]\nexclude_namespaces = ['App\\[']\n",
			expectError: "input.exclude_namespaces",
		},
		{
			name:        "bad log level",
			configTOML:  "[log]\nlevel = \"loud\"\n",
			expectError: "log.level",
		},
		{
			name:        "negative context",
			configTOML:  "[history]\ncontext_lines = -1\n",
			expectError: "history.context_lines",
		},
		{
			name:        "cache without path",
			configTOML:  "[cache]\npath = \"\"\n",
			expectError: "cache.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.configTOML))
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := LoadConfig("nonexistent.toml")
	assert.Error(t, err)
}

func TestLoad_DefaultFileAbsent(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestRequireInputs(t *testing.T) {
	cfg := Default()
	assert.ErrorContains(t, cfg.RequireInputs(), "input.before")
	cfg.Input.Before = "a"
	assert.ErrorContains(t, cfg.RequireInputs(), "input.after")
	cfg.Input.After = "b"
	assert.ErrorContains(t, cfg.RequireInputs(), "input.consumers")
	cfg.Input.Consumers = []string{"c"}
	assert.NoError(t, cfg.RequireInputs())
}
