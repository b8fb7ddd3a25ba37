package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

const DefaultFile = "upgradescope.toml"

type Config struct {
	Input   InputConfig   `toml:"input" json:"input"`
	Cache   CacheConfig   `toml:"cache" json:"cache"`
	History HistoryConfig `toml:"history" json:"history"`
	Output  OutputConfig  `toml:"output" json:"output"`
	Log     LogConfig     `toml:"log" json:"log"`
}

type InputConfig struct {
	Before            string   `toml:"before" json:"before"`
	After             string   `toml:"after" json:"after"`
	Consumers         []string `toml:"consumers" json:"consumers"`
	ExcludeNamespaces []string `toml:"exclude_namespaces" json:"exclude_namespaces"`
	ExcludeDirs       []string `toml:"exclude_dirs" json:"exclude_dirs"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

type HistoryConfig struct {
	Enabled      bool   `toml:"enabled" json:"enabled"`
	GitBinary    string `toml:"git_binary" json:"git_binary"`
	ContextLines int    `toml:"context_lines" json:"context_lines"`
}

type OutputConfig struct {
	Report string `toml:"report" json:"report"`
	JSON   string `toml:"json" json:"json"`
}

type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
}

func Default() *Config {
	return &Config{
		Input: InputConfig{
			ExcludeDirs: []string{".git", "node_modules", "var", "cache"},
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    ".upgradescope/cache.db",
		},
		History: HistoryConfig{
			GitBinary:    "git",
			ContextLines: 3,
		},
		Output: OutputConfig{
			Report: "upgradescope_report.md",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig decodes filename over the defaults. Keys absent from the file
// keep their default value; unknown keys are rejected.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return cfg, nil
}

// Load reads path when it exists and falls back to the defaults when the
// default file name is simply absent.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return Default(), nil
		}
	}
	return LoadConfig(path)
}

// Validate checks value ranges and glob syntax. It does not require inputs,
// which the CLI may still supply.
func (c *Config) Validate() error {
	for _, p := range c.Input.ExcludeNamespaces {
		if _, err := glob.Compile(strings.ReplaceAll(p, `\`, "/"), '/'); err != nil {
			return fmt.Errorf("input.exclude_namespaces: invalid pattern %q: %w", p, err)
		}
	}
	for _, p := range c.Input.ExcludeDirs {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("input.exclude_dirs: invalid pattern %q: %w", p, err)
		}
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) == "" {
		return fmt.Errorf("cache.path: must be set when cache.enabled is true")
	}
	if c.History.ContextLines < 0 {
		return fmt.Errorf("history.context_lines: must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// RequireInputs reports the first missing input needed for an analysis run.
func (c *Config) RequireInputs() error {
	switch {
	case c.Input.Before == "":
		return fmt.Errorf("input.before: must be set")
	case c.Input.After == "":
		return fmt.Errorf("input.after: must be set")
	case len(c.Input.Consumers) == 0:
		return fmt.Errorf("input.consumers: at least one consumer root is required")
	}
	return nil
}
