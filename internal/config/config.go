// Package config provides configuration management for skillkit.
// It supports a YAML configuration file (or a TOML one passed with --config),
// environment variables, and sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/klauern/skillkit/internal/util"
)

// DefaultRegistryURL is the skills database endpoint used when none is configured.
const DefaultRegistryURL = "https://api.skillkit.dev/v1/skills"

// Config represents the complete skillkit configuration.
type Config struct {
	// Registry configures the remote skills database client
	Registry RegistryConfig `yaml:"registry" toml:"registry"`

	// Marketplace configures the legacy GitHub-scan marketplace
	Marketplace MarketplaceConfig `yaml:"marketplace" toml:"marketplace"`

	// Install configures defaults for install commands
	Install InstallConfig `yaml:"install" toml:"install"`

	// Discovery configures additional skill search roots
	Discovery DiscoveryConfig `yaml:"discovery" toml:"discovery"`

	// Output configures display preferences
	Output OutputConfig `yaml:"output" toml:"output"`
}

// RegistryConfig holds skills database settings.
type RegistryConfig struct {
	// URL is the database endpoint
	URL string `yaml:"url" toml:"url"`
	// Timeout bounds each request
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
	// SortBy is the default ranking (stars, recent, name)
	SortBy string `yaml:"sort_by" toml:"sort_by"`
	// Limit is the default page size
	Limit int `yaml:"limit" toml:"limit"`
}

// MarketplaceConfig holds legacy marketplace settings.
type MarketplaceConfig struct {
	// GitHubAPIURL overrides the GitHub API base (GitHub Enterprise, tests)
	GitHubAPIURL string `yaml:"github_api_url,omitempty" toml:"github_api_url,omitempty"`
	// RawBaseURL overrides the raw content host
	RawBaseURL string `yaml:"raw_base_url,omitempty" toml:"raw_base_url,omitempty"`
	// Token is an optional GitHub token for higher rate limits
	Token string `yaml:"token,omitempty" toml:"token,omitempty"`
	// CacheEnabled enables the listing cache
	CacheEnabled bool `yaml:"cache_enabled" toml:"cache_enabled"`
	// CacheTTL is the time-to-live for cached listings
	CacheTTL time.Duration `yaml:"cache_ttl" toml:"cache_ttl"`
}

// InstallConfig holds install defaults.
type InstallConfig struct {
	// Agents is the default agent list; empty means prompt or all
	Agents []string `yaml:"agents,omitempty" toml:"agents,omitempty"`
	// Global installs into home-directory agent dirs by default
	Global bool `yaml:"global" toml:"global"`
	// Yes skips interactive prompts
	Yes bool `yaml:"yes" toml:"yes"`
}

// DiscoveryConfig holds discovery settings.
type DiscoveryConfig struct {
	// ExtraPaths are searched after the default roots
	ExtraPaths []string `yaml:"extra_paths,omitempty" toml:"extra_paths,omitempty"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Format is the default output format (table, json, yaml, markdown, quiet)
	Format string `yaml:"format" toml:"format"`
	// Color controls color output (auto, always, never)
	Color string `yaml:"color" toml:"color"`
	// Verbose enables verbose output
	Verbose bool `yaml:"verbose" toml:"verbose"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Registry: RegistryConfig{
			URL:     DefaultRegistryURL,
			Timeout: 15 * time.Second,
			SortBy:  "stars",
			Limit:   20,
		},
		Marketplace: MarketplaceConfig{
			CacheEnabled: true,
			CacheTTL:     time.Hour,
		},
		Output: OutputConfig{
			Format: "table",
			Color:  "auto",
		},
	}
}

// configFileName is the name of the config file.
const configFileName = "config.yaml"

// FilePath returns the path to the config file.
func FilePath() string {
	return filepath.Join(util.SkillkitHome(), configFileName)
}

// Load loads the configuration from the default file, merging with defaults.
// If the config file doesn't exist, returns default configuration.
func Load() (*Config, error) {
	cfg, err := load(FilePath())
	if err != nil && os.IsNotExist(err) {
		cfg = Default()
		cfg.applyEnvironment()
		return cfg, nil
	}
	return cfg, err
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is the config location chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// isTOML reports whether path should be read as TOML instead of YAML.
func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Save writes the configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path. TOML files are
// read but never written.
func (c *Config) SaveToPath(path string) error {
	if isTOML(path) {
		return fmt.Errorf("cannot write %s: only YAML config files are written", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by user
	return os.WriteFile(path, data, 0o644)
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern SKILLKIT_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	if v := os.Getenv("SKILLKIT_REGISTRY_URL"); v != "" {
		c.Registry.URL = v
	}
	if v := os.Getenv("SKILLKIT_REGISTRY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Registry.Timeout = d
		}
	}
	if v := os.Getenv("SKILLKIT_REGISTRY_SORT_BY"); v != "" {
		c.Registry.SortBy = v
	}
	if v := os.Getenv("SKILLKIT_REGISTRY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Registry.Limit = n
		}
	}

	if v := os.Getenv("SKILLKIT_MARKETPLACE_GITHUB_API_URL"); v != "" {
		c.Marketplace.GitHubAPIURL = v
	}
	if v := os.Getenv("SKILLKIT_MARKETPLACE_RAW_BASE_URL"); v != "" {
		c.Marketplace.RawBaseURL = v
	}
	if v := os.Getenv("SKILLKIT_MARKETPLACE_TOKEN"); v != "" {
		c.Marketplace.Token = v
	} else if v := os.Getenv("GITHUB_TOKEN"); v != "" && c.Marketplace.Token == "" {
		c.Marketplace.Token = v
	}
	if v := os.Getenv("SKILLKIT_MARKETPLACE_CACHE_ENABLED"); v != "" {
		c.Marketplace.CacheEnabled = parseBool(v)
	}
	if v := os.Getenv("SKILLKIT_MARKETPLACE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Marketplace.CacheTTL = d
		}
	}

	if v := os.Getenv("SKILLKIT_INSTALL_AGENTS"); v != "" {
		c.Install.Agents = splitList(v, ",")
	}
	if v := os.Getenv("SKILLKIT_INSTALL_GLOBAL"); v != "" {
		c.Install.Global = parseBool(v)
	}
	if v := os.Getenv("SKILLKIT_INSTALL_YES"); v != "" {
		c.Install.Yes = parseBool(v)
	}

	// Colon-separated, like PATH
	if v := os.Getenv("SKILLKIT_DISCOVERY_EXTRA_PATHS"); v != "" {
		c.Discovery.ExtraPaths = splitList(v, string(os.PathListSeparator))
	}

	if v := os.Getenv("SKILLKIT_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("SKILLKIT_OUTPUT_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("SKILLKIT_OUTPUT_VERBOSE"); v != "" {
		c.Output.Verbose = parseBool(v)
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// splitList splits s on sep, dropping empty segments.
func splitList(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// ExtraDiscoveryPaths returns the configured extra roots, expanded against baseDir.
func (c *Config) ExtraDiscoveryPaths(baseDir string) []string {
	return util.ExpandPaths(c.Discovery.ExtraPaths, baseDir)
}

// Exists returns true if a config file exists.
func Exists() bool {
	_, err := os.Stat(FilePath())
	return err == nil
}
