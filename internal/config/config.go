// Package config loads lockbridge settings from defaults, a project file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is the optional per-project configuration file.
	FileName = ".lockbridge.yaml"

	DefaultRegistry    = "https://registry.npmjs.org"
	DefaultGitHubRaw   = "https://raw.githubusercontent.com"
	DefaultGitHubAPI   = "https://api.github.com"
	DefaultConcurrency = 8
	DefaultTimeout     = 30 * time.Second
)

// Config holds registry and reconciliation settings.
type Config struct {
	Registry    string        `yaml:"registry"`
	GitHubRaw   string        `yaml:"githubRaw"`
	GitHubAPI   string        `yaml:"githubApi"`
	CacheDir    string        `yaml:"cacheDir"`
	NoCache     bool          `yaml:"noCache"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Default returns the built-in settings. CacheDir lives under the user
// cache directory, or the temp dir when there is none.
func Default() *Config {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return &Config{
		Registry:    DefaultRegistry,
		GitHubRaw:   DefaultGitHubRaw,
		GitHubAPI:   DefaultGitHubAPI,
		CacheDir:    filepath.Join(cacheDir, "lockbridge"),
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
	}
}

// Load layers dir/.lockbridge.yaml and then the environment over the
// defaults. A missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", FileName, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// applyEnv reads NPM_CONFIG_REGISTRY (npm's own variable) and the
// LOCKBRIDGE_* overrides.
func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("NPM_CONFIG_REGISTRY"); v != "" {
		c.Registry = v
	}
	if v := getenv("LOCKBRIDGE_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := getenv("LOCKBRIDGE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LOCKBRIDGE_CONCURRENCY: %w", err)
		}
		c.Concurrency = n
	}
	if v := getenv("LOCKBRIDGE_NO_CACHE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOCKBRIDGE_NO_CACHE: %w", err)
		}
		c.NoCache = b
	}
	return nil
}

// Validate normalizes URLs and rejects unusable values.
func (c *Config) Validate() error {
	c.Registry = strings.TrimRight(c.Registry, "/")
	c.GitHubRaw = strings.TrimRight(c.GitHubRaw, "/")
	c.GitHubAPI = strings.TrimRight(c.GitHubAPI, "/")
	if c.Registry == "" {
		return fmt.Errorf("registry must not be empty")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}
