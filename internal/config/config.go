package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// PlatformConfig is the credential pair for one review platform.
type PlatformConfig struct {
	BaseURL string `json:"baseUrl,omitempty"`
	Token   string `json:"token,omitempty"`
}

// Configured reports whether the platform has both a URL and a token.
func (p PlatformConfig) Configured() bool {
	return p.BaseURL != "" && p.Token != ""
}

// CacheConfig controls the project-list cache. Enabled is a pointer so an
// explicit "enabled": false in the file is distinguishable from the field
// being absent.
type CacheConfig struct {
	Enabled    *bool  `json:"enabled,omitempty"`
	Dir        string `json:"dir,omitempty"`
	TTLSeconds int    `json:"ttlSeconds"`
}

// IsEnabled reports whether caching is on; unset means on.
func (c CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Config represents the revq configuration.
type Config struct {
	GitLab      PlatformConfig `json:"gitlab"`
	Phabricator PlatformConfig `json:"phabricator"`
	Concurrency int            `json:"concurrency"`
	Format      string         `json:"format"`
	Cache       CacheConfig    `json:"cache"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Concurrency: 4,
		Format:      "text",
		Cache: CacheConfig{
			TTLSeconds: 3600,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for revq.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "revq"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "revq"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "revq"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "revq"), nil
	default:
		return filepath.Join(home, ".config", "revq"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil
// error if the file doesn't exist.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file. Tokens live in this file, so
// it is kept private to the owner.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Load builds the effective config by merging: defaults <- file <- env <-
// overrides. The overrides map comes from CLI flags (only non-zero values
// should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.GitLab.BaseURL != "" {
		dst.GitLab.BaseURL = src.GitLab.BaseURL
	}
	if src.GitLab.Token != "" {
		dst.GitLab.Token = src.GitLab.Token
	}
	if src.Phabricator.BaseURL != "" {
		dst.Phabricator.BaseURL = src.Phabricator.BaseURL
	}
	if src.Phabricator.Token != "" {
		dst.Phabricator.Token = src.Phabricator.Token
	}
	if src.Concurrency > 0 {
		dst.Concurrency = src.Concurrency
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
	if src.Cache.TTLSeconds > 0 {
		dst.Cache.TTLSeconds = src.Cache.TTLSeconds
	}
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("REVQ_GITLAB_URL"); v != "" {
		cfg.GitLab.BaseURL = v
	}
	if v := os.Getenv("REVQ_GITLAB_TOKEN"); v != "" {
		cfg.GitLab.Token = v
	}
	if v := os.Getenv("REVQ_PHABRICATOR_URL"); v != "" {
		cfg.Phabricator.BaseURL = v
	}
	if v := os.Getenv("REVQ_PHABRICATOR_TOKEN"); v != "" {
		cfg.Phabricator.Token = v
	}
	if v := os.Getenv("REVQ_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("REVQ_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		}
	}
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	if overrides == nil {
		return
	}
	if v, ok := overrides["gitlab.url"]; ok && v != "" {
		cfg.GitLab.BaseURL = v
	}
	if v, ok := overrides["phabricator.url"]; ok && v != "" {
		cfg.Phabricator.BaseURL = v
	}
	if v, ok := overrides["format"]; ok && v != "" {
		cfg.Format = v
	}
	if v, ok := overrides["concurrency"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		}
	}
}

// SetField sets a single config field by key name. Returns error if key is
// unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "gitlab.url":
		cfg.GitLab.BaseURL = value
	case "gitlab.token":
		cfg.GitLab.Token = value
	case "phabricator.url":
		cfg.Phabricator.BaseURL = value
	case "phabricator.token":
		cfg.Phabricator.Token = value
	case "format":
		cfg.Format = value
	case "concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("concurrency must be an integer: %w", err)
		}
		cfg.Concurrency = n
	case "cache.enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache.enabled must be a boolean: %w", err)
		}
		cfg.Cache.Enabled = &enabled
	case "cache.ttlSeconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("cache.ttlSeconds must be an integer: %w", err)
		}
		cfg.Cache.TTLSeconds = n
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
