// Package config provides configuration loading, validation, and defaults
// for the ProjectHub server. It handles a JSON config file plus environment
// variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Default values applied when neither the config file nor the environment
// provides a setting.
const (
	DefaultHTTPAddr   = ":8080"
	DefaultDBPath     = "data/projecthub.db"
	DefaultUploadsDir = "uploads"

	ConfigFilename = "config.json"
)

// ChatConfig controls the assistant chat endpoint.
type ChatConfig struct {
	Enabled bool `json:"enabled"`
}

// Config holds all server configuration.
type Config struct {
	HTTPAddr   string `json:"http_addr"`
	DBPath     string `json:"db_path"`
	UploadsDir string `json:"uploads_dir"`
	SeedDemo   bool   `json:"seed_demo_data"`
	// ReplaceUpdates restores the legacy PUT-replaces semantics for documents
	// and milestones instead of the uniform read-merge-write discipline.
	ReplaceUpdates bool       `json:"replace_updates"`
	Chat           ChatConfig `json:"chat"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		HTTPAddr:   DefaultHTTPAddr,
		DBPath:     DefaultDBPath,
		UploadsDir: DefaultUploadsDir,
		SeedDemo:   true,
		Chat:       ChatConfig{Enabled: true},
	}
}

// Load reads configuration from the given JSON file, falling back to
// defaults for any missing keys. A missing file is not an error; defaults
// plus environment overrides are used instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No config file; defaults apply.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PROJECTHUB_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("PROJECTHUB_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("PROJECTHUB_UPLOADS"); v != "" {
		cfg.UploadsDir = v
	}
}

// Validate checks the configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.UploadsDir == "" {
		return fmt.Errorf("uploads_dir must not be empty")
	}
	return nil
}

// EnsureDirs creates the data and uploads directories if absent.
func (c *Config) EnsureDirs() error {
	if dir := filepath.Dir(c.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(c.UploadsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create uploads directory %s: %w", c.UploadsDir, err)
	}
	return nil
}
