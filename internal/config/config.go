package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// GitHubConfig holds authentication state for github.com.
type GitHubConfig struct {
	ClientID string `toml:"client_id"`
	Token    string `toml:"token"`
	Scopes   string `toml:"scopes"`
}

// EnterpriseConfig holds authentication state for a GitHub Enterprise
// Server instance.
type EnterpriseConfig struct {
	URL      string `toml:"url"`
	ClientID string `toml:"client_id"`
	Token    string `toml:"token"`
	Scopes   string `toml:"scopes"`
}

// Config holds all authdeck configuration.
type Config struct {
	GitHub     GitHubConfig     `toml:"github"`
	Enterprise EnterpriseConfig `toml:"enterprise"`
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - GITHUB_TOKEN             overrides github.token
//   - AUTHDECK_ENTERPRISE_URL  overrides enterprise.url
//   - AUTHDECK_ENTERPRISE_TOKEN overrides enterprise.token
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the authdeck config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return home + "/.config/authdeck/config.toml"
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("AUTHDECK_ENTERPRISE_URL"); v != "" {
		cfg.Enterprise.URL = v
	}
	if v := os.Getenv("AUTHDECK_ENTERPRISE_TOKEN"); v != "" {
		cfg.Enterprise.Token = v
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as
// needed. Existing file contents are overwritten. Permissions on the written
// file are 0600 since it holds tokens.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
