// Package session holds per-instance client configuration and credential
// persistence for a TeamDynamix instance: domain, environment, default
// application names, and the bearer token file.
package session

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTokenFile is the token file name used when none is configured.
const DefaultTokenFile = "tdx.key"

// Config represents one configured remote instance. One Config maps to one
// tdx.Instance; there is no ambient singleton.
type Config struct {
	Domain           string `yaml:"domain"`
	Sandbox          bool   `yaml:"sandbox"`
	DefaultTicketApp string `yaml:"default_ticket_app,omitempty"`
	DefaultAssetApp  string `yaml:"default_asset_app,omitempty"`
	TokenFile        string `yaml:"token_file,omitempty"`
}

// Validate checks that the config can address a remote instance.
func (c *Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("domain required")
	}
	return nil
}

// Load reads a Config from a YAML file. A missing file returns a zero config
// with the sandbox environment selected, so a fresh setup never talks to
// production by accident.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Sandbox: true}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadToken reads a bearer token from a flat file. A missing file is a
// surfaced error with no fallback: the caller must obtain a token first.
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("loading auth token from %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveToken writes a bearer token to a flat file for later use. The file is
// created owner-readable only.
func SaveToken(path, token string) error {
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("saving auth token to %s: %w", path, err)
	}
	return nil
}
