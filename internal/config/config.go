// Package config provides configuration management for netpanel.
//
// Config file locations (priority order):
//  1. $NETPANEL_CONFIG
//  2. ./netpanel.yaml
//  3. $XDG_CONFIG_HOME/netpanel/config.yaml
//  4. ~/.config/netpanel/config.yaml
//  5. /etc/netpanel/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultAddr            = ":8000"
	DefaultDatabasePath    = "./netpanel.db"
	DefaultPresetsDir      = "./presets"
	DefaultTokenTTL        = 30 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
	DefaultClientBaseURL   = "http://localhost:8000"
	DefaultClientTimeout   = 10 * time.Second
)

var validate = validator.New()

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Presets.Dir == "" {
		c.Presets.Dir = DefaultPresetsDir
	}
	if c.Inventory.Path != "" && c.Inventory.Format == "" {
		c.Inventory.Format = "yaml"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = Duration(DefaultTokenTTL)
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = DefaultClientBaseURL
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = Duration(DefaultClientTimeout)
	}
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("invalid config: %s: failed %q", e.Namespace(), e.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Auth.Enabled() && c.Auth.Secret == "" {
		return errors.New("invalid config: auth.secret is required when users are configured")
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Listen: %s, Database: %s\n", c.Server.Addr, c.Database.Path)
	summary += fmt.Sprintf("Presets: %s (watch: %v)", c.Presets.Dir, c.Presets.Watch)
	if c.Inventory.Path != "" {
		summary += fmt.Sprintf("\nInventory: %s (%s)", c.Inventory.Path, c.Inventory.Format)
	}
	if c.Auth.Enabled() {
		summary += fmt.Sprintf("\nAuth: %d users, token ttl %s", len(c.Auth.Users), c.Auth.TokenTTL.Duration())
	} else {
		summary += "\nAuth: disabled"
	}
	return summary
}
