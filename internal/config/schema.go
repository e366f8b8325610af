package config

import (
	"time"

	"netpanel/internal/auth"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Presets   PresetsConfig   `yaml:"presets"`
	Inventory InventoryConfig `yaml:"inventory"`
	Auth      AuthConfig      `yaml:"auth"`
	Client    ClientConfig    `yaml:"client"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string   `yaml:"addr" validate:"required"`
	AllowedOrigins  []string `yaml:"allowed_origins,omitempty"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout,omitempty"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// PresetsConfig points at the directory of preset files
type PresetsConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// InventoryConfig points at the machine inventory seed file. Format is
// "yaml" (default) or "ansible".
type InventoryConfig struct {
	Path   string `yaml:"path,omitempty"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=yaml ansible"`
	Watch  bool   `yaml:"watch,omitempty"`
}

// AuthConfig holds token settings and the configured accounts. With no
// users the network endpoints are served without authentication.
type AuthConfig struct {
	Secret   string      `yaml:"secret,omitempty" validate:"omitempty,min=32"`
	TokenTTL Duration    `yaml:"token_ttl,omitempty"`
	Users    []auth.User `yaml:"users,omitempty" validate:"dive"`
}

// Enabled reports whether authentication is required
func (a AuthConfig) Enabled() bool {
	return len(a.Users) > 0
}

// ClientConfig holds settings for the operator CLI
type ClientConfig struct {
	BaseURL  string   `yaml:"base_url" validate:"required,url"`
	Timeout  Duration `yaml:"timeout,omitempty"`
	Username string   `yaml:"username,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
