// Package config loads the service's configuration: defaults, layered with
// an optional TOML file, layered with environment variables (which always
// win).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the data contract coordination
// service. Precedence: environment variables > config file > defaults.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Transport   TransportConfig   `toml:"transport"`
	Log         LogConfig         `toml:"log"`
	Webhook     WebhookConfig     `toml:"webhook"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
}

// ServerConfig holds service identity metadata. It is loaded and defaulted
// here; the RPC server does not report it (operations.list returns only the
// registered operations).
type ServerConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// TransportConfig holds transport-related settings.
type TransportConfig struct {
	// Mode selects the transport: "stdio" (default) or "http".
	Mode string `toml:"mode"`
	// Port is the HTTP listen port (default: 8420). Only used when Mode is "http".
	Port string `toml:"port"`
	// Host is the HTTP listen address (default: "0.0.0.0"). Only used when Mode is "http".
	Host string `toml:"host"`
	// CORSOrigins is the allowed CORS origin (default: "*").
	CORSOrigins string `toml:"cors_origins"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// WebhookConfig configures the outbound proposal-opened notifier (spec §5).
type WebhookConfig struct {
	URL     string `toml:"url"`     // required when Enabled; Validate rejects an enabled webhook with an empty URL
	Enabled bool   `toml:"enabled"` // false disables webhook notification (Noop is used instead)
}

// MaintenanceConfig configures the periodic invariant scanner (spec §4.7 /
// the maintenance scheduler).
type MaintenanceConfig struct {
	Enabled       bool `toml:"enabled"`
	IntervalHours int  `toml:"interval_hours"`
}

// Load creates a Config by reading from a TOML config file and environment
// variables. Precedence: environment variables > config file > defaults.
//
// Config file search order (first found wins):
//  1. Path passed via configPath parameter (from --config flag)
//  2. DCM_CONFIG environment variable
//  3. ./dcm.toml (current directory)
//  4. ~/.config/dcm/dcm.toml (XDG-style)
//
// All fields are optional in the config file. Environment variables always
// override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Name:    "dcm",
			Version: "0.1.0",
		},
		Transport: TransportConfig{
			Mode:        "stdio",
			Port:        "8420",
			Host:        "0.0.0.0",
			CORSOrigins: "*",
		},
		Log: LogConfig{
			Level: "info",
		},
		Webhook: WebhookConfig{
			Enabled: false,
		},
		Maintenance: MaintenanceConfig{
			Enabled:       true,
			IntervalHours: 1,
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile finds and parses the TOML config file. If no file is found,
// this is a no-op (config file is optional).
func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil
	}

	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	return nil
}

// resolveConfigPath determines which config file to use. Returns empty string
// if no config file is found (config file is optional).
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if p := os.Getenv("DCM_CONFIG"); p != "" {
		return p
	}

	if _, err := os.Stat("dcm.toml"); err == nil {
		return "dcm.toml"
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/dcm/dcm.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnv overlays environment variables on top of existing config values.
// An env var only takes effect if it is non-empty.
func (c *Config) applyEnv() {
	envOverride("DCM_TRANSPORT", &c.Transport.Mode)
	envOverride("DCM_PORT", &c.Transport.Port)
	envOverride("DCM_HOST", &c.Transport.Host)
	envOverride("DCM_CORS_ORIGINS", &c.Transport.CORSOrigins)

	envOverride("DCM_LOG_LEVEL", &c.Log.Level)

	envOverride("DCM_WEBHOOK_URL", &c.Webhook.URL)
	if v := os.Getenv("DCM_WEBHOOK_ENABLED"); v != "" {
		c.Webhook.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("DCM_MAINTENANCE_ENABLED"); v != "" {
		c.Maintenance.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("DCM_MAINTENANCE_INTERVAL_HOURS"); v != "" {
		var hours int
		if _, err := fmt.Sscanf(v, "%d", &hours); err == nil && hours > 0 {
			c.Maintenance.IntervalHours = hours
		}
	}
}

// Validate checks that the config is internally consistent.
func (c *Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode: %q (must be \"stdio\" or \"http\")", c.Transport.Mode)
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required when webhook.enabled is true")
	}
	return nil
}

// envOverride sets *dst to the value of the named env var, if it is non-empty.
func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
