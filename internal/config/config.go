// Package config loads the print agent's configuration from a TOML file
// on disk, layered with environment variable overrides, the way the rest
// of the fleet-management stack this agent was cut from does it.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Environment is one of the two named backend profiles.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// EnvironmentProfile pins the backend/websocket URLs for one environment.
type EnvironmentProfile struct {
	BackendURL   string `toml:"backend_url"`
	WebsocketURL string `toml:"websocket_url"`
}

var defaultProfiles = map[Environment]EnvironmentProfile{
	Development: {
		BackendURL:   "https://dev.repairmind.local",
		WebsocketURL: "wss://dev.repairmind.local/print",
	},
	Production: {
		BackendURL:   "https://app.repairmind.io",
		WebsocketURL: "wss://app.repairmind.io/print",
	},
}

// Config is the full agent configuration.
type Config struct {
	Environment       Environment `toml:"environment"`
	TenantID          string      `toml:"tenant_id"`
	ClientID          string      `toml:"client_id"`
	APIKey            string      `toml:"api_key"`
	Token             string      `toml:"token"`
	HeartbeatSeconds  int         `toml:"heartbeat_interval_seconds"`
	AutoRegister      bool        `toml:"auto_register"`
	LogLevel          string      `toml:"log_level"`
	DataDir           string      `toml:"data_dir"`
	BackendURLOverride   string `toml:"backend_url"`
	WebsocketURLOverride string `toml:"websocket_url"`
}

// DefaultConfig returns the built-in defaults before any file/env overrides.
func DefaultConfig() *Config {
	return &Config{
		Environment:      Development,
		HeartbeatSeconds: 30,
		AutoRegister:     true,
		LogLevel:         "info",
	}
}

// BackendURL resolves the effective backend URL: explicit override first,
// then the named environment's default profile.
func (c *Config) BackendURL() string {
	if c.BackendURLOverride != "" {
		return c.BackendURLOverride
	}
	return defaultProfiles[c.effectiveEnvironment()].BackendURL
}

// WebsocketURL resolves the effective websocket URL the same way.
func (c *Config) WebsocketURL() string {
	if c.WebsocketURLOverride != "" {
		return c.WebsocketURLOverride
	}
	return defaultProfiles[c.effectiveEnvironment()].WebsocketURL
}

func (c *Config) effectiveEnvironment() Environment {
	if c.Environment == Production {
		return Production
	}
	return Development
}

// Load reads configPath if present, applies defaults for anything the
// file omits, then layers environment variable overrides on top. A
// missing config file is not an error: the agent can run on env vars
// and defaults alone (e.g. inside a container).
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if _, err := toml.DecodeFile(configPath, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
			}
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WEBSOCKET_URL"); v != "" {
		cfg.WebsocketURLOverride = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.BackendURLOverride = v
	}
	if v := os.Getenv("TENANT_ID"); v != "" {
		cfg.TenantID = v
	}
	if v := os.Getenv("CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("HEARTBEAT_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HeartbeatSeconds = n
		}
	}
	if v := os.Getenv("AUTO_REGISTER"); v != "" {
		lower := strings.ToLower(v)
		cfg.AutoRegister = lower == "1" || lower == "true" || lower == "yes"
	}
	if v := os.Getenv("PRINTAGENT_ENVIRONMENT"); v != "" {
		if strings.EqualFold(v, string(Production)) {
			cfg.Environment = Production
		} else {
			cfg.Environment = Development
		}
	}
	if v := os.Getenv("PRINTAGENT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// WriteDefault writes a default configuration file, refusing to
// overwrite an existing one.
func WriteDefault(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists at %s (will not overwrite)", configPath)
	}
	return WriteAtomic(configPath, DefaultConfig())
}

// WriteAtomic serializes cfg to TOML and writes it via tmp-then-rename,
// so a crash mid-write never leaves a truncated config file behind.
func WriteAtomic(configPath string, cfg interface{}) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp := configPath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, configPath); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}
	return nil
}

// DefaultDataDir returns the per-user directory the spec pins the job
// queue file and config store under: "<home>/.repairmind-print".
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".repairmind-print")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// DefaultConfigPath returns the platform-appropriate default config file
// location, following the same search convention as the rest of the
// fleet-management stack's component config files.
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("ProgramData")
		if base == "" {
			base = os.Getenv("LOCALAPPDATA")
		}
		return filepath.Join(base, "RepairMindPrint", "config.toml")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "RepairMindPrint", "config.toml")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".repairmind-print", "config.toml")
	}
}
