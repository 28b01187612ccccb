// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "envspec.yaml"

// Config is the root configuration structure.
type Config struct {
	// Channels are the ambient channels used when exporting prefixes.
	Channels []string       `yaml:"channels"`
	Remote   RemoteConfig   `yaml:"remote"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// RemoteConfig configures fetching of remote environment files.
type RemoteConfig struct {
	Schemes  []string          `yaml:"schemes"`
	APIKey   string            `yaml:"api_key,omitempty"`
	Timeout  time.Duration     `yaml:"timeout"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	MaxBytes int64             `yaml:"max_bytes"`
}

// DatabaseConfig configures the prefix inventory database.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	// Metrics default to on; an explicit "enabled: false" in the file wins.
	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	ENVSPEC_CHANNELS          - Comma-separated ambient channels (default: defaults)
//	ENVSPEC_REMOTE_SCHEMES    - Comma-separated fetch schemes (default: http,https,file)
//	ENVSPEC_REMOTE_TIMEOUT    - Remote fetch timeout (default: 10s)
//	ENVSPEC_REMOTE_API_KEY    - Bearer token for remote fetches
//	ENVSPEC_DATABASE_DSN      - Inventory database path (default: envspec.db)
//	ENVSPEC_SERVER_HOST       - Server host (default: 127.0.0.1)
//	ENVSPEC_SERVER_PORT       - Server port (default: 8080)
//	ENVSPEC_LOG_LEVEL         - Log level: debug, info, warn, error (default: info)
//	ENVSPEC_LOG_FORMAT        - Log format: json or console (default: console)
//	ENVSPEC_METRICS_ENABLED   - Enable /metrics endpoint (default: true)
func LoadFromEnv() (*Config, error) {
	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	return finish(&cfg)
}

// LoadWithFallback loads path when it exists and falls back to
// environment variables and defaults otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}
	return LoadFromEnv()
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies ENVSPEC_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENVSPEC_CHANNELS"); v != "" {
		cfg.Channels = splitList(v)
	}

	// Remote configuration
	if v := os.Getenv("ENVSPEC_REMOTE_SCHEMES"); v != "" {
		cfg.Remote.Schemes = splitList(v)
	}
	if v := os.Getenv("ENVSPEC_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Remote.Timeout = d
		}
	}
	if v := os.Getenv("ENVSPEC_REMOTE_API_KEY"); v != "" {
		cfg.Remote.APIKey = v
	}

	// Database configuration
	if v := os.Getenv("ENVSPEC_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Server configuration
	if v := os.Getenv("ENVSPEC_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ENVSPEC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Logging configuration
	if v := os.Getenv("ENVSPEC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ENVSPEC_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("ENVSPEC_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

// splitList splits a comma-separated value, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if len(cfg.Channels) == 0 {
		cfg.Channels = []string{"defaults"}
	}

	if len(cfg.Remote.Schemes) == 0 {
		cfg.Remote.Schemes = []string{"http", "https", "file"}
	}
	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = 10 * time.Second
	}
	if cfg.Remote.MaxBytes == 0 {
		cfg.Remote.MaxBytes = 10 << 20
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "envspec.db"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	for i, ch := range cfg.Channels {
		if strings.TrimSpace(ch) == "" {
			return fmt.Errorf("channels[%d] is empty", i)
		}
	}

	for _, s := range cfg.Remote.Schemes {
		if s == "" || strings.Contains(s, ":") {
			return fmt.Errorf("remote.schemes: invalid scheme %q", s)
		}
	}
	if cfg.Remote.Timeout < 0 {
		return fmt.Errorf("remote.timeout must not be negative")
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got %q", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}
