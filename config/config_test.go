package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/envspec/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
channels:
  - conda-forge
  - defaults

remote:
  schemes: [https]
  timeout: 5s
  headers:
    X-Team: data

database:
  dsn: ":memory:"

server:
  host: "0.0.0.0"
  port: 9090

logging:
  level: debug
  format: json
`

	cfg := writeAndLoad(t, content)

	if got := strings.Join(cfg.Channels, ","); got != "conda-forge,defaults" {
		t.Errorf("Channels = %s, want conda-forge,defaults", got)
	}
	if got := strings.Join(cfg.Remote.Schemes, ","); got != "https" {
		t.Errorf("Remote.Schemes = %s, want https", got)
	}
	if cfg.Remote.Timeout != 5*time.Second {
		t.Errorf("Remote.Timeout = %v, want 5s", cfg.Remote.Timeout)
	}
	if cfg.Remote.Headers["X-Team"] != "data" {
		t.Errorf("Remote.Headers = %v", cfg.Remote.Headers)
	}
	if cfg.Database.DSN != ":memory:" {
		t.Errorf("Database.DSN = %s, want :memory:", cfg.Database.DSN)
	}
	if cfg.Server.Addr() != "0.0.0.0:9090" {
		t.Errorf("Server.Addr() = %s, want 0.0.0.0:9090", cfg.Server.Addr())
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "server:\n  port: 8080\n")

	if got := strings.Join(cfg.Channels, ","); got != "defaults" {
		t.Errorf("default Channels = %s, want defaults", got)
	}
	if got := strings.Join(cfg.Remote.Schemes, ","); got != "http,https,file" {
		t.Errorf("default Remote.Schemes = %s, want http,https,file", got)
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Errorf("default Remote.Timeout = %v, want 10s", cfg.Remote.Timeout)
	}
	if cfg.Remote.MaxBytes != 10<<20 {
		t.Errorf("default Remote.MaxBytes = %d", cfg.Remote.MaxBytes)
	}
	if cfg.Database.DSN != "envspec.db" {
		t.Errorf("default Database.DSN = %s, want envspec.db", cfg.Database.DSN)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("default Host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("default Logging = %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("default Metrics = %+v", cfg.Metrics)
	}
}

func TestLoad_MetricsDisabled(t *testing.T) {
	cfg := writeAndLoad(t, "metrics:\n  enabled: false\n")
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_ENVSPEC_TOKEN", "secret")

	cfg := writeAndLoad(t, "remote:\n  api_key: ${TEST_ENVSPEC_TOKEN}\n")
	if cfg.Remote.APIKey != "secret" {
		t.Errorf("Remote.APIKey = %s, want secret", cfg.Remote.APIKey)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"empty channel", "channels: [conda-forge, '']\n", "channels[1]"},
		{"bad scheme", "remote:\n  schemes: ['s3:']\n", "remote.schemes"},
		{"bad metrics path", "metrics:\n  path: metrics\n", "metrics.path"},
		{"invalid yaml", "channels: [unclosed\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := writeAndLoadErr(t, tt.content)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENVSPEC_CHANNELS", "conda-forge, bioconda,,")
	t.Setenv("ENVSPEC_REMOTE_SCHEMES", "https")
	t.Setenv("ENVSPEC_REMOTE_TIMEOUT", "3s")
	t.Setenv("ENVSPEC_REMOTE_API_KEY", "tok")
	t.Setenv("ENVSPEC_DATABASE_DSN", "/tmp/inv.db")
	t.Setenv("ENVSPEC_SERVER_HOST", "0.0.0.0")
	t.Setenv("ENVSPEC_SERVER_PORT", "9999")
	t.Setenv("ENVSPEC_LOG_LEVEL", "warn")
	t.Setenv("ENVSPEC_LOG_FORMAT", "json")
	t.Setenv("ENVSPEC_METRICS_ENABLED", "off")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}

	if got := strings.Join(cfg.Channels, ","); got != "conda-forge,bioconda" {
		t.Errorf("Channels = %s, want conda-forge,bioconda", got)
	}
	if got := strings.Join(cfg.Remote.Schemes, ","); got != "https" {
		t.Errorf("Remote.Schemes = %s", got)
	}
	if cfg.Remote.Timeout != 3*time.Second {
		t.Errorf("Remote.Timeout = %v", cfg.Remote.Timeout)
	}
	if cfg.Remote.APIKey != "tok" {
		t.Errorf("Remote.APIKey = %s", cfg.Remote.APIKey)
	}
	if cfg.Database.DSN != "/tmp/inv.db" {
		t.Errorf("Database.DSN = %s", cfg.Database.DSN)
	}
	if cfg.Server.Addr() != "0.0.0.0:9999" {
		t.Errorf("Server.Addr() = %s", cfg.Server.Addr())
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("ENVSPEC_CHANNELS", "bioconda")
	t.Setenv("ENVSPEC_SERVER_PORT", "7000")

	cfg := writeAndLoad(t, "channels: [conda-forge]\nserver:\n  port: 9090\n")

	if got := strings.Join(cfg.Channels, ","); got != "bioconda" {
		t.Errorf("Channels = %s, want env override bioconda", got)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d, want env override 7000", cfg.Server.Port)
	}
}

func TestEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("ENVSPEC_SERVER_PORT", "not-a-number")
	t.Setenv("ENVSPEC_REMOTE_TIMEOUT", "soon")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Errorf("Remote.Timeout = %v, want default 10s", cfg.Remote.Timeout)
	}
}

func TestParseBoolValues(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"no", false},
		{"off", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("ENVSPEC_METRICS_ENABLED", tt.value)
			cfg, err := config.LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv error: %v", err)
			}
			if cfg.Metrics.Enabled != tt.want {
				t.Errorf("Metrics.Enabled = %v, want %v", cfg.Metrics.Enabled, tt.want)
			}
		})
	}
}

func TestLoadWithFallback_FileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultPath)
	if err := os.WriteFile(path, []byte("channels: [conda-forge]\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if got := strings.Join(cfg.Channels, ","); got != "conda-forge" {
		t.Errorf("Channels = %s, want conda-forge", got)
	}
}

func TestLoadWithFallback_MissingFile(t *testing.T) {
	cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if got := strings.Join(cfg.Channels, ","); got != "defaults" {
		t.Errorf("Channels = %s, want defaults", got)
	}
}

func TestLoadWithFallback_EmptyPath(t *testing.T) {
	cfg, err := config.LoadWithFallback("")
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
}

func TestLoadWithFallback_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultPath)
	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.LoadWithFallback(path); err == nil {
		t.Error("expected validation error from existing file")
	}
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := writeAndLoadErr(t, content)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeAndLoadErr(t *testing.T, content string) (*config.Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return config.Load(path)
}
