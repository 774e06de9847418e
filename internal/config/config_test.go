package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"remote", ModeRemote},
		{"local", ModeLocal},
		{"invalid", ModeRemote}, // Default
		{"", ModeRemote},
	}

	for _, tt := range tests {
		if got := ParseMode(tt.input); got != tt.want {
			t.Errorf("ParseMode(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 6123 {
		t.Errorf("Port = %d, want 6123", cfg.Server.Port)
	}
	if cfg.Server.Bind != "0.0.0.0" {
		t.Errorf("Bind = %q", cfg.Server.Bind)
	}
	if cfg.Poll.Interval.Duration() != 30*time.Second {
		t.Errorf("Poll.Interval = %s", cfg.Poll.Interval.Duration())
	}
	if cfg.Poll.ReadTimeout.Duration() != 60*time.Second {
		t.Errorf("Poll.ReadTimeout = %s", cfg.Poll.ReadTimeout.Duration())
	}
	if cfg.Database.Path != "./zwavenet.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Mode != ModeRemote {
		t.Errorf("Mode = %s", cfg.Mode)
	}
	if !cfg.InsecureSkipVerify() {
		t.Error("InsecureSkipVerify should default to true")
	}
	if cfg.API.RefreshInterval.Duration() != 5*time.Second || cfg.API.RefreshBurst != 1 {
		t.Errorf("API = %+v", cfg.API)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
mode: local
hub:
  url: https://hub.local:8123
  token: abc
  insecure_skip_verify: false
poll:
  interval: 10s
server:
  port: 8080
log:
  level: debug
  format: json
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Mode != ModeLocal {
		t.Errorf("Mode = %s", cfg.Mode)
	}
	if cfg.Poll.Interval.Duration() != 10*time.Second {
		t.Errorf("Poll.Interval = %s", cfg.Poll.Interval.Duration())
	}
	// Unset values still get defaults
	if cfg.Poll.ReadTimeout.Duration() != DefaultReadTimeout {
		t.Errorf("Poll.ReadTimeout = %s", cfg.Poll.ReadTimeout.Duration())
	}
	if cfg.InsecureSkipVerify() {
		t.Error("InsecureSkipVerify should honour explicit false")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestParseInvalidDuration(t *testing.T) {
	_, err := Parse([]byte("poll:\n  interval: soon\n"))
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(envFrom(map[string]string{
		EnvHubURL:     "http://homeassistant:8123/",
		EnvHubToken:   "token",
		EnvSSLKey:     "/ssl/key.pem",
		EnvSSLCert:    "/ssl/cert.pem",
		EnvServerPort: "7000",
		EnvDebug:      "true",
		EnvLocal:      "1",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.Hub.URL != "http://homeassistant:8123" {
		t.Errorf("Hub.URL = %q", cfg.Hub.URL)
	}
	if cfg.Hub.Token != "token" {
		t.Errorf("Hub.Token = %q", cfg.Hub.Token)
	}
	if !cfg.TLSEnabled() {
		t.Error("TLS should be enabled with key and certificate")
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Mode != ModeLocal {
		t.Errorf("Mode = %s", cfg.Mode)
	}
}

func TestApplyEnvFalseFlags(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(envFrom(map[string]string{EnvDebug: "false", EnvLocal: "no"})); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Mode != ModeRemote {
		t.Errorf("flags applied unexpectedly: level=%s mode=%s", cfg.Log.Level, cfg.Mode)
	}
}

func TestApplyEnvBadPort(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(envFrom(map[string]string{EnvServerPort: "http"})); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErr  bool
		sentinel error
	}{
		{
			name: "remote with hub",
			mutate: func(c *Config) {
				c.Hub.URL = "http://hub:8123"
				c.Hub.Token = "t"
			},
		},
		{
			name:     "remote without token",
			mutate:   func(c *Config) { c.Hub.URL = "http://hub:8123" },
			wantErr:  true,
			sentinel: ErrMissingHub,
		},
		{
			name:   "local without hub",
			mutate: func(c *Config) { c.Mode = ModeLocal },
		},
		{
			name: "bad port",
			mutate: func(c *Config) {
				c.Mode = ModeLocal
				c.Server.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "unknown log level",
			mutate: func(c *Config) {
				c.Mode = ModeLocal
				c.Log.Level = "loud"
			},
			wantErr: true,
		},
		{
			name: "key without certificate",
			mutate: func(c *Config) {
				c.Mode = ModeLocal
				c.Server.TLS.KeyFile = "/ssl/key.pem"
			},
			wantErr: true,
		},
		{
			name: "malformed hub url",
			mutate: func(c *Config) {
				c.Hub.URL = "not a url"
				c.Hub.Token = "t"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("Validate() error = %v, want %v", err, tt.sentinel)
			}
		})
	}
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		hub  string
		want string
	}{
		{"http://hub:8123", "ws://hub:8123"},
		{"https://hub.example.org", "wss://hub.example.org"},
		{"ws://already", "ws://already"},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Hub.URL = tt.hub
		if got := cfg.WebSocketURL(); got != tt.want {
			t.Errorf("WebSocketURL(%q) = %q, want %q", tt.hub, got, tt.want)
		}
	}
}

func TestLoadFromPathAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Hub.URL = "http://hub:8123"
	cfg.Poll.Interval = Duration(45 * time.Second)
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, gotPath, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if gotPath != path {
		t.Errorf("path = %q", gotPath)
	}
	if loaded.Hub.URL != "http://hub:8123" || loaded.Poll.Interval.Duration() != 45*time.Second {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestFindConfigPathFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("mode: local\n"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvConfigPath, path)
	if got := FindConfigPath(); got != path {
		t.Errorf("FindConfigPath() = %q, want %q", got, path)
	}

	cfg, gotPath, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if gotPath != path || cfg.Mode != ModeLocal {
		t.Errorf("Load() = %s from %q", cfg.Mode, gotPath)
	}
}

func TestSearchPaths(t *testing.T) {
	got := SearchPaths(envFrom(map[string]string{
		EnvConfigPath:     "/srv/zw.yaml",
		"XDG_CONFIG_HOME": "/xdg",
		"HOME":            "/home/pi",
	}))
	want := []string{
		"/srv/zw.yaml",
		"zwavenet.yaml",
		"/xdg/zwavenet/config.yaml",
		"/home/pi/.config/zwavenet/config.yaml",
		"/etc/zwavenet/config.yaml",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("SearchPaths() = %v, want %v", got, want)
	}

	bare := SearchPaths(envFrom(nil))
	if len(bare) != 2 || bare[0] != ConfigFileName {
		t.Errorf("SearchPaths() without env = %v", bare)
	}
}

func TestSummary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hub.URL = "http://hub:8123"
	s := cfg.Summary()
	for _, want := range []string{"Mode: remote", "http://hub:8123", "0.0.0.0:6123"} {
		if !strings.Contains(s, want) {
			t.Errorf("Summary() missing %q:\n%s", want, s)
		}
	}
}
