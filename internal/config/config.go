// Package config provides configuration management for zwavenet.
//
// Settings come from an optional YAML file, then environment variables
// override them. The variable names match what Home Assistant add-on
// deployments already export (HA_URL, HA_TOKEN, SSL_KEY, ...).
//
// Config file locations (priority order):
//  1. $ZWAVENET_CONFIG
//  2. ./zwavenet.yaml
//  3. ~/.config/zwavenet/config.yaml
//  4. /etc/zwavenet/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file
const (
	EnvHubURL     = "HA_URL"
	EnvHubToken   = "HA_TOKEN"
	EnvSSLKey     = "SSL_KEY"
	EnvSSLCert    = "SSL_CERTIFICATE"
	EnvDebug      = "DEBUG"
	EnvLocal      = "LOCAL"
	EnvServerPort = "SERVER_PORT"
)

const (
	DefaultPort             = 6123
	DefaultBind             = "0.0.0.0"
	DefaultPollInterval     = 30 * time.Second
	DefaultReadTimeout      = 60 * time.Second
	DefaultHandshakeTimeout = 15 * time.Second
	DefaultDatabasePath     = "./zwavenet.db"
	DefaultHistory          = 10
	DefaultRefreshInterval  = 5 * time.Second
	DefaultRefreshBurst     = 1
)

// ErrMissingHub is returned when remote mode has no hub URL or token
var ErrMissingHub = errors.New("hub url and token are required in remote mode")

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

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes YAML config data and fills in defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
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
	if c.Mode == "" {
		c.Mode = ModeRemote
	}
	if c.Hub.InsecureSkipVerify == nil {
		skip := true
		c.Hub.InsecureSkipVerify = &skip
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = Duration(DefaultPollInterval)
	}
	if c.Poll.ReadTimeout == 0 {
		c.Poll.ReadTimeout = Duration(DefaultReadTimeout)
	}
	if c.Poll.HandshakeTimeout == 0 {
		c.Poll.HandshakeTimeout = Duration(DefaultHandshakeTimeout)
	}
	if c.Server.Bind == "" {
		c.Server.Bind = DefaultBind
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Database.History == 0 {
		c.Database.History = DefaultHistory
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.API.RefreshInterval == 0 {
		c.API.RefreshInterval = Duration(DefaultRefreshInterval)
	}
	if c.API.RefreshBurst == 0 {
		c.API.RefreshBurst = DefaultRefreshBurst
	}
}

// ApplyEnv overrides settings from environment variables read through getenv
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvHubURL); v != "" {
		c.Hub.URL = strings.TrimRight(v, "/")
	}
	if v := getenv(EnvHubToken); v != "" {
		c.Hub.Token = v
	}
	if v := getenv(EnvSSLKey); v != "" {
		c.Server.TLS.KeyFile = v
	}
	if v := getenv(EnvSSLCert); v != "" {
		c.Server.TLS.CertFile = v
	}
	if v := getenv(EnvServerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvServerPort, err)
		}
		c.Server.Port = port
	}
	if isTrue(getenv(EnvDebug)) {
		c.Log.Level = "debug"
	}
	if isTrue(getenv(EnvLocal)) {
		c.Mode = ModeLocal
	}
	return nil
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

// Validate checks the struct constraints and the hub requirements of the mode
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if !c.Mode.IsLocal() && (c.Hub.URL == "" || c.Hub.Token == "") {
		return ErrMissingHub
	}
	return nil
}

// WebSocketURL derives the websocket base URL from the hub URL
func (c *Config) WebSocketURL() string {
	u := c.Hub.URL
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return u
	}
}

// InsecureSkipVerify reports whether hub certificates are checked
func (c *Config) InsecureSkipVerify() bool {
	return c.Hub.InsecureSkipVerify == nil || *c.Hub.InsecureSkipVerify
}

// TLSEnabled reports whether the HTTP server serves HTTPS
func (c *Config) TLSEnabled() bool {
	return c.Server.TLS.KeyFile != "" && c.Server.TLS.CertFile != ""
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Mode: %s, Hub: %s\n", c.Mode, c.Hub.URL)
	summary += fmt.Sprintf("Poll: %s, Read timeout: %s\n", c.Poll.Interval.Duration(), c.Poll.ReadTimeout.Duration())
	summary += fmt.Sprintf("Listen: %s (tls=%v), Database: %s", c.Addr(), c.TLSEnabled(), c.Database.Path)
	return summary
}
