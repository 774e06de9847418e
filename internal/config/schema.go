package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Mode     Mode           `yaml:"mode" validate:"oneof=remote local"`
	Hub      HubConfig      `yaml:"hub"`
	Poll     PollConfig     `yaml:"poll"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	API      APIConfig      `yaml:"api"`
}

// HubConfig locates the Home Assistant hub
type HubConfig struct {
	// URL is the http(s) base URL; the websocket URL is derived from it
	URL   string `yaml:"url" validate:"omitempty,url"`
	Token string `yaml:"token"`
	// InsecureSkipVerify defaults to true since hubs commonly use self-signed certificates
	InsecureSkipVerify *bool `yaml:"insecure_skip_verify,omitempty"`
}

// PollConfig controls the poll loop
type PollConfig struct {
	Interval         Duration `yaml:"interval" validate:"gt=0"`
	ReadTimeout      Duration `yaml:"read_timeout" validate:"gt=0"`
	HandshakeTimeout Duration `yaml:"handshake_timeout" validate:"gt=0"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Bind string    `yaml:"bind" validate:"required"`
	Port int       `yaml:"port" validate:"min=1,max=65535"`
	TLS  TLSConfig `yaml:"tls"`
}

// TLSConfig enables HTTPS when both files are set
type TLSConfig struct {
	KeyFile  string `yaml:"key_file" validate:"required_with=CertFile"`
	CertFile string `yaml:"cert_file" validate:"required_with=KeyFile"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
	// History is the number of snapshots kept
	History int `yaml:"history" validate:"min=1"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
	// File additionally writes log lines to this path
	File string `yaml:"file,omitempty"`
}

// APIConfig holds HTTP API limits
type APIConfig struct {
	// RefreshInterval is the minimum spacing of manual refreshes
	RefreshInterval Duration `yaml:"refresh_interval" validate:"gt=0"`
	RefreshBurst    int      `yaml:"refresh_burst" validate:"min=1"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
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
