package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"zwavenet/internal/config"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer closer.Close()

	logger.Info().Msg("hidden")
	logger.Warn().Str("component", "poller").Msg("visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if entry["message"] != "visible" || entry["component"] != "poller" || entry["level"] != "warn" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewLoggerBadLevel(t *testing.T) {
	var buf bytes.Buffer
	_, out, err := newLogger(config.LogConfig{Level: "loud", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	if out.Level() != zerolog.InfoLevel {
		t.Errorf("level = %s, want info", out.Level())
	}
}

func TestOutputSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, out, err := newLogger(config.LogConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	child := logger.With().Str("component", "poller").Logger()

	child.Debug().Msg("before")
	if got := out.SetLevel("debug"); got != zerolog.DebugLevel {
		t.Fatalf("SetLevel() = %s, want debug", got)
	}
	child.Debug().Msg("after")

	if strings.Contains(buf.String(), "before") {
		t.Errorf("debug line logged at info level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "after") {
		t.Errorf("debug line missing after level change: %q", buf.String())
	}
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zwavenet.log")

	var buf bytes.Buffer
	logger, closer, err := newLogger(config.LogConfig{Level: "debug", Format: "console", File: path}, &buf)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Debug().Msg("to both")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") {
		t.Errorf("file = %q", data)
	}
	if !strings.Contains(buf.String(), "to both") {
		t.Errorf("console = %q", buf.String())
	}
}

func TestNewLoggerUnwritableFile(t *testing.T) {
	_, _, err := newLogger(config.LogConfig{File: filepath.Join(t.TempDir(), "missing", "x.log")}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
