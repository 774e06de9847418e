// Package logging builds the root zerolog logger from the log settings.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"zwavenet/internal/config"
)

// Output is the root log sink. Its level filter can be changed at runtime
// and applies to every logger derived from the root one.
type Output struct {
	w      zerolog.LevelWriter
	level  atomic.Int32
	closer io.Closer
}

// New returns the root logger and its output.
// Component loggers are derived with logger.With().Str("component", name).
func New(cfg config.LogConfig) (zerolog.Logger, *Output, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg config.LogConfig, stderr io.Writer) (zerolog.Logger, *Output, error) {
	var out io.Writer = stderr
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, f)
		closer = f
	}

	o := &Output{w: asLevelWriter(out), closer: closer}
	o.SetLevel(cfg.Level)

	logger := zerolog.New(o).With().Timestamp().Logger()
	return logger, o, nil
}

// SetLevel changes the minimum level; unknown or empty levels mean info
func (o *Output) SetLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if lvl < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(lvl)
	}
	o.level.Store(int32(lvl))
	return lvl
}

// Level returns the current minimum level
func (o *Output) Level() zerolog.Level {
	return zerolog.Level(o.level.Load())
}

func (o *Output) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

// WriteLevel drops events below the current level
func (o *Output) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < o.Level() && l != zerolog.NoLevel {
		return len(p), nil
	}
	return o.w.WriteLevel(l, p)
}

// Close closes the log file, if any
func (o *Output) Close() error {
	return o.closer.Close()
}

func asLevelWriter(w io.Writer) zerolog.LevelWriter {
	if lw, ok := w.(zerolog.LevelWriter); ok {
		return lw
	}
	return levelWriterAdapter{w}
}

type levelWriterAdapter struct {
	io.Writer
}

func (a levelWriterAdapter) WriteLevel(_ zerolog.Level, p []byte) (int, error) {
	return a.Write(p)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
