// Package log provides structured logging for Ocean using zerolog.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog's level names so callers don't need to import zerolog directly.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config controls the global logger created by Init.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

var logger zerolog.Logger

func init() {
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Init configures the package-level logger. Call once at startup.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if !cfg.JSONOutput {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(string(cfg.Level)))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// L returns the global logger.
func L() zerolog.Logger {
	return logger
}

// WithComponent returns a logger scoped to a named subsystem (e.g. "indexer", "kv").
func WithComponent(name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// WithHeight returns a logger annotated with the block height currently being processed.
func WithHeight(height uint32) zerolog.Logger {
	return logger.With().Uint32("height", height).Logger()
}

// WithColumn returns a logger annotated with the column family a storage operation touched.
func WithColumn(name string) zerolog.Logger {
	return logger.With().Str("column", name).Logger()
}
