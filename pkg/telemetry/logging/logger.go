package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format is the output format for logs.
type Format string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = "json"
	// FormatText outputs logs in plain text format.
	FormatText Format = "text"
)

// Config contains configuration for the logger.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string

	// Format is the output format ("json" or "text").
	Format string

	// Writer is the output writer. Defaults to os.Stderr.
	Writer io.Writer
}

// New builds a slog.Logger from the configuration. The returned logger is
// not installed as the process default; use Install for that.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch Format(strings.ToLower(cfg.Format)) {
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	case FormatJSON, "":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %q", cfg.Format)
	}

	return slog.New(handler), nil
}

// Install builds a logger from the configuration and installs it as the
// process-wide slog default, so that components using slog.Default pick
// it up.
func Install(cfg Config) (*slog.Logger, error) {
	logger, err := New(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %q", s)
	}
}
