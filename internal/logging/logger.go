// Package logging builds the process logger. The TUI owns the terminal, so
// output goes to a file or nowhere.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type Options struct {
	// Path is the file to append to. Empty discards all output.
	Path string
	// Level is debug|info|warn|error. Empty means info.
	Level string
	// Format is text|json. Empty means text.
	Format string
}

// OptionsFromEnv overlays ISSUEHUB_LOG and ISSUEHUB_LOG_FORMAT on base.
func OptionsFromEnv(base Options) Options {
	if v := strings.TrimSpace(os.Getenv("ISSUEHUB_LOG")); v != "" {
		base.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("ISSUEHUB_LOG_FORMAT")); v != "" {
		base.Format = v
	}
	return base
}

// New returns the logger and a close func for its file, if any.
func New(opts Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return Discard(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	return slog.New(newHandler(f, opts.Format, level)), f.Close, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	ho := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, ho)
	}
	return slog.NewTextHandler(w, ho)
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (expected debug|info|warn|error)", s)
	}
}
