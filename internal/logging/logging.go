// Package logging configures the structured logger shared by every package.
//
// Packages never build handlers themselves. They call New with their own
// name and log through the result; the CLI calls Init once, before any
// artifact is read, with the level and format from the run settings.
//
// Logs describe what the process did: stage boundaries at info, individual
// artifacts and rules at debug. Anything that belongs to the analysis result
// (parse warnings, skipped or failed rules) travels in the report's
// diagnostics, not only in the log.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Output formats accepted by Init.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ComponentKey is the attribute New attaches to every logger.
const ComponentKey = "component"

// Init installs a handler writing to w as the slog default; a nil w means
// stderr. At debug level each record also carries its source file and line.
// An unknown format is an error and leaves the current default in place.
func Init(level slog.Level, format string, w io.Writer) error {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	f, err := ParseFormat(format)
	if err != nil {
		return err
	}
	var handler slog.Handler
	if f == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// New returns the default logger tagged with component. The default is read
// at call time, so call New where the logging happens rather than caching a
// logger in a package variable that Init would not reach.
func New(component string) *slog.Logger {
	return slog.Default().With(slog.String(ComponentKey, component))
}

// ParseLevel maps debug/info/warn/error (case-insensitive) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat normalizes a format name. Empty means text.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown log format %q (want text or json)", s)
}
