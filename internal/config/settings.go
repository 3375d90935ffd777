package config

import (
	"fmt"
	"runtime"

	"github.com/steveyegge/esxidiag/internal/logging"
)

// RunSettings holds the knobs of one analysis run that are not thresholds.
type RunSettings struct {
	// Workers bounds parallel parsing and rule evaluation
	// Default: GOMAXPROCS capped at 8, Range: 1-64
	Workers int

	// LogLevel is one of debug, info, warn, error
	// Default: "info"
	LogLevel string

	// LogFormat is "text" or "json"
	// Default: "text"
	LogFormat string
}

// DefaultRunSettings returns the default run settings
func DefaultRunSettings() RunSettings {
	workers := runtime.GOMAXPROCS(0)
	if workers > 8 {
		workers = 8
	}
	return RunSettings{
		Workers:   workers,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Validate checks if the settings have valid values
func (s RunSettings) Validate() error {
	if s.Workers < 1 || s.Workers > 64 {
		return fmt.Errorf("workers must be between 1 and 64 (got %d)", s.Workers)
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := logging.ParseFormat(s.LogFormat); err != nil {
		return fmt.Errorf("log_format: %w", err)
	}
	return nil
}

// String returns a human-readable representation of the settings
func (s RunSettings) String() string {
	return fmt.Sprintf("RunSettings{Workers: %d, LogLevel: %s, LogFormat: %s}",
		s.Workers, s.LogLevel, s.LogFormat)
}

// RunSettingsFromEnv creates RunSettings from environment variables,
// falling back to defaults
//
// Environment variables:
//   - ESXIDIAG_WORKERS: parallel parse/evaluation workers
//   - ESXIDIAG_LOG_LEVEL: debug, info, warn, error (default: info)
//   - ESXIDIAG_LOG_FORMAT: text or json (default: text)
//
// Returns an error if any environment variable has an invalid value.
func RunSettingsFromEnv() (RunSettings, error) {
	cfg := DefaultRunSettings()

	if err := parseEnvInt(envPrefix+"WORKERS", &cfg.Workers); err != nil {
		return cfg, err
	}
	if err := parseEnvString(envPrefix+"LOG_LEVEL", &cfg.LogLevel); err != nil {
		return cfg, err
	}
	if err := parseEnvString(envPrefix+"LOG_FORMAT", &cfg.LogFormat); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid run settings from environment: %w", err)
	}
	return cfg, nil
}
