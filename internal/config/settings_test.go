package config

import (
	"strings"
	"testing"
)

func TestDefaultRunSettings(t *testing.T) {
	cfg := DefaultRunSettings()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default settings should be valid: %v", err)
	}
	if cfg.Workers < 1 || cfg.Workers > 8 {
		t.Errorf("Expected Workers in 1..8, got %d", cfg.Workers)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("unexpected logging defaults: %s", cfg)
	}
}

func TestRunSettingsValidate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      RunSettings
		wantErr  bool
		errorMsg string
	}{
		{name: "minimum workers", cfg: RunSettings{Workers: 1, LogLevel: "debug", LogFormat: "json"}},
		{name: "zero workers", cfg: RunSettings{Workers: 0, LogLevel: "info", LogFormat: "text"}, wantErr: true, errorMsg: "workers must be between 1 and 64"},
		{name: "too many workers", cfg: RunSettings{Workers: 65, LogLevel: "info", LogFormat: "text"}, wantErr: true, errorMsg: "workers"},
		{name: "bad level", cfg: RunSettings{Workers: 2, LogLevel: "chatty", LogFormat: "text"}, wantErr: true, errorMsg: "log_level"},
		{name: "bad format", cfg: RunSettings{Workers: 2, LogLevel: "info", LogFormat: "xml"}, wantErr: true, errorMsg: "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("error %q does not contain %q", err, tt.errorMsg)
			}
		})
	}
}

func TestRunSettingsFromEnv(t *testing.T) {
	t.Setenv("ESXIDIAG_WORKERS", "3")
	t.Setenv("ESXIDIAG_LOG_FORMAT", "json")

	cfg, err := RunSettingsFromEnv()
	if err != nil {
		t.Fatalf("RunSettingsFromEnv: %v", err)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %s, want json", cfg.LogFormat)
	}

	t.Setenv("ESXIDIAG_WORKERS", "many")
	if _, err := RunSettingsFromEnv(); err == nil {
		t.Error("expected error for non-numeric ESXIDIAG_WORKERS")
	}
}
