package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_HasComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(slog.LevelDebug, "text", &buf); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	logger := New("parsers")
	logger.Info("hello")

	output := buf.String()
	if !strings.Contains(output, "component=parsers") {
		t.Errorf("expected component=parsers in output, got: %s", output)
	}
}

func TestInit_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(slog.LevelInfo, "json", &buf); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	New("engine").Info("json check")

	output := buf.String()
	if !strings.Contains(output, `"level":"INFO"`) {
		t.Errorf("expected JSON level field, got: %s", output)
	}
	if !strings.Contains(output, `"component":"engine"`) {
		t.Errorf("expected JSON component field, got: %s", output)
	}
}

func TestInit_LevelGating(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(slog.LevelWarn, "text", &buf); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	logger := New("gate-test")
	logger.Info("should be suppressed")
	logger.Warn("should appear")

	output := buf.String()
	if strings.Contains(output, "should be suppressed") {
		t.Error("Info message should be suppressed at Warn level")
	}
	if !strings.Contains(output, "should appear") {
		t.Error("Warn message should appear at Warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInit_UnknownFormatKeepsDefault(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(slog.LevelInfo, "text", &buf); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := Init(slog.LevelInfo, "xml", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown format")
	}

	New("engine").Info("still here")
	if !strings.Contains(buf.String(), "still here") {
		t.Errorf("previous handler should stay installed, got: %q", buf.String())
	}
}

func TestInit_DebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(slog.LevelDebug, "text", &buf); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	New("parsers").Debug("with source")
	if !strings.Contains(buf.String(), "source=") {
		t.Errorf("expected source attribute at debug level, got: %s", buf.String())
	}

	buf.Reset()
	if err := Init(slog.LevelInfo, "text", &buf); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	New("parsers").Info("without source")
	if strings.Contains(buf.String(), "source=") {
		t.Errorf("unexpected source attribute at info level: %s", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", FormatText, false},
		{"TEXT", FormatText, false},
		{" json ", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
