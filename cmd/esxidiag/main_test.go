package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/esxidiag/internal/config"
	"github.com/steveyegge/esxidiag/internal/engine"
	"github.com/steveyegge/esxidiag/internal/events"
	"github.com/steveyegge/esxidiag/internal/health"
	"github.com/steveyegge/esxidiag/internal/types"
)

func init() {
	color.NoColor = true
}

func sampleReport() *engine.Report {
	return &engine.Report{
		RunID:      "run-1",
		Collection: "/tmp/esxi01",
		AnalyzedAt: time.Date(2024, 10, 11, 12, 0, 0, 0, time.UTC),
		Findings: types.FindingList{
			{
				RuleID: "storage.high_latency", Category: types.CategoryStorage, Severity: types.SeverityHigh,
				Title: "High Storage Latency",
				Evidence: []types.Evidence{
					{Label: "device", Value: "naa.1"},
					{Label: "latency", Value: "25 ms"},
					{Label: "threshold", Value: "> 20 ms"},
				},
				Remediation: []string{"Investigate storage bottlenecks"},
				References:  []string{"https://kb.vmware.com/s/article/2019131"},
			},
			{
				RuleID: "vm.stale_snapshot", Category: types.CategoryVM, Severity: types.SeverityLow,
				Title: "Old VM Snapshots",
				Evidence: []types.Evidence{
					{Label: "snapshot", Value: "web01/old"},
				},
			},
		},
		Diagnostics: []events.Diagnostic{
			*events.NewParseWarning("perf_disk_latency.txt", "storage_adapter", 5, "invalid latency", "naa.1 n/a"),
			*events.NewInsufficientData("hardware.sensor_alert", []string{"sensors"}),
		},
	}
}

func TestDisplayReport(t *testing.T) {
	var buf bytes.Buffer
	displayReport(&buf, sampleReport(), false)
	out := buf.String()

	assert.Contains(t, out, "storage.high_latency")
	assert.Contains(t, out, "latency: 25 ms")
	assert.Contains(t, out, "2 findings: 1 high, 1 low")
	assert.Contains(t, out, "1 parse_warning, 1 insufficient_data")
	assert.NotContains(t, out, "Investigate storage bottlenecks")

	buf.Reset()
	displayReport(&buf, sampleReport(), true)
	out = buf.String()
	assert.Contains(t, out, "→ Investigate storage bottlenecks")
	assert.Contains(t, out, "[perf_disk_latency.txt:5] invalid latency")
}

func TestDisplayEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	displayReport(&buf, &engine.Report{}, false)
	assert.Contains(t, buf.String(), "No issues found")
	assert.Contains(t, buf.String(), "0 findings")
}

func TestSummarizeFindings(t *testing.T) {
	tests := []struct {
		severities []types.Severity
		want       string
	}{
		{nil, "0 findings"},
		{[]types.Severity{types.SeverityMedium}, "1 finding: 1 medium"},
		{[]types.Severity{types.SeverityLow, types.SeverityCritical, types.SeverityCritical}, "3 findings: 2 critical, 1 low"},
	}
	for _, tt := range tests {
		var list types.FindingList
		for _, s := range tt.severities {
			list = append(list, types.Finding{Severity: s})
		}
		assert.Equal(t, tt.want, summarizeFindings(list))
	}
}

func TestExitCode(t *testing.T) {
	findings := types.FindingList{{Severity: types.SeverityHigh}, {Severity: types.SeverityLow}}

	tests := []struct {
		failOn types.Severity
		want   int
	}{
		{"", exitOK},
		{types.SeverityLow, exitFindings},
		{types.SeverityHigh, exitFindings},
		{types.SeverityCritical, exitOK},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(findings, tt.failOn), "fail-on %q", tt.failOn)
	}
	assert.Equal(t, exitOK, exitCode(nil, types.SeverityLow))
}

func TestDefaultDocumentParsesToDefaults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDefaultDocument(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "thresholds:\n"))

	th, warnings, err := config.ParseThresholds(buf.Bytes(), "init")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	if diff := cmp.Diff(config.DefaultThresholds().Values(), th.Values()); diff != "" {
		t.Errorf("generated document does not round-trip (-want +got):\n%s", diff)
	}
}

func TestRenderRules(t *testing.T) {
	reg := health.DefaultRegistry()
	out := renderRules(reg.Rules(), false)
	for _, id := range reg.IDs() {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, strings.ToLower(out), "22 rules")

	md := renderRules(reg.Rules(), true)
	assert.Contains(t, md, "| storage.high_latency |")
}

func TestWriteRuleIDs(t *testing.T) {
	var buf bytes.Buffer
	writeRuleIDs(&buf, health.DefaultRegistry())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 22)
	assert.Equal(t, health.DefaultRegistry().IDs(), lines)
}

func TestRenderThresholds(t *testing.T) {
	out := renderThresholds(config.DefaultThresholds().With(config.KeyHighLatencyMS, 35))
	assert.Contains(t, out, "high_latency_ms")
	assert.Contains(t, out, "35")
	assert.Contains(t, out, "ESXIDIAG_HIGH_LATENCY_MS")
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is too long", 10, "this is..."},
		{"abc", 2, "..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
