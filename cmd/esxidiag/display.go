package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/steveyegge/esxidiag/internal/engine"
	"github.com/steveyegge/esxidiag/internal/events"
	"github.com/steveyegge/esxidiag/internal/types"
)

// maxLineLen keeps summary lines readable in an 80-column terminal.
const maxLineLen = 76

// displayReport prints a human-readable summary of report to w.
func displayReport(w io.Writer, report *engine.Report, verbose bool) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", cyan("=== ESXi Host Analysis ==="))
	fmt.Fprintf(w, "%s\n", gray(fmt.Sprintf("run %s | %s | reference time %s",
		report.RunID, report.Collection, report.AnalyzedAt.Format("2006-01-02 15:04:05Z07:00"))))
	fmt.Fprintf(w, "%s\n\n", gray(fmt.Sprintf("%d artifacts, %d records, %d rules evaluated, %d known fact domains",
		report.Stats.Artifacts, report.Stats.Records, report.Stats.RulesEvaluated, len(report.KnownDomains))))

	if len(report.Findings) == 0 {
		fmt.Fprintf(w, "%s No issues found\n", green("✓"))
	}
	for _, f := range report.Findings {
		displayFinding(w, f, verbose)
	}

	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintln(w, summarizeFindings(report.Findings))
	displayDiagnostics(w, report.Diagnostics, verbose)
}

// displayFinding prints a finding in two lines: severity, rule id and title,
// then its evidence. Verbose output adds every evidence value on its own
// line plus remediation and references.
func displayFinding(w io.Writer, f types.Finding, verbose bool) {
	sev := getSeverityColor(f.Severity)
	magenta := color.New(color.FgMagenta).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	label := fmt.Sprintf("%-8s", strings.ToUpper(string(f.Severity)))
	title := truncateString(f.Title, maxLineLen-len(label)-len(f.RuleID)-2)
	fmt.Fprintf(w, "%s %s %s\n", sev.Sprint(label), magenta(f.RuleID), title)

	if !verbose {
		if ev := joinEvidence(f.Evidence); ev != "" {
			fmt.Fprintf(w, "         %s\n", gray(ev))
		}
		return
	}
	for _, e := range f.Evidence {
		fmt.Fprintf(w, "    %s\n", gray(e.String()))
	}
	for _, r := range f.Remediation {
		fmt.Fprintf(w, "    → %s\n", r)
	}
	for _, ref := range f.References {
		fmt.Fprintf(w, "    %s\n", gray(ref))
	}
}

// displayDiagnostics prints per-type counts, and every record when verbose.
func displayDiagnostics(w io.Writer, diags []events.Diagnostic, verbose bool) {
	if len(diags) == 0 {
		return
	}
	yellow := color.New(color.FgYellow).SprintFunc()

	counts := events.Counts(diags)
	var parts []string
	for _, t := range []events.DiagnosticType{
		events.TypeConfigWarning,
		events.TypeArtifactUnreadable,
		events.TypeParseWarning,
		events.TypeInsufficientData,
		events.TypeRuleEvaluationFailure,
	} {
		if n := counts[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, t))
		}
	}
	fmt.Fprintf(w, "%s Diagnostics: %s\n", yellow("ⓘ"), strings.Join(parts, ", "))

	if !verbose {
		return
	}
	for _, d := range diags {
		loc := d.Source
		if d.Line > 0 {
			loc = fmt.Sprintf("%s:%d", d.Source, d.Line)
		}
		fmt.Fprintf(w, "  %s [%s] %s\n", getDiagnosticColor(d.Severity).Sprint(d.Type), loc, truncateString(d.Message, maxLineLen))
	}
}

// summarizeFindings returns e.g. "3 findings: 1 critical, 2 high".
func summarizeFindings(findings types.FindingList) string {
	if len(findings) == 0 {
		return "0 findings"
	}
	counts := findings.CountBySeverity()
	var parts []string
	for _, s := range []types.Severity{types.SeverityCritical, types.SeverityHigh, types.SeverityMedium, types.SeverityLow} {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	noun := "findings"
	if len(findings) == 1 {
		noun = "finding"
	}
	return fmt.Sprintf("%d %s: %s", len(findings), noun, strings.Join(parts, ", "))
}

// joinEvidence renders evidence pipe-separated, skipping log samples.
func joinEvidence(ev []types.Evidence) string {
	var fields []string
	for _, e := range ev {
		if e.Label == "sample" {
			continue
		}
		fields = append(fields, e.String())
	}
	return strings.Join(fields, " | ")
}

// getSeverityColor returns the color for a finding severity
func getSeverityColor(severity types.Severity) *color.Color {
	switch severity {
	case types.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case types.SeverityHigh:
		return color.New(color.FgRed)
	case types.SeverityMedium:
		return color.New(color.FgYellow)
	case types.SeverityLow:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}

// getDiagnosticColor returns the color for a diagnostic severity
func getDiagnosticColor(severity events.EventSeverity) *color.Color {
	switch severity {
	case events.SeverityInfo:
		return color.New(color.FgCyan)
	case events.SeverityWarning:
		return color.New(color.FgYellow)
	case events.SeverityError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgWhite)
	}
}

// truncateString truncates a string to maxLen, adding "..." if needed
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
