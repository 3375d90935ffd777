package events

import (
	"sort"
)

// DiagnosticType identifies what kind of run-quality record a Diagnostic is.
// Diagnostics travel beside the Finding List and never mix with it.
type DiagnosticType string

const (
	// TypeArtifactUnreadable indicates an artifact could not be read or decoded;
	// every fact it would have supplied stays unknown
	TypeArtifactUnreadable DiagnosticType = "artifact_unreadable"
	// TypeParseWarning indicates a malformed line or block that was skipped
	TypeParseWarning DiagnosticType = "parse_warning"
	// TypeInsufficientData indicates a rule (or one subject of a rule) was skipped
	// because a fact it needs is unknown
	TypeInsufficientData DiagnosticType = "insufficient_data"
	// TypeRuleEvaluationFailure indicates a rule's own logic failed; other rules still ran
	TypeRuleEvaluationFailure DiagnosticType = "rule_evaluation_failure"
	// TypeConfigWarning indicates a non-fatal problem in the threshold document
	TypeConfigWarning DiagnosticType = "config_warning"
)

// IsValid checks if the diagnostic type value is valid
func (t DiagnosticType) IsValid() bool {
	switch t {
	case TypeArtifactUnreadable, TypeParseWarning, TypeInsufficientData,
		TypeRuleEvaluationFailure, TypeConfigWarning:
		return true
	}
	return false
}

// EventSeverity represents the severity level of a diagnostic.
type EventSeverity string

const (
	// SeverityInfo indicates informational records
	SeverityInfo EventSeverity = "info"
	// SeverityWarning indicates potentially problematic records
	SeverityWarning EventSeverity = "warning"
	// SeverityError indicates error records
	SeverityError EventSeverity = "error"
)

// Diagnostic is one run-quality record produced while reading, parsing, or evaluating.
type Diagnostic struct {
	// ID is the unique identifier for this record
	ID string `json:"id"`
	// Type is the kind of record
	Type DiagnosticType `json:"type"`
	// Severity is the severity level of this record
	Severity EventSeverity `json:"severity"`
	// Source is the artifact name or rule id the record concerns
	Source string `json:"source"`
	// Line is the 1-based line in the artifact, 0 when not line-specific
	Line int `json:"line,omitempty"`
	// Message is a human-readable description
	Message string `json:"message"`
	// Data contains structured, type-specific data (must be JSON-serializable)
	Data map[string]interface{} `json:"data,omitempty"`
}

// ParseWarningData contains structured data for parse warnings.
type ParseWarningData struct {
	// Dialect is the parser that rejected the line
	Dialect string `json:"dialect"`
	// Excerpt is the offending text, truncated
	Excerpt string `json:"excerpt"`
}

// InsufficientDataData contains structured data for skipped rules.
type InsufficientDataData struct {
	// MissingDomains lists the fact domains that were unknown
	MissingDomains []string `json:"missing_domains,omitempty"`
	// Subject names the single entity skipped when the rule still ran for others
	Subject string `json:"subject,omitempty"`
}

// RuleFailureData contains structured data for rule evaluation failures.
type RuleFailureData struct {
	// Panicked is true when the failure was a recovered panic
	Panicked bool `json:"panicked"`
	// Kind is the rule's condition kind
	Kind string `json:"kind"`
}

// Counts tallies diagnostics per type.
func Counts(diags []Diagnostic) map[DiagnosticType]int {
	counts := make(map[DiagnosticType]int)
	for _, d := range diags {
		counts[d.Type]++
	}
	return counts
}

// Filter returns the diagnostics of the given type, in order.
func Filter(diags []Diagnostic, t DiagnosticType) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Type == t {
			out = append(out, d)
		}
	}
	return out
}

// Sort orders diagnostics by type, source, line, then message. IDs are ignored
// so that two runs over the same input list diagnostics in the same order.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Message < b.Message
	})
}
