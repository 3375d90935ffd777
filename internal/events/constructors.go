package events

import (
	"fmt"

	"github.com/google/uuid"
)

// maxExcerpt bounds how much of an offending line is kept in a parse warning.
const maxExcerpt = 160

// NewParseWarning creates a Diagnostic for a malformed line or block.
func NewParseWarning(artifact, dialect string, line int, reason, excerpt string) *Diagnostic {
	d := &Diagnostic{
		ID:       uuid.New().String(),
		Type:     TypeParseWarning,
		Severity: SeverityWarning,
		Source:   artifact,
		Line:     line,
		Message:  reason,
	}
	d.setData(ParseWarningData{Dialect: dialect, Excerpt: truncate(excerpt, maxExcerpt)})
	return d
}

// NewArtifactUnreadable creates a Diagnostic for an artifact whose facts are all unknown.
func NewArtifactUnreadable(artifact string, err error) *Diagnostic {
	return &Diagnostic{
		ID:       uuid.New().String(),
		Type:     TypeArtifactUnreadable,
		Severity: SeverityError,
		Source:   artifact,
		Message:  err.Error(),
	}
}

// NewInsufficientData creates a Diagnostic for a rule skipped because required
// fact domains are unknown.
func NewInsufficientData(ruleID string, missing []string) *Diagnostic {
	d := &Diagnostic{
		ID:       uuid.New().String(),
		Type:     TypeInsufficientData,
		Severity: SeverityInfo,
		Source:   ruleID,
		Message:  fmt.Sprintf("skipped: unknown facts %v", missing),
	}
	d.setData(InsufficientDataData{MissingDomains: missing})
	return d
}

// NewSubjectSkipped creates a Diagnostic for one entity a rule could not judge
// while it still evaluated the rest.
func NewSubjectSkipped(ruleID, subject, reason string) *Diagnostic {
	d := &Diagnostic{
		ID:       uuid.New().String(),
		Type:     TypeInsufficientData,
		Severity: SeverityInfo,
		Source:   ruleID,
		Message:  fmt.Sprintf("%s skipped: %s", subject, reason),
	}
	d.setData(InsufficientDataData{Subject: subject})
	return d
}

// NewRuleFailure creates a Diagnostic for a rule whose evaluation failed.
func NewRuleFailure(ruleID, kind string, panicked bool, err error) *Diagnostic {
	d := &Diagnostic{
		ID:       uuid.New().String(),
		Type:     TypeRuleEvaluationFailure,
		Severity: SeverityError,
		Source:   ruleID,
		Message:  err.Error(),
	}
	d.setData(RuleFailureData{Panicked: panicked, Kind: kind})
	return d
}

// NewConfigWarning creates a Diagnostic for a non-fatal threshold document problem.
func NewConfigWarning(source, message string) *Diagnostic {
	return &Diagnostic{
		ID:       uuid.New().String(),
		Type:     TypeConfigWarning,
		Severity: SeverityWarning,
		Source:   source,
		Message:  message,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
