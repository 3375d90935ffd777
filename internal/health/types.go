package health

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/steveyegge/esxidiag/internal/facts"
	"github.com/steveyegge/esxidiag/internal/types"
)

// ConditionKind tags which condition variant a Rule carries.
type ConditionKind string

const (
	// KindThreshold compares a measured value with a named threshold
	KindThreshold ConditionKind = "threshold_comparison"
	// KindPattern matches log entries against a regular expression
	KindPattern ConditionKind = "pattern_match"
	// KindPresence fires for every subject in a bad state
	KindPresence ConditionKind = "presence_check"
	// KindAge compares an age in days with a named threshold
	KindAge ConditionKind = "age_check"
)

// IsValid checks if the kind value is valid
func (k ConditionKind) IsValid() bool {
	switch k {
	case KindThreshold, KindPattern, KindPresence, KindAge:
		return true
	}
	return false
}

// Comparator is the comparison a threshold condition applies. Each rule
// fixes its own; a value equal to the limit only fires for >= and <=.
type Comparator string

const (
	GreaterThan    Comparator = ">"
	GreaterOrEqual Comparator = ">="
	LessThan       Comparator = "<"
	LessOrEqual    Comparator = "<="
)

// Holds reports whether value compared to limit satisfies c.
func (c Comparator) Holds(value, limit float64) bool {
	switch c {
	case GreaterThan:
		return value > limit
	case GreaterOrEqual:
		return value >= limit
	case LessThan:
		return value < limit
	case LessOrEqual:
		return value <= limit
	}
	return false
}

// Worse reports whether a is further past the limit than b under c.
func (c Comparator) Worse(a, b float64) bool {
	if c == LessThan || c == LessOrEqual {
		return a < b
	}
	return a > b
}

// IsValid checks if the comparator value is valid
func (c Comparator) IsValid() bool {
	switch c {
	case GreaterThan, GreaterOrEqual, LessThan, LessOrEqual:
		return true
	}
	return false
}

// ThresholdCondition fires for each subject whose worst sample of Measure
// satisfies Op against the threshold named Key.
type ThresholdCondition struct {
	Key     string
	Op      Comparator
	Measure Measure
}

// PatternCondition fires once per log file that has entries matching
// Pattern, quoting up to MaxSamples of them.
type PatternCondition struct {
	Pattern    *regexp.Regexp
	MaxSamples int
}

// PresenceCondition fires for each subject Check reports. MinVersion and
// MaxVersion bound CheckVersionRange (inclusive, exclusive; empty is open).
type PresenceCondition struct {
	Check      PresenceCheck
	MinVersion string
	MaxVersion string
}

// AgeCondition fires for each subject older than the threshold named Key,
// in days. Ages are measured against the run's single reference time.
type AgeCondition struct {
	Key     string
	Measure Measure
}

// Rule is one entry of the static rule table. Exactly one condition field
// is set, the one matching Kind.
type Rule struct {
	ID          string
	Category    types.Category
	Severity    types.Severity
	Title       string
	Description string

	Kind      ConditionKind
	Threshold *ThresholdCondition
	Pattern   *PatternCondition
	Presence  *PresenceCondition
	Age       *AgeCondition

	// Requires lists the fact domains that must be known for the rule to run
	Requires []facts.Domain
	// EvidenceFields are the evidence labels a finding of this rule carries
	EvidenceFields []string
	Remediation    []string
	References     []string
}

// ThresholdKeys returns the threshold keys the rule reads.
func (r *Rule) ThresholdKeys() []string {
	switch {
	case r.Threshold != nil:
		return []string{r.Threshold.Key}
	case r.Age != nil:
		return []string{r.Age.Key}
	}
	return nil
}

// Validate checks that the rule is complete and its condition matches its kind.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if r.Title == "" {
		return fmt.Errorf("rule %s: title is required", r.ID)
	}
	if !r.Severity.IsValid() {
		return fmt.Errorf("rule %s: invalid severity: %s", r.ID, r.Severity)
	}
	if !r.Category.IsValid() {
		return fmt.Errorf("rule %s: invalid category: %s", r.ID, r.Category)
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("rule %s: invalid kind: %s", r.ID, r.Kind)
	}
	for _, d := range r.Requires {
		if !d.IsValid() {
			return fmt.Errorf("rule %s: unknown domain %q", r.ID, d)
		}
	}

	set := 0
	for _, present := range []bool{r.Threshold != nil, r.Pattern != nil, r.Presence != nil, r.Age != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("rule %s: exactly one condition must be set, got %d", r.ID, set)
	}

	switch r.Kind {
	case KindThreshold:
		if r.Threshold == nil {
			return fmt.Errorf("rule %s: %s rule without threshold condition", r.ID, r.Kind)
		}
		if !r.Threshold.Op.IsValid() {
			return fmt.Errorf("rule %s: invalid comparator %q", r.ID, r.Threshold.Op)
		}
		if !r.Threshold.Measure.IsValid() {
			return fmt.Errorf("rule %s: invalid measure %q", r.ID, r.Threshold.Measure)
		}
	case KindPattern:
		if r.Pattern == nil || r.Pattern.Pattern == nil {
			return fmt.Errorf("rule %s: %s rule without pattern", r.ID, r.Kind)
		}
		if r.Pattern.MaxSamples < 0 {
			return fmt.Errorf("rule %s: negative sample count", r.ID)
		}
	case KindPresence:
		if r.Presence == nil || !r.Presence.Check.IsValid() {
			return fmt.Errorf("rule %s: %s rule without a valid check", r.ID, r.Kind)
		}
	case KindAge:
		if r.Age == nil || !r.Age.Measure.IsValid() {
			return fmt.Errorf("rule %s: %s rule without a valid measure", r.ID, r.Kind)
		}
	}
	return nil
}

// Sample is one measured value for one subject.
type Sample struct {
	Subject string
	Value   float64
	Origin  facts.Origin
}

// Skip names a subject a rule could not judge because one of its facts is
// unknown.
type Skip struct {
	Subject string
	Reason  string
}

// Hit is one subject a presence check flagged, with its evidence.
type Hit struct {
	Subject  string
	Evidence []types.Evidence
}

// FormatValue renders v with unit the way evidence shows it: "25 ms",
// "91.5%". Values are rounded to two decimals.
func FormatValue(v float64, unit string) string {
	s := strconv.FormatFloat(roundTo(v, 2), 'f', -1, 64)
	switch unit {
	case "":
		return s
	case "%":
		return s + "%"
	}
	return s + " " + unit
}
