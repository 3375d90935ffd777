package types

import (
	"fmt"
	"sort"
	"strings"
)

// Severity ranks how urgently a finding needs attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// IsValid checks if the severity value is valid
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Rank orders severities; higher is more severe. Invalid values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Category groups findings by the host subsystem they concern.
type Category string

const (
	CategoryStorage  Category = "storage"
	CategoryNetwork  Category = "network"
	CategoryCPU      Category = "cpu"
	CategoryMemory   Category = "memory"
	CategoryVM       Category = "vm"
	CategoryConfig   Category = "configuration"
	CategorySecurity Category = "security"
	CategoryHardware Category = "hardware"
)

// IsValid checks if the category value is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryStorage, CategoryNetwork, CategoryCPU, CategoryMemory,
		CategoryVM, CategoryConfig, CategorySecurity, CategoryHardware:
		return true
	}
	return false
}

// Evidence is one observed value backing a finding.
type Evidence struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

func (e Evidence) String() string {
	return e.Label + ": " + e.Value
}

// Finding is one detected problem on the analyzed host.
// Findings are values; nothing downstream of the engine modifies them.
type Finding struct {
	RuleID      string     `json:"rule_id"`
	Category    Category   `json:"category"`
	Severity    Severity   `json:"severity"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Evidence    []Evidence `json:"evidence"`
	Remediation []string   `json:"remediation"`
	References  []string   `json:"references"`
}

// Validate checks if the finding has valid field values
func (f *Finding) Validate() error {
	if f.RuleID == "" {
		return fmt.Errorf("rule_id is required")
	}
	if strings.TrimSpace(f.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if !f.Severity.IsValid() {
		return fmt.Errorf("invalid severity: %s", f.Severity)
	}
	if !f.Category.IsValid() {
		return fmt.Errorf("invalid category: %s", f.Category)
	}
	return nil
}

// EvidenceKey returns an order-insensitive canonical form of the evidence set.
// Two findings from the same rule with equal keys are duplicates.
func (f *Finding) EvidenceKey() string {
	parts := make([]string, 0, len(f.Evidence))
	for _, e := range f.Evidence {
		parts = append(parts, e.Label+"\x1f"+e.Value)
	}
	sort.Strings(parts)
	// Sets, not multisets: repeated pairs collapse.
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "\x1e")
}

// Less reports whether a sorts before b in a FindingList: severity descending,
// then category, then rule id, then evidence.
func Less(a, b *Finding) bool {
	if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
		return ra > rb
	}
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	if a.RuleID != b.RuleID {
		return a.RuleID < b.RuleID
	}
	return a.EvidenceKey() < b.EvidenceKey()
}

// FindingList is the deduplicated, ordered output of one analysis run.
type FindingList []Finding

// CountBySeverity tallies findings per severity.
func (l FindingList) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range l {
		counts[f.Severity]++
	}
	return counts
}

// IsSorted reports whether the list respects the FindingList ordering.
func (l FindingList) IsSorted() bool {
	for i := 1; i < len(l); i++ {
		if Less(&l[i], &l[i-1]) {
			return false
		}
	}
	return true
}
