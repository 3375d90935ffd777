package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Equal(t, 0, Severity("bogus").Rank())
	assert.False(t, Severity("bogus").IsValid())
}

func TestFindingValidate(t *testing.T) {
	tests := []struct {
		name     string
		finding  Finding
		errorMsg string
	}{
		{
			name: "valid",
			finding: Finding{
				RuleID: "storage.high_latency", Category: CategoryStorage,
				Severity: SeverityHigh, Title: "High Storage Latency",
			},
		},
		{
			name:     "missing rule id",
			finding:  Finding{Category: CategoryStorage, Severity: SeverityHigh, Title: "x"},
			errorMsg: "rule_id is required",
		},
		{
			name:     "blank title",
			finding:  Finding{RuleID: "r", Category: CategoryStorage, Severity: SeverityHigh, Title: "  "},
			errorMsg: "title is required",
		},
		{
			name:     "bad severity",
			finding:  Finding{RuleID: "r", Category: CategoryStorage, Severity: "severe", Title: "x"},
			errorMsg: "invalid severity",
		},
		{
			name:     "bad category",
			finding:  Finding{RuleID: "r", Category: "misc", Severity: SeverityLow, Title: "x"},
			errorMsg: "invalid category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.finding.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.errorMsg)
			}
		})
	}
}

func TestEvidenceKeyIsOrderInsensitive(t *testing.T) {
	a := Finding{Evidence: []Evidence{{"device a", "25 ms"}, {"device b", "30 ms"}}}
	b := Finding{Evidence: []Evidence{{"device b", "30 ms"}, {"device a", "25 ms"}, {"device a", "25 ms"}}}
	c := Finding{Evidence: []Evidence{{"device a", "26 ms"}}}

	assert.Equal(t, a.EvidenceKey(), b.EvidenceKey())
	assert.NotEqual(t, a.EvidenceKey(), c.EvidenceKey())
}

func TestLessOrdering(t *testing.T) {
	crit := Finding{RuleID: "z", Category: CategoryVM, Severity: SeverityCritical}
	highNet := Finding{RuleID: "a", Category: CategoryNetwork, Severity: SeverityHigh}
	highStorA := Finding{RuleID: "a", Category: CategoryStorage, Severity: SeverityHigh}
	highStorB := Finding{RuleID: "b", Category: CategoryStorage, Severity: SeverityHigh}

	list := FindingList{crit, highNet, highStorA, highStorB}
	assert.True(t, list.IsSorted())

	reversed := FindingList{highStorB, highStorA, highNet, crit}
	assert.False(t, reversed.IsSorted())

	counts := list.CountBySeverity()
	assert.Equal(t, 1, counts[SeverityCritical])
	assert.Equal(t, 3, counts[SeverityHigh])
}
