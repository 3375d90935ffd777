package deduplication

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/steveyegge/esxidiag/internal/types"
)

func finding(rule string, sev types.Severity, cat types.Category, ev ...string) types.Finding {
	f := types.Finding{
		RuleID:      rule,
		Category:    cat,
		Severity:    sev,
		Title:       "Finding " + rule,
		Remediation: []string{"fix " + rule},
		References:  []string{"https://kb.vmware.com/s/article/1"},
	}
	for i := 0; i+1 < len(ev); i += 2 {
		f.Evidence = append(f.Evidence, types.Evidence{Label: ev[i], Value: ev[i+1]})
	}
	return f
}

func TestAggregateCollapsesDuplicates(t *testing.T) {
	first := finding("storage.high_latency", types.SeverityHigh, types.CategoryStorage,
		"device", "naa.1", "latency", "25 ms")
	// Same evidence set in another order.
	second := finding("storage.high_latency", types.SeverityHigh, types.CategoryStorage,
		"latency", "25 ms", "device", "naa.1")
	second.Remediation = []string{"different payload"}

	result := Aggregate([]types.Finding{first, second})

	if len(result.Findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(result.Findings))
	}
	if got := result.Findings[0].Remediation[0]; got != "fix storage.high_latency" {
		t.Errorf("Expected first payload to be kept, got %q", got)
	}
	if orig, ok := result.WithinBatchDuplicates[1]; !ok || orig != 0 {
		t.Errorf("Expected index 1 recorded as duplicate of 0, got %v", result.WithinBatchDuplicates)
	}
	if err := result.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestAggregateKeepsDistinctFindings(t *testing.T) {
	tests := []struct {
		name string
		a, b types.Finding
	}{
		{
			name: "different evidence",
			a:    finding("storage.high_latency", types.SeverityHigh, types.CategoryStorage, "device", "naa.1"),
			b:    finding("storage.high_latency", types.SeverityHigh, types.CategoryStorage, "device", "naa.2"),
		},
		{
			name: "different rule",
			a:    finding("network.nic_down", types.SeverityHigh, types.CategoryNetwork, "nic", "vmnic1"),
			b:    finding("network.low_redundancy", types.SeverityMedium, types.CategoryNetwork, "nic", "vmnic1"),
		},
		{
			name: "subset of evidence",
			a:    finding("vm.problem_state", types.SeverityHigh, types.CategoryVM, "vm", "web01"),
			b:    finding("vm.problem_state", types.SeverityHigh, types.CategoryVM, "vm", "web01", "state", "Stuck"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Aggregate([]types.Finding{tt.a, tt.b})
			if len(result.Findings) != 2 {
				t.Errorf("Expected 2 findings, got %d", len(result.Findings))
			}
			if len(result.WithinBatchDuplicates) != 0 {
				t.Errorf("Expected no duplicates, got %v", result.WithinBatchDuplicates)
			}
		})
	}
}

func TestAggregateOrdering(t *testing.T) {
	raw := []types.Finding{
		finding("vm.stale_snapshot", types.SeverityLow, types.CategoryVM, "snapshot", "web01/old"),
		finding("storage.high_latency", types.SeverityHigh, types.CategoryStorage, "device", "naa.2"),
		finding("hardware.psod", types.SeverityCritical, types.CategoryHardware, "log", "vmkernel.log"),
		finding("network.nic_down", types.SeverityHigh, types.CategoryNetwork, "nic", "vmnic1"),
		finding("storage.high_latency", types.SeverityHigh, types.CategoryStorage, "device", "naa.1"),
	}

	result := Aggregate(raw)

	var got []string
	for _, f := range result.Findings {
		got = append(got, f.RuleID+"/"+f.Evidence[0].Value)
	}
	want := []string{
		"hardware.psod/vmkernel.log",
		"network.nic_down/vmnic1",
		"storage.high_latency/naa.1",
		"storage.high_latency/naa.2",
		"vm.stale_snapshot/web01/old",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Unexpected order:\n got  %v\n want %v", got, want)
	}
	if !result.Findings.IsSorted() {
		t.Error("Expected findings to be sorted")
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	raw := []types.Finding{
		finding("storage.high_latency", types.SeverityHigh, types.CategoryStorage, "device", "naa.2", "latency", "30 ms"),
		finding("compute.high_cpu", types.SeverityMedium, types.CategoryCPU, "cpu", "vmx", "usage", "91.5%"),
		finding("storage.high_latency", types.SeverityHigh, types.CategoryStorage, "device", "naa.1", "latency", "25 ms"),
	}
	reversed := []types.Finding{raw[2], raw[1], raw[0]}

	a, err := json.Marshal(Aggregate(raw).Findings)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(Aggregate(reversed).Findings)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("Expected identical output regardless of input order:\n%s\n%s", a, b)
	}
}

func TestAggregateDoesNotAliasInput(t *testing.T) {
	raw := []types.Finding{finding("network.nic_down", types.SeverityHigh, types.CategoryNetwork, "nic", "vmnic1")}
	result := Aggregate(raw)

	raw[0].Evidence[0].Value = "changed"
	raw[0].Remediation[0] = "changed"
	if result.Findings[0].Evidence[0].Value != "vmnic1" || result.Findings[0].Remediation[0] == "changed" {
		t.Error("Aggregated finding shares slices with the input")
	}
}

func TestAggregateNilSlicesBecomeEmpty(t *testing.T) {
	result := Aggregate([]types.Finding{{
		RuleID: "hardware.health_state", Category: types.CategoryHardware,
		Severity: types.SeverityCritical, Title: "Hardware Health",
	}})
	data, err := json.Marshal(result.Findings[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"evidence":[]`, `"remediation":[]`, `"references":[]`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("Expected %s in %s", field, data)
		}
	}
}

func TestResultValidate(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		errorMsg string
	}{
		{
			name: "valid empty",
			result: Result{
				WithinBatchDuplicates: map[int]int{},
			},
		},
		{
			name: "unique count mismatch",
			result: Result{
				Stats: Stats{TotalCandidates: 1, UniqueCount: 1},
			},
			errorMsg: "stats.unique_count",
		},
		{
			name: "total mismatch",
			result: Result{
				WithinBatchDuplicates: map[int]int{1: 0},
				Stats:                 Stats{TotalCandidates: 5, WithinBatchDuplicateCount: 1},
			},
			errorMsg: "stats.total_candidates",
		},
		{
			name: "duplicate before original",
			result: Result{
				Findings:              types.FindingList{finding("a.rule", types.SeverityLow, types.CategoryVM)},
				WithinBatchDuplicates: map[int]int{0: 1},
				Stats:                 Stats{TotalCandidates: 2, UniqueCount: 1, WithinBatchDuplicateCount: 1},
			},
			errorMsg: "must be >",
		},
		{
			name: "unsorted findings",
			result: Result{
				Findings: types.FindingList{
					finding("a.rule", types.SeverityLow, types.CategoryVM),
					finding("b.rule", types.SeverityCritical, types.CategoryVM),
				},
				Stats: Stats{TotalCandidates: 2, UniqueCount: 2},
			},
			errorMsg: "not in finding list order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error containing %q, got %v", tt.errorMsg, err)
			}
		})
	}
}
