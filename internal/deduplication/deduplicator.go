package deduplication

import (
	"fmt"
	"slices"
	"sort"

	"github.com/steveyegge/esxidiag/internal/types"
)

// Result is the outcome of aggregating one run's raw findings.
type Result struct {
	// Findings are the unique findings in FindingList order
	Findings types.FindingList `json:"findings"`

	// WithinBatchDuplicates maps duplicate finding indices to the first occurrence index
	// Key: index in the input slice (duplicate)
	// Value: index in the input slice (first occurrence)
	WithinBatchDuplicates map[int]int `json:"within_batch_duplicates,omitempty"`

	// Statistics about the aggregation
	Stats Stats `json:"stats"`
}

// Stats provides counts about one aggregation.
type Stats struct {
	// TotalCandidates is the number of raw findings given
	TotalCandidates int `json:"total_candidates"`

	// UniqueCount is the number of findings kept
	UniqueCount int `json:"unique_count"`

	// WithinBatchDuplicateCount is the number of findings collapsed into an earlier one
	WithinBatchDuplicateCount int `json:"within_batch_duplicate_count"`
}

// Validate checks if the result has consistent values
func (r *Result) Validate() error {
	uniqueCount := len(r.Findings)
	withinBatchCount := len(r.WithinBatchDuplicates)

	if r.Stats.UniqueCount != uniqueCount {
		return fmt.Errorf("stats.unique_count (%d) does not match findings length (%d)",
			r.Stats.UniqueCount, uniqueCount)
	}
	if r.Stats.WithinBatchDuplicateCount != withinBatchCount {
		return fmt.Errorf("stats.within_batch_duplicate_count (%d) does not match within_batch_duplicates length (%d)",
			r.Stats.WithinBatchDuplicateCount, withinBatchCount)
	}

	total := uniqueCount + withinBatchCount
	if r.Stats.TotalCandidates != total {
		return fmt.Errorf("stats.total_candidates (%d) does not match sum of unique + within_batch (%d)",
			r.Stats.TotalCandidates, total)
	}

	for dupIdx, origIdx := range r.WithinBatchDuplicates {
		if dupIdx < 0 || dupIdx >= r.Stats.TotalCandidates {
			return fmt.Errorf("within_batch_duplicates contains invalid duplicate index %d (total: %d)",
				dupIdx, r.Stats.TotalCandidates)
		}
		if origIdx < 0 || origIdx >= r.Stats.TotalCandidates {
			return fmt.Errorf("within_batch_duplicates contains invalid original index %d (total: %d)",
				origIdx, r.Stats.TotalCandidates)
		}
		if dupIdx <= origIdx {
			return fmt.Errorf("within_batch_duplicates: duplicate index %d must be > original index %d",
				dupIdx, origIdx)
		}
		if _, exists := r.WithinBatchDuplicates[origIdx]; exists {
			return fmt.Errorf("within_batch_duplicates references index %d as original, but it is also a duplicate", origIdx)
		}
	}

	if !r.Findings.IsSorted() {
		return fmt.Errorf("findings are not in finding list order")
	}
	return nil
}

// Aggregate collapses equivalent findings and orders the rest. Two findings
// are equivalent when they share a rule id and the same set of evidence
// pairs, in any order. The first occurrence is kept as is.
func Aggregate(findings []types.Finding) *Result {
	result := &Result{
		WithinBatchDuplicates: make(map[int]int),
	}

	firstIndex := make(map[string]int, len(findings))
	kept := make(types.FindingList, 0, len(findings))
	for i := range findings {
		key := findings[i].RuleID + "\x1d" + findings[i].EvidenceKey()
		if orig, dup := firstIndex[key]; dup {
			result.WithinBatchDuplicates[i] = orig
			continue
		}
		firstIndex[key] = i
		kept = append(kept, cloneFinding(findings[i]))
	}

	sort.SliceStable(kept, func(i, j int) bool { return types.Less(&kept[i], &kept[j]) })

	result.Findings = kept
	result.Stats = Stats{
		TotalCandidates:           len(findings),
		UniqueCount:               len(kept),
		WithinBatchDuplicateCount: len(result.WithinBatchDuplicates),
	}
	return result
}

// cloneFinding copies the slices of f so the list shares nothing with the
// engine's raw output.
func cloneFinding(f types.Finding) types.Finding {
	f.Evidence = slices.Clone(f.Evidence)
	f.Remediation = slices.Clone(f.Remediation)
	f.References = slices.Clone(f.References)
	if f.Evidence == nil {
		f.Evidence = []types.Evidence{}
	}
	if f.Remediation == nil {
		f.Remediation = []string{}
	}
	if f.References == nil {
		f.References = []string{}
	}
	return f
}
