// Package deduplication turns the engine's raw findings into the final
// Finding List.
//
// # Equivalence
//
// Two findings are duplicates when they have the same rule id and the same
// set of evidence label/value pairs. Evidence order does not matter. The
// first occurrence is kept with its remediation and references; later ones
// are recorded in Result.WithinBatchDuplicates and dropped.
//
// # Ordering
//
// The surviving findings are sorted by severity (most severe first), then
// category, then rule id, then evidence. The stage does no analysis of its
// own: it is a merge and a sort, so the same raw findings always produce a
// byte-identical list.
//
// # Usage
//
//	result := deduplication.Aggregate(raw)
//	if err := result.Validate(); err != nil {
//	    return err
//	}
//	for _, f := range result.Findings {
//	    fmt.Println(f.Severity, f.RuleID, f.Title)
//	}
package deduplication
