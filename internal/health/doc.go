// Package health holds the static rule table that judges a host's facts.
//
// # Rules as data
//
// Every rule is a tagged variant: a ConditionKind plus exactly one typed
// condition. The kinds are
//
//   - threshold_comparison: a Measure per subject compared with a named
//     threshold using the rule's fixed Comparator
//   - pattern_match: a regular expression over log entries, one finding per
//     log file
//   - presence_check: subjects in a bad state (a dead device, a NIC with
//     link down, a VM stuck in an invalid state)
//   - age_check: a Measure in days compared with a named threshold
//
// Rules never hold code of their own. The engine interprets the condition,
// so a rule cannot reach outside the fact model it is given.
//
// # Severity
//
// Severity is a property of the rule. A latency of 25 ms and one of 250 ms
// against a 20 ms limit produce findings of the same severity.
//
// # Registry
//
// DefaultRegistry returns the built-in table. The table is fixed per
// release; there is no plugin discovery.
//
//	reg := health.DefaultRegistry()
//	for _, r := range reg.Rules() {
//	    fmt.Println(r.ID, r.Kind, r.Severity)
//	}
package health
