package config

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Threshold keys recognized in a threshold document.
const (
	KeyHighLatencyMS            = "high_latency_ms"
	KeyLowDatastoreSpacePercent = "low_datastore_space_percent"
	KeyHighCPUPercent           = "high_cpu_percent"
	KeyHighMemoryPercent        = "high_memory_percent"
	KeyMaxUptimeDays            = "max_uptime_days"
	KeyMaxSnapshotAgeDays       = "max_snapshot_age_days"
	KeyMinNetworkRedundancy     = "min_network_redundancy"
	KeyMaxSnapshotsPerVM        = "max_snapshots_per_vm"
)

// ThresholdSpec documents one named limit: its default and the values it accepts.
type ThresholdSpec struct {
	Key     string
	Default float64
	Min     float64
	Max     float64
	// MinExclusive makes Min itself invalid (the value must be strictly greater)
	MinExclusive bool
	// Integer rejects values with a fractional part
	Integer     bool
	Description string
}

var thresholdSpecs = []ThresholdSpec{
	{Key: KeyHighLatencyMS, Default: 20.0, Min: 0, Max: 100000, MinExclusive: true,
		Description: "storage latency above this many milliseconds is high"},
	{Key: KeyLowDatastoreSpacePercent, Default: 10, Min: 0, Max: 100,
		Description: "datastore free space below this percentage is low"},
	{Key: KeyHighCPUPercent, Default: 80, Min: 0, Max: 100, MinExclusive: true,
		Description: "CPU utilization above this percentage is high"},
	{Key: KeyHighMemoryPercent, Default: 90, Min: 0, Max: 100, MinExclusive: true,
		Description: "memory usage above this percentage is high"},
	{Key: KeyMaxUptimeDays, Default: 180, Min: 1, Max: 3650, Integer: true,
		Description: "host uptime above this many days suggests missed patches"},
	{Key: KeyMaxSnapshotAgeDays, Default: 3, Min: 0, Max: 3650,
		Description: "snapshots older than this many days are stale"},
	{Key: KeyMinNetworkRedundancy, Default: 2, Min: 1, Max: 16, Integer: true,
		Description: "vSwitches with fewer uplinks than this lack redundancy"},
	{Key: KeyMaxSnapshotsPerVM, Default: 3, Min: 0, Max: 1000, Integer: true,
		Description: "VMs with more snapshots than this have too many"},
}

// Specs returns the recognized thresholds in declaration order.
func Specs() []ThresholdSpec {
	out := make([]ThresholdSpec, len(thresholdSpecs))
	copy(out, thresholdSpecs)
	return out
}

// LookupSpec returns the spec for key.
func LookupSpec(key string) (ThresholdSpec, bool) {
	for _, s := range thresholdSpecs {
		if s.Key == key {
			return s, true
		}
	}
	return ThresholdSpec{}, false
}

// check validates v against the spec's range and integer constraint.
func (s ThresholdSpec) check(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a finite number (got %v)", s.Key, v)
	}
	if s.MinExclusive {
		if v <= s.Min || v > s.Max {
			return fmt.Errorf("%s must be greater than %g and at most %g (got %g)", s.Key, s.Min, s.Max, v)
		}
	} else if v < s.Min || v > s.Max {
		return fmt.Errorf("%s must be between %g and %g (got %g)", s.Key, s.Min, s.Max, v)
	}
	if s.Integer && v != math.Trunc(v) {
		return fmt.Errorf("%s must be a whole number (got %g)", s.Key, v)
	}
	return nil
}

// Thresholds is the active set of named limits for one analysis run.
// It is a value: the zero value is empty, use DefaultThresholds, and
// With returns a modified copy instead of changing the receiver.
type Thresholds struct {
	values map[string]float64
}

// DefaultThresholds returns every recognized threshold at its documented default.
func DefaultThresholds() Thresholds {
	values := make(map[string]float64, len(thresholdSpecs))
	for _, s := range thresholdSpecs {
		values[s.Key] = s.Default
	}
	return Thresholds{values: values}
}

// Get returns the value for key and whether it is set.
func (t Thresholds) Get(key string) (float64, bool) {
	v, ok := t.values[key]
	return v, ok
}

// With returns a copy of t with key set to v. It does not validate.
func (t Thresholds) With(key string, v float64) Thresholds {
	values := make(map[string]float64, len(t.values)+1)
	for k, old := range t.values {
		values[k] = old
	}
	values[key] = v
	return Thresholds{values: values}
}

// Keys returns the keys present, sorted.
func (t Thresholds) Keys() []string {
	keys := make([]string, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns a copy of the key/value mapping.
func (t Thresholds) Values() map[string]float64 {
	out := make(map[string]float64, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// Validate checks that every recognized key is present and within its range.
func (t Thresholds) Validate() error {
	for _, s := range thresholdSpecs {
		v, ok := t.values[s.Key]
		if !ok {
			return &ConfigError{Key: s.Key, Reason: "missing value"}
		}
		if err := s.check(v); err != nil {
			return &ConfigError{Key: s.Key, Reason: err.Error()}
		}
	}
	return nil
}

// String returns a human-readable representation of the thresholds
func (t Thresholds) String() string {
	parts := make([]string, 0, len(t.values))
	for _, k := range t.Keys() {
		parts = append(parts, fmt.Sprintf("%s: %g", k, t.values[k]))
	}
	return "Thresholds{" + strings.Join(parts, ", ") + "}"
}

// ThresholdsFromEnv applies ESXIDIAG_<KEY> overrides on top of base, then validates.
//
// Environment variables (one per recognized key):
//   - ESXIDIAG_HIGH_LATENCY_MS
//   - ESXIDIAG_LOW_DATASTORE_SPACE_PERCENT
//   - ESXIDIAG_HIGH_CPU_PERCENT, and so on
func ThresholdsFromEnv(base Thresholds) (Thresholds, error) {
	cfg := Thresholds{values: base.Values()}
	for _, s := range thresholdSpecs {
		v := mustGet(cfg, s)
		if err := parseEnvFloat(EnvKey(s.Key), &v); err != nil {
			return base, &ConfigError{Source: "environment", Key: s.Key, Reason: err.Error(), Err: err}
		}
		cfg.values[s.Key] = v
	}

	if err := cfg.Validate(); err != nil {
		return base, fmt.Errorf("invalid thresholds from environment: %w", err)
	}
	return cfg, nil
}

// EnvKey returns the environment variable that overrides threshold key.
func EnvKey(key string) string {
	return envPrefix + strings.ToUpper(key)
}

func mustGet(t Thresholds, s ThresholdSpec) float64 {
	if v, ok := t.values[s.Key]; ok {
		return v
	}
	return s.Default
}
