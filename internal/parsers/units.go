package parsers

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDecimal parses a number written with either a decimal point or a
// decimal comma ("25.5", "25,5"). When both appear, the comma is a
// thousands separator ("1,234.5").
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1:
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// LatencyToMS converts a latency value in unit to milliseconds.
// Accepted units: ns, us/usec/µs/μs/microseconds, ms/msec/milliseconds, s/sec/seconds.
func LatencyToMS(v float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "ms", "msec", "millisecond", "milliseconds":
		return v, nil
	case "us", "usec", "µs", "μs", "microsecond", "microseconds":
		return v / 1000, nil
	case "ns", "nsec", "nanoseconds":
		return v / 1e6, nil
	case "s", "sec", "secs", "second", "seconds":
		return v * 1000, nil
	}
	return 0, fmt.Errorf("unknown latency unit %q", unit)
}

// MemoryToMB converts a memory amount in unit to mebibytes.
func MemoryToMB(v float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "b", "byte", "bytes":
		return v / (1 << 20), nil
	case "kb", "kib":
		return v / 1024, nil
	case "mb", "mib":
		return v, nil
	case "gb", "gib":
		return v * 1024, nil
	case "tb", "tib":
		return v * 1024 * 1024, nil
	}
	return 0, fmt.Errorf("unknown memory unit %q", unit)
}
