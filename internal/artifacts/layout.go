// Package artifacts loads the named raw text blobs of one host collection.
// It does no parsing: it maps file names to dialects, reads bytes, and
// normalizes encodings so every parser sees UTF-8 with LF line endings.
package artifacts

import (
	"path"
	"sort"
	"strings"
)

// Dialect identifies which parser applies to an artifact.
type Dialect string

const (
	DialectSystemInfo     Dialect = "system_info"
	DialectPerfCounters   Dialect = "perf_counters"
	DialectHWHealth       Dialect = "hw_health"
	DialectSensorTable    Dialect = "sensor_table"
	DialectStorageAdapter Dialect = "storage_adapter"
	DialectDatastore      Dialect = "datastore"
	DialectNetworkConfig  Dialect = "network_config"
	DialectVMInventory    Dialect = "vm_inventory"
	DialectVMSnapshots    Dialect = "vm_snapshots"
	DialectKernelLog      Dialect = "kernel_log"
	DialectServiceLog     Dialect = "service_log"
)

// LogsDir is the collection subdirectory holding host log files.
const LogsDir = "logs"

// layout is the fixed set of expected artifact names, relative to the
// collection root, and the dialect of each.
var layout = map[string]Dialect{
	"system_version.txt":     DialectSystemInfo,
	"system_system_info.txt": DialectSystemInfo,
	"system_uptime.txt":      DialectSystemInfo,
	"perf_cpu_stats.txt":     DialectPerfCounters,
	"perf_memory_info.txt":   DialectPerfCounters,
	"hw_health_status.txt":   DialectHWHealth,
	"hw_sensors.txt":         DialectSensorTable,
	"hw_storage_devices.txt": DialectStorageAdapter,
	"perf_disk_latency.txt":  DialectStorageAdapter,
	"vm_datastore_info.txt":  DialectDatastore,
	"net_interfaces.txt":     DialectNetworkConfig,
	"net_vswitches.txt":      DialectNetworkConfig,
	"vm_list.txt":            DialectVMInventory,
	"vm_snapshots.txt":       DialectVMSnapshots,
	"logs/vmkernel.log":      DialectKernelLog,
	"logs/syslog.log":        DialectKernelLog,
	"logs/auth.log":          DialectKernelLog,
	"logs/hostd.log":         DialectServiceLog,
	"logs/vpxa.log":          DialectServiceLog,
	"logs/fdm.log":           DialectServiceLog,
}

// DialectFor returns the dialect of a collection-relative artifact name.
// Any other *.log directly under logs/ is read as a kernel-style log.
func DialectFor(name string) (Dialect, bool) {
	name = path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if d, ok := layout[name]; ok {
		return d, true
	}
	if dir, file := path.Split(name); dir == LogsDir+"/" && strings.HasSuffix(file, ".log") {
		return DialectKernelLog, true
	}
	return "", false
}

// ExpectedNames returns the fixed artifact names, sorted.
func ExpectedNames() []string {
	names := make([]string, 0, len(layout))
	for n := range layout {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NamesFor returns the fixed artifact names of one dialect, sorted.
func NamesFor(d Dialect) []string {
	var names []string
	for n, dd := range layout {
		if dd == d {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Dialects returns every dialect, sorted.
func Dialects() []Dialect {
	seen := make(map[Dialect]bool)
	var out []Dialect
	for _, d := range layout {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
