// Package facts holds the typed host snapshot the rules evaluate.
//
// Parsers emit Records, each carrying typed payload fields where a nil field
// means "not observed". A Builder merges any number of records, in any order,
// into one immutable Model using the merge policy each field declares.
package facts

import (
	"fmt"
	"strings"
)

// Timestamp is a point in time in UTC epoch milliseconds. Known is false when
// the source had no timestamp or one that could not be placed in time.
type Timestamp struct {
	Millis int64 `json:"millis"`
	Known  bool  `json:"known"`
}

// At returns a known timestamp.
func At(millis int64) Timestamp { return Timestamp{Millis: millis, Known: true} }

// compareTimestamps orders unknown before known, then by time.
func compareTimestamps(a, b Timestamp) int {
	switch {
	case a.Known != b.Known:
		if !a.Known {
			return -1
		}
		return 1
	case a.Millis < b.Millis:
		return -1
	case a.Millis > b.Millis:
		return 1
	}
	return 0
}

// Origin locates where a fact was observed.
type Origin struct {
	Source string `json:"source"`
	Line   int    `json:"line,omitempty"`
}

func (o Origin) String() string {
	if o.Line > 0 {
		return fmt.Sprintf("%s:%d", o.Source, o.Line)
	}
	return o.Source
}

// HealthState is a hardware health color. Anything that is not green, yellow,
// or red is kept verbatim and ranks between green and yellow.
type HealthState string

const (
	HealthGreen  HealthState = "green"
	HealthYellow HealthState = "yellow"
	HealthRed    HealthState = "red"
)

// NormalizeHealth lowercases well-known colors and status words.
func NormalizeHealth(s string) HealthState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "green", "normal", "ok", "good":
		return HealthGreen
	case "yellow", "warning", "degraded":
		return HealthYellow
	case "red", "critical", "alert", "failed":
		return HealthRed
	}
	return HealthState(strings.TrimSpace(s))
}

// Rank orders health states by severity.
func (h HealthState) Rank() int {
	switch h {
	case HealthGreen:
		return 0
	case HealthYellow:
		return 2
	case HealthRed:
		return 3
	}
	return 1
}

// CPUSample is one CPU utilization reading.
type CPUSample struct {
	// Name is the process, world, or physical CPU the reading belongs to
	Name        string    `json:"name"`
	UsedPercent float64   `json:"used_percent"`
	At          Timestamp `json:"at"`
	Origin      Origin    `json:"origin"`
}

// LatencySample is one storage latency reading, normalized to milliseconds.
type LatencySample struct {
	Device    string    `json:"device"`
	LatencyMS float64   `json:"latency_ms"`
	At        Timestamp `json:"at"`
	Origin    Origin    `json:"origin"`
}

// Snapshot is one VM snapshot. Created is unknown when the listing had no
// parseable creation time.
type Snapshot struct {
	VM      string    `json:"vm"`
	Name    string    `json:"name"`
	ID      string    `json:"id,omitempty"`
	Created Timestamp `json:"created"`
	Origin  Origin    `json:"origin"`
}

// LogEvent is one log entry. Text is the full entry as written, including any
// continuation lines; Message is the part after the header.
type LogEvent struct {
	Time    Timestamp `json:"time"`
	Level   string    `json:"level,omitempty"`
	Process string    `json:"process,omitempty"`
	Message string    `json:"message"`
	Text    string    `json:"text"`
	Origin  Origin    `json:"origin"`
}

// Device is one storage device.
type Device struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Status      string `json:"status"`
	Offline     bool   `json:"offline"`
	Origin      Origin `json:"origin"`
}

// Rank orders device conditions by severity: healthy 0, degraded 2, failed 3.
func (d Device) Rank() int {
	if d.Offline {
		return 3
	}
	switch strings.ToLower(d.Status) {
	case "on", "ok", "":
		return 0
	case "degraded":
		return 2
	case "off", "dead", "error", "not connected", "offline", "failed":
		return 3
	}
	return 1
}

// Healthy reports whether the device is online with a good status.
func (d Device) Healthy() bool { return d.Rank() == 0 }

// NIC is one physical network interface.
type NIC struct {
	Name       string `json:"name"`
	Driver     string `json:"driver,omitempty"`
	LinkStatus string `json:"link_status"`
	SpeedMbps  int    `json:"speed_mbps,omitempty"`
	MAC        string `json:"mac,omitempty"`
	Origin     Origin `json:"origin"`
}

// LinkUp reports whether the link status is "Up".
func (n NIC) LinkUp() bool { return strings.EqualFold(n.LinkStatus, "up") }

// Rank orders link conditions: up 0, down 3.
func (n NIC) Rank() int {
	if n.LinkUp() {
		return 0
	}
	return 3
}

// Sensor is one hardware sensor reading.
type Sensor struct {
	Name    string      `json:"name"`
	State   HealthState `json:"state"`
	Reading string      `json:"reading,omitempty"`
	Origin  Origin      `json:"origin"`
}

// Datastore is one mounted filesystem. Sizes are in bytes.
type Datastore struct {
	Name       string `json:"name"`
	MountPoint string `json:"mount_point,omitempty"`
	Type       string `json:"type,omitempty"`
	SizeBytes  int64  `json:"size_bytes"`
	FreeBytes  int64  `json:"free_bytes"`
	Origin     Origin `json:"origin"`
}

// FreePercent returns free space as a percentage of size; ok is false when
// the size is unknown or zero.
func (d Datastore) FreePercent() (pct float64, ok bool) {
	if d.SizeBytes <= 0 {
		return 0, false
	}
	return float64(d.FreeBytes) / float64(d.SizeBytes) * 100, true
}

// VSwitch is one standard virtual switch.
type VSwitch struct {
	Name    string   `json:"name"`
	Uplinks []string `json:"uplinks"`
	Origin  Origin   `json:"origin"`
}

// VM is one registered virtual machine.
type VM struct {
	// ID is the world id when listed, otherwise the display name
	ID         string `json:"id"`
	Name       string `json:"name"`
	ConfigFile string `json:"config_file,omitempty"`
	// State is empty when the listing did not report one
	State  string `json:"state,omitempty"`
	Origin Origin `json:"origin"`
}

// Record is one parser observation. Every payload field is optional; a nil
// field is unknown, never zero. Source and Line locate the observation and
// Observed, when known, is when the host reported it.
type Record struct {
	Source   string
	Line     int
	Observed Timestamp

	// Covers marks a domain as observed even though the artifact listed no
	// entries for it, e.g. a VM inventory with zero VMs.
	Covers Domain

	Version       *string
	Build         *string
	UptimeDays    *float64
	MemoryTotalMB *float64
	MemoryFreeMB  *float64
	HealthState   *HealthState

	CPU      *CPUSample
	Latency  *LatencySample
	Snapshot *Snapshot
	LogEvent *LogEvent

	Device *Device
	NIC    *NIC
	Sensor *Sensor

	Datastore *Datastore
	VSwitch   *VSwitch
	VM        *VM
}

// Origin returns the record's location.
func (r Record) Origin() Origin { return Origin{Source: r.Source, Line: r.Line} }

// Domains lists the domains the record supplies facts for.
func (r Record) Domains() []Domain {
	var out []Domain
	add := func(ok bool, d Domain) {
		if ok {
			out = append(out, d)
		}
	}
	add(r.Covers != "", r.Covers)
	add(r.Version != nil || r.Build != nil, DomainVersion)
	add(r.UptimeDays != nil, DomainUptime)
	add(r.MemoryTotalMB != nil || r.MemoryFreeMB != nil, DomainMemory)
	add(r.HealthState != nil, DomainHealthState)
	add(r.CPU != nil, DomainCPU)
	add(r.Latency != nil, DomainStorageLatency)
	add(r.Snapshot != nil, DomainSnapshots)
	add(r.LogEvent != nil, DomainLogs)
	add(r.Device != nil, DomainStorageDevices)
	add(r.NIC != nil, DomainNICs)
	add(r.Sensor != nil, DomainSensors)
	add(r.Datastore != nil, DomainDatastores)
	add(r.VSwitch != nil, DomainVSwitches)
	add(r.VM != nil, DomainVMs)
	return out
}

// IsEmpty reports whether the record carries nothing at all.
func (r Record) IsEmpty() bool { return len(r.Domains()) == 0 }

// StringPtr returns a pointer to s, for building records.
func StringPtr(s string) *string { return &s }

// FloatPtr returns a pointer to f, for building records.
func FloatPtr(f float64) *float64 { return &f }
