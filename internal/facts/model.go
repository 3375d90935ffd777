package facts

import (
	"slices"
)

// Quantity is a scalar fact with an explicit unknown marker.
type Quantity struct {
	Value  float64 `json:"value"`
	Known  bool    `json:"known"`
	Origin Origin  `json:"origin,omitempty"`
}

// Observation is one distinct value of a conflict-policy field and every
// place it was seen.
type Observation struct {
	Value   string   `json:"value"`
	Origins []Origin `json:"origins"`
}

// Inconsistency records that sources disagree on a field that should have a
// single value. Neither source is treated as authoritative.
type Inconsistency struct {
	Field  string        `json:"field"`
	Values []Observation `json:"values"`
}

// PlatformFacts describes the hypervisor build and its uptime.
type PlatformFacts struct {
	Versions   []Observation `json:"versions"`
	Builds     []Observation `json:"builds"`
	UptimeDays Quantity      `json:"uptime_days"`
}

// Version returns the single reported version. ok is false when no source
// reported one or sources disagree.
func (p PlatformFacts) Version() (string, bool) {
	if len(p.Versions) != 1 {
		return "", false
	}
	return p.Versions[0].Value, true
}

// ComputeFacts describes CPU and memory.
type ComputeFacts struct {
	CPU           []CPUSample `json:"cpu"`
	MemoryTotalMB Quantity    `json:"memory_total_mb"`
	MemoryFreeMB  Quantity    `json:"memory_free_mb"`
}

// MemoryUsedPercent derives used memory from total and free.
func (c ComputeFacts) MemoryUsedPercent() (float64, bool) {
	if !c.MemoryTotalMB.Known || !c.MemoryFreeMB.Known || c.MemoryTotalMB.Value <= 0 {
		return 0, false
	}
	return 100 - c.MemoryFreeMB.Value/c.MemoryTotalMB.Value*100, true
}

// StorageFacts describes devices, latency samples, and datastores.
type StorageFacts struct {
	Devices    []Device        `json:"devices"`
	Latency    []LatencySample `json:"latency"`
	Datastores []Datastore     `json:"datastores"`
}

// NetworkFacts describes physical NICs and standard vSwitches.
type NetworkFacts struct {
	NICs      []NIC     `json:"nics"`
	VSwitches []VSwitch `json:"vswitches"`
}

// HardwareFacts describes platform health and sensors.
type HardwareFacts struct {
	HealthState  HealthState `json:"health_state,omitempty"`
	HealthKnown  bool        `json:"health_known"`
	HealthOrigin Origin      `json:"health_origin,omitempty"`
	Sensors      []Sensor    `json:"sensors"`
}

// VMFacts describes the VM inventory and snapshots.
type VMFacts struct {
	VMs       []VM       `json:"vms"`
	Snapshots []Snapshot `json:"snapshots"`
}

// Facts is a full copy of a Model's contents.
type Facts struct {
	Known           []Domain        `json:"known"`
	Platform        PlatformFacts   `json:"platform"`
	Compute         ComputeFacts    `json:"compute"`
	Storage         StorageFacts    `json:"storage"`
	Network         NetworkFacts    `json:"network"`
	Hardware        HardwareFacts   `json:"hardware"`
	VMs             VMFacts         `json:"vms"`
	Logs            []LogEvent      `json:"logs"`
	Inconsistencies []Inconsistency `json:"inconsistencies"`
}

// Model is the immutable host snapshot of one analysis run. Every accessor
// returns a copy, so concurrent readers never share mutable state.
type Model struct {
	facts Facts
	known map[Domain]bool
}

// Known reports whether any artifact supplied the domain.
func (m *Model) Known(d Domain) bool { return m.known[d] }

// Missing returns the domains in ds that are unknown, in the given order.
func (m *Model) Missing(ds ...Domain) []Domain {
	var out []Domain
	for _, d := range ds {
		if !m.known[d] {
			out = append(out, d)
		}
	}
	return out
}

// KnownDomains returns the known domains in AllDomains order.
func (m *Model) KnownDomains() []Domain { return slices.Clone(m.facts.Known) }

// Platform returns version, build, and uptime facts.
func (m *Model) Platform() PlatformFacts {
	p := m.facts.Platform
	p.Versions = cloneObservations(p.Versions)
	p.Builds = cloneObservations(p.Builds)
	return p
}

// Compute returns CPU and memory facts.
func (m *Model) Compute() ComputeFacts {
	c := m.facts.Compute
	c.CPU = slices.Clone(c.CPU)
	return c
}

// Storage returns device, latency, and datastore facts.
func (m *Model) Storage() StorageFacts {
	s := m.facts.Storage
	s.Devices = slices.Clone(s.Devices)
	s.Latency = slices.Clone(s.Latency)
	s.Datastores = slices.Clone(s.Datastores)
	return s
}

// Network returns NIC and vSwitch facts.
func (m *Model) Network() NetworkFacts {
	n := m.facts.Network
	n.NICs = slices.Clone(n.NICs)
	n.VSwitches = slices.Clone(n.VSwitches)
	for i := range n.VSwitches {
		n.VSwitches[i].Uplinks = slices.Clone(n.VSwitches[i].Uplinks)
	}
	return n
}

// Hardware returns health state and sensor facts.
func (m *Model) Hardware() HardwareFacts {
	h := m.facts.Hardware
	h.Sensors = slices.Clone(h.Sensors)
	return h
}

// VMs returns VM inventory and snapshot facts.
func (m *Model) VMs() VMFacts {
	v := m.facts.VMs
	v.VMs = slices.Clone(v.VMs)
	v.Snapshots = slices.Clone(v.Snapshots)
	return v
}

// Logs returns every log event in canonical order.
func (m *Model) Logs() []LogEvent { return slices.Clone(m.facts.Logs) }

// Inconsistencies returns fields on which sources disagreed.
func (m *Model) Inconsistencies() []Inconsistency {
	out := make([]Inconsistency, len(m.facts.Inconsistencies))
	for i, inc := range m.facts.Inconsistencies {
		out[i] = Inconsistency{Field: inc.Field, Values: cloneObservations(inc.Values)}
	}
	return out
}

// Facts returns a deep copy of the whole snapshot.
func (m *Model) Facts() Facts {
	return Facts{
		Known:           m.KnownDomains(),
		Platform:        m.Platform(),
		Compute:         m.Compute(),
		Storage:         m.Storage(),
		Network:         m.Network(),
		Hardware:        m.Hardware(),
		VMs:             m.VMs(),
		Logs:            m.Logs(),
		Inconsistencies: m.Inconsistencies(),
	}
}

func cloneObservations(in []Observation) []Observation {
	if in == nil {
		return nil
	}
	out := make([]Observation, len(in))
	for i, o := range in {
		out[i] = Observation{Value: o.Value, Origins: slices.Clone(o.Origins)}
	}
	return out
}
