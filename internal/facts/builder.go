package facts

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Builder accumulates records and merges them into a Model. Add may be
// called in any order; Build sorts everything by a total order first, so
// the resulting Model never depends on arrival order. A Builder is not safe
// for concurrent use: the merge step is single-threaded.
type Builder struct {
	records []Record
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add queues records for merging. Records with no payload are ignored.
func (b *Builder) Add(records ...Record) {
	for _, r := range records {
		if !r.IsEmpty() {
			b.records = append(b.records, r)
		}
	}
}

// Len returns how many records are queued.
func (b *Builder) Len() int { return len(b.records) }

// obs pairs a payload with where and when it was observed.
type obs[T any] struct {
	value    T
	origin   Origin
	observed Timestamp
}

// compareLatest is the tie-break order for latest-wins merges: observed
// time, then source, then line, then the printed value.
func compareLatest[T any](a, b obs[T]) int {
	if c := compareTimestamps(a.observed, b.observed); c != 0 {
		return c
	}
	if c := cmp.Compare(a.origin.Source, b.origin.Source); c != 0 {
		return c
	}
	if c := cmp.Compare(a.origin.Line, b.origin.Line); c != 0 {
		return c
	}
	return cmp.Compare(canonical(a.value), canonical(b.value))
}

func canonical(v any) string { return fmt.Sprintf("%+v", v) }

// Build merges the queued records into an immutable Model.
func (b *Builder) Build() *Model {
	known := make(map[Domain]bool)
	versions := make(map[string][]Origin)
	builds := make(map[string][]Origin)
	var (
		uptime     []obs[float64]
		memTotal   []obs[float64]
		memFree    []obs[float64]
		health     []obs[HealthState]
		cpu        []CPUSample
		latency    []LatencySample
		snapshots  []Snapshot
		logs       []LogEvent
		devices    []obs[Device]
		nics       []obs[NIC]
		sensors    []obs[Sensor]
		datastores []obs[Datastore]
		vswitches  []obs[VSwitch]
		vms        []obs[VM]
	)

	for _, r := range b.records {
		for _, d := range r.Domains() {
			known[d] = true
		}
		o := r.Origin()
		if r.Version != nil {
			versions[*r.Version] = append(versions[*r.Version], o)
		}
		if r.Build != nil {
			builds[*r.Build] = append(builds[*r.Build], o)
		}
		if r.UptimeDays != nil {
			uptime = append(uptime, obs[float64]{*r.UptimeDays, o, r.Observed})
		}
		if r.MemoryTotalMB != nil {
			memTotal = append(memTotal, obs[float64]{*r.MemoryTotalMB, o, r.Observed})
		}
		if r.MemoryFreeMB != nil {
			memFree = append(memFree, obs[float64]{*r.MemoryFreeMB, o, r.Observed})
		}
		if r.HealthState != nil {
			health = append(health, obs[HealthState]{*r.HealthState, o, r.Observed})
		}
		if r.CPU != nil {
			s := *r.CPU
			s.Origin = o
			if !s.At.Known {
				s.At = r.Observed
			}
			cpu = append(cpu, s)
		}
		if r.Latency != nil {
			s := *r.Latency
			s.Origin = o
			if !s.At.Known {
				s.At = r.Observed
			}
			latency = append(latency, s)
		}
		if r.Snapshot != nil {
			s := *r.Snapshot
			s.Origin = o
			snapshots = append(snapshots, s)
		}
		if r.LogEvent != nil {
			e := *r.LogEvent
			e.Origin = o
			logs = append(logs, e)
		}
		if r.Device != nil {
			d := *r.Device
			d.Origin = o
			devices = append(devices, obs[Device]{d, o, r.Observed})
		}
		if r.NIC != nil {
			n := *r.NIC
			n.Origin = o
			nics = append(nics, obs[NIC]{n, o, r.Observed})
		}
		if r.Sensor != nil {
			s := *r.Sensor
			s.Origin = o
			sensors = append(sensors, obs[Sensor]{s, o, r.Observed})
		}
		if r.Datastore != nil {
			d := *r.Datastore
			d.Origin = o
			datastores = append(datastores, obs[Datastore]{d, o, r.Observed})
		}
		if r.VSwitch != nil {
			v := *r.VSwitch
			v.Uplinks = slices.Clone(v.Uplinks)
			v.Origin = o
			vswitches = append(vswitches, obs[VSwitch]{v, o, r.Observed})
		}
		if r.VM != nil {
			v := *r.VM
			v.Origin = o
			vms = append(vms, obs[VM]{v, o, r.Observed})
		}
	}

	m := &Model{known: known}
	f := &m.facts
	for _, d := range AllDomains() {
		if known[d] {
			f.Known = append(f.Known, d)
		}
	}

	f.Platform.Versions = mergeConflict(versions)
	f.Platform.Builds = mergeConflict(builds)
	f.Platform.UptimeDays = mergeLatestQuantity(uptime)
	if len(f.Platform.Versions) > 1 {
		f.Inconsistencies = append(f.Inconsistencies, Inconsistency{Field: "version", Values: f.Platform.Versions})
	}
	if len(f.Platform.Builds) > 1 {
		f.Inconsistencies = append(f.Inconsistencies, Inconsistency{Field: "build", Values: f.Platform.Builds})
	}

	f.Compute.MemoryTotalMB = mergeLatestQuantity(memTotal)
	f.Compute.MemoryFreeMB = mergeLatestQuantity(memFree)
	f.Compute.CPU = sortedAppend(cpu, compareCPU)

	if len(health) > 0 {
		best := slices.MaxFunc(health, func(a, b obs[HealthState]) int {
			if c := cmp.Compare(a.value.Rank(), b.value.Rank()); c != 0 {
				return c
			}
			return compareLatest(a, b)
		})
		f.Hardware.HealthState = best.value
		f.Hardware.HealthKnown = true
		f.Hardware.HealthOrigin = best.origin
	}
	f.Hardware.Sensors = mergeKeyed(sensors, func(s Sensor) string { return s.Name },
		func(s Sensor) int { return s.State.Rank() })

	f.Storage.Devices = mergeKeyed(devices, func(d Device) string { return d.ID }, Device.Rank)
	f.Storage.Latency = sortedAppend(latency, compareLatency)
	f.Storage.Datastores = mergeKeyed(datastores, func(d Datastore) string { return d.Name }, nil)

	f.Network.NICs = mergeKeyed(nics, func(n NIC) string { return n.Name }, NIC.Rank)
	f.Network.VSwitches = mergeKeyed(vswitches, func(v VSwitch) string { return v.Name }, nil)

	f.VMs.VMs = mergeKeyed(vms, func(v VM) string { return v.ID }, nil)
	f.VMs.Snapshots = sortedAppend(snapshots, compareSnapshot)

	f.Logs = sortedAppend(logs, compareLogEvent)
	return m
}

// mergeConflict keeps every distinct value, sorted, with sorted origins.
func mergeConflict(values map[string][]Origin) []Observation {
	if len(values) == 0 {
		return nil
	}
	out := make([]Observation, 0, len(values))
	for v, origins := range values {
		origins = slices.Clone(origins)
		slices.SortFunc(origins, compareOrigin)
		origins = slices.Compact(origins)
		out = append(out, Observation{Value: v, Origins: origins})
	}
	slices.SortFunc(out, func(a, b Observation) int { return cmp.Compare(a.Value, b.Value) })
	return out
}

func mergeLatestQuantity(items []obs[float64]) Quantity {
	if len(items) == 0 {
		return Quantity{}
	}
	best := slices.MaxFunc(items, compareLatest[float64])
	return Quantity{Value: best.value, Known: true, Origin: best.origin}
}

// mergeKeyed keeps one observation per key: the most severe when rank is
// given, otherwise (and on rank ties) the latest. Output is sorted by key.
func mergeKeyed[T any](items []obs[T], key func(T) string, rank func(T) int) []T {
	if len(items) == 0 {
		return nil
	}
	best := make(map[string]obs[T])
	for _, it := range items {
		k := key(it.value)
		cur, ok := best[k]
		if !ok {
			best[k] = it
			continue
		}
		c := 0
		if rank != nil {
			c = cmp.Compare(rank(it.value), rank(cur.value))
		}
		if c == 0 {
			c = compareLatest(it, cur)
		}
		if c > 0 {
			best[k] = it
		}
	}
	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, best[k].value)
	}
	return out
}

func sortedAppend[T any](items []T, compare func(a, b T) int) []T {
	if len(items) == 0 {
		return nil
	}
	slices.SortFunc(items, func(a, b T) int {
		if c := compare(a, b); c != 0 {
			return c
		}
		return cmp.Compare(canonical(a), canonical(b))
	})
	return items
}

func compareOrigin(a, b Origin) int {
	if c := cmp.Compare(a.Source, b.Source); c != 0 {
		return c
	}
	return cmp.Compare(a.Line, b.Line)
}

func compareCPU(a, b CPUSample) int {
	if c := compareTimestamps(a.At, b.At); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return compareOrigin(a.Origin, b.Origin)
}

func compareLatency(a, b LatencySample) int {
	if c := compareTimestamps(a.At, b.At); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Device, b.Device); c != 0 {
		return c
	}
	return compareOrigin(a.Origin, b.Origin)
}

func compareSnapshot(a, b Snapshot) int {
	if c := cmp.Compare(a.VM, b.VM); c != 0 {
		return c
	}
	if c := compareTimestamps(a.Created, b.Created); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return compareOrigin(a.Origin, b.Origin)
}

func compareLogEvent(a, b LogEvent) int {
	if c := compareTimestamps(a.Time, b.Time); c != 0 {
		return c
	}
	if c := compareOrigin(a.Origin, b.Origin); c != 0 {
		return c
	}
	return strings.Compare(a.Text, b.Text)
}
