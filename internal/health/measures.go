package health

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/steveyegge/esxidiag/internal/facts"
	"github.com/steveyegge/esxidiag/internal/types"
)

// Measure names a numeric quantity read from the fact model, one value per
// subject (device, datastore, VM...).
type Measure string

const (
	MeasureDeviceLatency Measure = "device_latency"
	MeasureCPUUsage      Measure = "cpu_usage"
	MeasureMemoryUsed    Measure = "memory_used"
	MeasureDatastoreFree Measure = "datastore_free"
	MeasureUplinkCount   Measure = "uplink_count"
	MeasureSnapshotCount Measure = "snapshot_count"
	MeasureSnapshotAge   Measure = "snapshot_age"
	MeasureUptime        Measure = "uptime"
)

type measureInfo struct {
	// subject is the evidence label of the subject; "" for host-wide measures
	subject string
	// value is the evidence label of the measured value
	value   string
	unit    string
	samples func(m *facts.Model, now time.Time) ([]Sample, []Skip)
}

var measures = map[Measure]measureInfo{
	MeasureDeviceLatency: {subject: "device", value: "latency", unit: "ms", samples: deviceLatency},
	MeasureCPUUsage:      {subject: "cpu", value: "usage", unit: "%", samples: cpuUsage},
	MeasureMemoryUsed:    {value: "memory used", unit: "%", samples: memoryUsed},
	MeasureDatastoreFree: {subject: "datastore", value: "free space", unit: "%", samples: datastoreFree},
	MeasureUplinkCount:   {subject: "vswitch", value: "uplinks", samples: uplinkCount},
	MeasureSnapshotCount: {subject: "vm", value: "snapshots", samples: snapshotCount},
	MeasureSnapshotAge:   {subject: "snapshot", value: "age", unit: "days", samples: snapshotAge},
	MeasureUptime:        {value: "uptime", unit: "days", samples: uptime},
}

// IsValid checks if the measure value is valid
func (m Measure) IsValid() bool {
	_, ok := measures[m]
	return ok
}

// SubjectLabel is the evidence label naming the subject, or "" when the
// measure describes the whole host.
func (m Measure) SubjectLabel() string { return measures[m].subject }

// ValueLabel is the evidence label of the measured value.
func (m Measure) ValueLabel() string { return measures[m].value }

// Unit is the unit evidence values are shown in.
func (m Measure) Unit() string { return measures[m].unit }

// Samples reads the measure from model. Age measures are taken relative to
// now; the others ignore it. Samples come back in a deterministic order.
func (m Measure) Samples(model *facts.Model, now time.Time) ([]Sample, []Skip) {
	info, ok := measures[m]
	if !ok {
		return nil, nil
	}
	return info.samples(model, now)
}

func deviceLatency(m *facts.Model, _ time.Time) ([]Sample, []Skip) {
	var out []Sample
	for _, l := range m.Storage().Latency {
		out = append(out, Sample{Subject: l.Device, Value: l.LatencyMS, Origin: l.Origin})
	}
	return out, nil
}

func cpuUsage(m *facts.Model, _ time.Time) ([]Sample, []Skip) {
	var out []Sample
	for _, c := range m.Compute().CPU {
		out = append(out, Sample{Subject: c.Name, Value: c.UsedPercent, Origin: c.Origin})
	}
	return out, nil
}

func memoryUsed(m *facts.Model, _ time.Time) ([]Sample, []Skip) {
	c := m.Compute()
	pct, ok := c.MemoryUsedPercent()
	if !ok {
		return nil, []Skip{{Subject: "host", Reason: "total or free memory unknown"}}
	}
	return []Sample{{Subject: "host", Value: pct, Origin: c.MemoryFreeMB.Origin}}, nil
}

func datastoreFree(m *facts.Model, _ time.Time) ([]Sample, []Skip) {
	var (
		out   []Sample
		skips []Skip
	)
	for _, d := range m.Storage().Datastores {
		pct, ok := d.FreePercent()
		if !ok {
			skips = append(skips, Skip{Subject: d.Name, Reason: "datastore size unknown"})
			continue
		}
		out = append(out, Sample{Subject: d.Name, Value: pct, Origin: d.Origin})
	}
	return out, skips
}

func uplinkCount(m *facts.Model, _ time.Time) ([]Sample, []Skip) {
	var out []Sample
	for _, v := range m.Network().VSwitches {
		out = append(out, Sample{Subject: v.Name, Value: float64(len(v.Uplinks)), Origin: v.Origin})
	}
	return out, nil
}

func snapshotCount(m *facts.Model, _ time.Time) ([]Sample, []Skip) {
	counts := make(map[string]int)
	first := make(map[string]facts.Origin)
	for _, s := range m.VMs().Snapshots {
		if _, seen := counts[s.VM]; !seen {
			first[s.VM] = s.Origin
		}
		counts[s.VM]++
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]Sample, 0, len(names))
	for _, n := range names {
		out = append(out, Sample{Subject: n, Value: float64(counts[n]), Origin: first[n]})
	}
	return out, nil
}

func snapshotAge(m *facts.Model, now time.Time) ([]Sample, []Skip) {
	var (
		out   []Sample
		skips []Skip
	)
	for _, s := range m.VMs().Snapshots {
		subject := s.VM + "/" + s.Name
		if !s.Created.Known {
			skips = append(skips, Skip{Subject: subject, Reason: "snapshot creation time unknown"})
			continue
		}
		days := float64(now.UnixMilli()-s.Created.Millis) / float64(24*time.Hour/time.Millisecond)
		out = append(out, Sample{Subject: subject, Value: days, Origin: s.Origin})
	}
	return out, skips
}

func uptime(m *facts.Model, _ time.Time) ([]Sample, []Skip) {
	q := m.Platform().UptimeDays
	if !q.Known {
		return nil, []Skip{{Subject: "host", Reason: "uptime unknown"}}
	}
	return []Sample{{Subject: "host", Value: q.Value, Origin: q.Origin}}, nil
}

// PresenceCheck names a test for subjects in a bad state.
type PresenceCheck string

const (
	CheckDeviceDegraded PresenceCheck = "device_degraded"
	CheckNICDown        PresenceCheck = "nic_down"
	CheckHealthState    PresenceCheck = "health_state"
	CheckSensorAlert    PresenceCheck = "sensor_alert"
	CheckVMProblemState PresenceCheck = "vm_problem_state"
	CheckVersionRange   PresenceCheck = "version_range"
	CheckInconsistency  PresenceCheck = "fact_inconsistency"
)

// problemVMStates are the VM states that need an operator.
var problemVMStates = []string{"invalid", "stuck", "suspended"}

// IsValid checks if the check value is valid
func (c PresenceCheck) IsValid() bool {
	switch c {
	case CheckDeviceDegraded, CheckNICDown, CheckHealthState, CheckSensorAlert,
		CheckVMProblemState, CheckVersionRange, CheckInconsistency:
		return true
	}
	return false
}

// Hits runs the check against model.
func (p PresenceCondition) Hits(model *facts.Model) ([]Hit, []Skip) {
	switch p.Check {
	case CheckDeviceDegraded:
		var hits []Hit
		for _, d := range model.Storage().Devices {
			if d.Healthy() {
				continue
			}
			hits = append(hits, Hit{Subject: d.ID, Evidence: []types.Evidence{
				{Label: "device", Value: d.ID},
				{Label: "status", Value: d.Status},
				{Label: "offline", Value: fmt.Sprint(d.Offline)},
			}})
		}
		return hits, nil

	case CheckNICDown:
		var hits []Hit
		for _, n := range model.Network().NICs {
			if n.LinkUp() {
				continue
			}
			hits = append(hits, Hit{Subject: n.Name, Evidence: []types.Evidence{
				{Label: "nic", Value: n.Name},
				{Label: "link status", Value: n.LinkStatus},
			}})
		}
		return hits, nil

	case CheckHealthState:
		h := model.Hardware()
		if !h.HealthKnown || h.HealthState == facts.HealthGreen {
			return nil, nil
		}
		return []Hit{{Subject: "host", Evidence: []types.Evidence{
			{Label: "health state", Value: string(h.HealthState)},
		}}}, nil

	case CheckSensorAlert:
		var hits []Hit
		for _, s := range model.Hardware().Sensors {
			if s.State.Rank() < facts.HealthYellow.Rank() {
				continue
			}
			ev := []types.Evidence{
				{Label: "sensor", Value: s.Name},
				{Label: "state", Value: string(s.State)},
			}
			hits = append(hits, Hit{Subject: s.Name, Evidence: ev})
		}
		return hits, nil

	case CheckVMProblemState:
		var (
			hits  []Hit
			skips []Skip
		)
		for _, vm := range model.VMs().VMs {
			if vm.State == "" {
				skips = append(skips, Skip{Subject: vm.Name, Reason: "VM state not reported"})
				continue
			}
			for _, bad := range problemVMStates {
				if strings.EqualFold(vm.State, bad) {
					hits = append(hits, Hit{Subject: vm.Name, Evidence: []types.Evidence{
						{Label: "vm", Value: vm.Name},
						{Label: "state", Value: vm.State},
					}})
					break
				}
			}
		}
		return hits, skips

	case CheckVersionRange:
		v, ok := model.Platform().Version()
		if !ok {
			return nil, []Skip{{Subject: "host", Reason: "no single reported version"}}
		}
		sv := "v" + v
		if !semver.IsValid(sv) {
			return nil, []Skip{{Subject: "host", Reason: fmt.Sprintf("unparseable version %q", v)}}
		}
		if p.MinVersion != "" && semver.Compare(sv, "v"+p.MinVersion) < 0 {
			return nil, nil
		}
		if p.MaxVersion != "" && semver.Compare(sv, "v"+p.MaxVersion) >= 0 {
			return nil, nil
		}
		return []Hit{{Subject: "host", Evidence: []types.Evidence{{Label: "version", Value: v}}}}, nil

	case CheckInconsistency:
		var hits []Hit
		for _, inc := range model.Inconsistencies() {
			values := make([]string, 0, len(inc.Values))
			for _, o := range inc.Values {
				srcs := make([]string, 0, len(o.Origins))
				for _, origin := range o.Origins {
					srcs = append(srcs, origin.String())
				}
				values = append(values, fmt.Sprintf("%s (%s)", o.Value, strings.Join(srcs, ", ")))
			}
			hits = append(hits, Hit{Subject: inc.Field, Evidence: []types.Evidence{
				{Label: "field", Value: inc.Field},
				{Label: "values", Value: strings.Join(values, "; ")},
			}})
		}
		return hits, nil
	}
	return nil, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
