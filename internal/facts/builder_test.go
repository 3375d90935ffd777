package facts

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthPtr(h HealthState) *HealthState { return &h }

// sampleRecords covers every merge policy, with deliberate collisions.
func sampleRecords() []Record {
	return []Record{
		{Source: "system_version.txt", Line: 1, Version: StringPtr("7.0.3"), Build: StringPtr("20328353")},
		{Source: "system_system_info.txt", Line: 2, Version: StringPtr("7.0.3")},
		{Source: "logs/vmkernel.log", Line: 4, Observed: At(1000), Version: StringPtr("6.7.0")},
		{Source: "system_uptime.txt", Line: 1, UptimeDays: FloatPtr(200)},
		{Source: "logs/syslog.log", Line: 9, Observed: At(5000), UptimeDays: FloatPtr(201)},
		{Source: "perf_memory_info.txt", Line: 1, MemoryTotalMB: FloatPtr(65536)},
		{Source: "perf_memory_info.txt", Line: 2, MemoryFreeMB: FloatPtr(2048)},
		{Source: "hw_health_status.txt", Line: 1, HealthState: healthPtr(HealthGreen)},
		{Source: "hw_health_status.txt", Line: 5, HealthState: healthPtr(HealthYellow)},
		{Source: "perf_cpu_stats.txt", Line: 3, CPU: &CPUSample{Name: "vmx", UsedPercent: 91.5}},
		{Source: "perf_cpu_stats.txt", Line: 4, CPU: &CPUSample{Name: "hostd", UsedPercent: 3}},
		{Source: "perf_disk_latency.txt", Line: 2, Latency: &LatencySample{Device: "naa.1", LatencyMS: 25}},
		{Source: "logs/vmkernel.log", Line: 7, Latency: &LatencySample{Device: "naa.2", LatencyMS: 40, At: At(2000)}},
		{Source: "vm_snapshots.txt", Line: 3, Snapshot: &Snapshot{VM: "web01", Name: "pre", Created: At(100)}},
		{Source: "vm_snapshots.txt", Line: 9, Snapshot: &Snapshot{VM: "db01", Name: "nightly"}},
		{Source: "logs/hostd.log", Line: 1, LogEvent: &LogEvent{Time: At(10), Text: "a", Message: "a"}},
		{Source: "logs/vmkernel.log", Line: 1, LogEvent: &LogEvent{Text: "no time", Message: "no time"}},
		{Source: "hw_storage_devices.txt", Line: 1, Device: &Device{ID: "naa.1", Status: "on"}},
		{Source: "hw_storage_devices.txt", Line: 20, Device: &Device{ID: "naa.1", Status: "degraded"}},
		{Source: "net_interfaces.txt", Line: 3, NIC: &NIC{Name: "vmnic0", LinkStatus: "Up"}},
		{Source: "net_interfaces.txt", Line: 4, NIC: &NIC{Name: "vmnic0", LinkStatus: "Down"}},
		{Source: "hw_sensors.txt", Line: 2, Sensor: &Sensor{Name: "Fan 1", State: HealthRed}},
		{Source: "vm_datastore_info.txt", Line: 3, Datastore: &Datastore{Name: "ds1", SizeBytes: 100, FreeBytes: 5}},
		{Source: "net_vswitches.txt", Line: 1, VSwitch: &VSwitch{Name: "vSwitch0", Uplinks: []string{"vmnic0"}}},
		{Source: "vm_list.txt", Line: 1, VM: &VM{ID: "1", Name: "web01"}},
		{Source: "vm_list.txt", Line: 1, Covers: DomainVMs},
	}
}

func TestBuildOrderIndependent(t *testing.T) {
	records := sampleRecords()
	b := NewBuilder()
	b.Add(records...)
	want := b.Build().Facts()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := append([]Record(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		// Merge in two batches to also exercise incremental Add.
		b := NewBuilder()
		b.Add(shuffled[:len(shuffled)/2]...)
		b.Add(shuffled[len(shuffled)/2:]...)
		got := b.Build().Facts()
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("permutation %d changed the model (-want +got):\n%s", i, diff)
		}
	}
}

func TestBuildMergePolicies(t *testing.T) {
	b := NewBuilder()
	b.Add(sampleRecords()...)
	m := b.Build()

	p := m.Platform()
	require.Len(t, p.Versions, 2, "conflicting versions are both kept")
	assert.Equal(t, "6.7.0", p.Versions[0].Value)
	assert.Equal(t, "7.0.3", p.Versions[1].Value)
	assert.Len(t, p.Versions[1].Origins, 2)
	_, ok := p.Version()
	assert.False(t, ok)

	incs := m.Inconsistencies()
	require.Len(t, incs, 1)
	assert.Equal(t, "version", incs[0].Field)

	assert.Equal(t, Quantity{Value: 201, Known: true, Origin: Origin{Source: "logs/syslog.log", Line: 9}}, p.UptimeDays,
		"known observation time beats unknown")

	c := m.Compute()
	used, ok := c.MemoryUsedPercent()
	require.True(t, ok)
	assert.InDelta(t, 96.875, used, 0.001)
	require.Len(t, c.CPU, 2)
	assert.Equal(t, "hostd", c.CPU[0].Name)

	h := m.Hardware()
	assert.True(t, h.HealthKnown)
	assert.Equal(t, HealthYellow, h.HealthState)

	s := m.Storage()
	require.Len(t, s.Devices, 1)
	assert.Equal(t, "degraded", s.Devices[0].Status, "worst status wins per device")
	require.Len(t, s.Latency, 2)
	assert.Equal(t, "naa.1", s.Latency[0].Device, "unknown time sorts first")
	assert.Equal(t, Origin{Source: "perf_disk_latency.txt", Line: 2}, s.Latency[0].Origin)

	n := m.Network()
	require.Len(t, n.NICs, 1)
	assert.False(t, n.NICs[0].LinkUp())

	v := m.VMs()
	require.Len(t, v.Snapshots, 2)
	assert.Equal(t, "db01", v.Snapshots[0].VM)

	logs := m.Logs()
	require.Len(t, logs, 2)
	assert.False(t, logs[0].Time.Known)
}

func TestKnownDomains(t *testing.T) {
	b := NewBuilder()
	b.Add(
		Record{Source: "vm_list.txt", Covers: DomainVMs},
		Record{Source: "perf_disk_latency.txt", Line: 1, Latency: &LatencySample{Device: "d", LatencyMS: 1}},
		Record{Source: "empty"},
	)
	assert.Equal(t, 2, b.Len(), "empty records are dropped")

	m := b.Build()
	assert.True(t, m.Known(DomainVMs))
	assert.True(t, m.Known(DomainStorageLatency))
	assert.False(t, m.Known(DomainSnapshots))
	assert.Equal(t, []Domain{DomainSnapshots, DomainNICs}, m.Missing(DomainVMs, DomainSnapshots, DomainNICs))
	assert.Equal(t, []Domain{DomainStorageLatency, DomainVMs}, m.KnownDomains())
	assert.Empty(t, m.VMs().VMs, "known but empty")
}

func TestAccessorsReturnCopies(t *testing.T) {
	b := NewBuilder()
	b.Add(sampleRecords()...)
	m := b.Build()

	n := m.Network()
	n.VSwitches[0].Uplinks[0] = "mutated"
	n.NICs[0].Name = "mutated"
	assert.Equal(t, "vmnic0", m.Network().VSwitches[0].Uplinks[0])
	assert.Equal(t, "vmnic0", m.Network().NICs[0].Name)

	p := m.Platform()
	p.Versions[0].Origins[0].Source = "mutated"
	assert.NotEqual(t, "mutated", m.Platform().Versions[0].Origins[0].Source)
}

func TestRankings(t *testing.T) {
	assert.Less(t, HealthGreen.Rank(), NormalizeHealth("Unknown").Rank())
	assert.Less(t, NormalizeHealth("Unknown").Rank(), HealthYellow.Rank())
	assert.Less(t, HealthYellow.Rank(), NormalizeHealth("Critical").Rank())

	assert.True(t, Device{Status: "on"}.Healthy())
	assert.False(t, Device{Status: "on", Offline: true}.Healthy())
	assert.Equal(t, 3, Device{Status: "dead"}.Rank())

	_, ok := Datastore{}.FreePercent()
	assert.False(t, ok)
	pct, ok := Datastore{SizeBytes: 200, FreeBytes: 50}.FreePercent()
	assert.True(t, ok)
	assert.Equal(t, 25.0, pct)
}

func TestFieldPoliciesCoverRecordFields(t *testing.T) {
	for field, p := range FieldPolicies {
		assert.NotEmpty(t, p, field)
	}
	assert.Len(t, FieldPolicies, 16)
}
