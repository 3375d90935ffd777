package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/esxidiag/internal/facts"
	"github.com/steveyegge/esxidiag/internal/types"
)

func model(records ...facts.Record) *facts.Model {
	b := facts.NewBuilder()
	b.Add(records...)
	return b.Build()
}

var refNow = time.Date(2024, 10, 11, 12, 0, 0, 0, time.UTC)

func daysBefore(d float64) facts.Timestamp {
	return facts.At(refNow.Add(-time.Duration(d * float64(24*time.Hour))).UnixMilli())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "25 ms", FormatValue(25, "ms"))
	assert.Equal(t, "91.5%", FormatValue(91.5, "%"))
	assert.Equal(t, "3", FormatValue(3, ""))
	assert.Equal(t, "10.33 days", FormatValue(10.3333333, "days"))
}

func TestMeasureLabels(t *testing.T) {
	for m := range measures {
		assert.True(t, m.IsValid())
		assert.NotEmpty(t, m.ValueLabel(), m)
	}
	assert.False(t, Measure("nope").IsValid())
	assert.Equal(t, "device", MeasureDeviceLatency.SubjectLabel())
	assert.Empty(t, MeasureUptime.SubjectLabel())
}

func TestSnapshotAgeAndCount(t *testing.T) {
	m := model(
		facts.Record{Source: "vm_snapshots.txt", Line: 2, Snapshot: &facts.Snapshot{VM: "web01", Name: "old", Created: daysBefore(10)}},
		facts.Record{Source: "vm_snapshots.txt", Line: 5, Snapshot: &facts.Snapshot{VM: "web01", Name: "new", Created: daysBefore(2)}},
		facts.Record{Source: "vm_snapshots.txt", Line: 8, Snapshot: &facts.Snapshot{VM: "db01", Name: "unknown"}},
	)

	ages, skips := MeasureSnapshotAge.Samples(m, refNow)
	require.Len(t, ages, 2)
	byName := map[string]float64{}
	for _, s := range ages {
		byName[s.Subject] = s.Value
	}
	assert.InDelta(t, 10, byName["web01/old"], 1e-6)
	assert.InDelta(t, 2, byName["web01/new"], 1e-6)
	require.Len(t, skips, 1)
	assert.Equal(t, "db01/unknown", skips[0].Subject)

	counts, _ := MeasureSnapshotCount.Samples(m, refNow)
	assert.Equal(t, []Sample{
		{Subject: "db01", Value: 1, Origin: facts.Origin{Source: "vm_snapshots.txt", Line: 8}},
		{Subject: "web01", Value: 2, Origin: facts.Origin{Source: "vm_snapshots.txt", Line: 2}},
	}, counts)
}

func TestHostWideMeasuresSkipWhenUnknown(t *testing.T) {
	m := model(facts.Record{Source: "perf_memory_info.txt", Line: 1, MemoryTotalMB: facts.FloatPtr(1024)})

	samples, skips := MeasureMemoryUsed.Samples(m, refNow)
	assert.Empty(t, samples)
	require.Len(t, skips, 1)

	samples, skips = MeasureUptime.Samples(m, refNow)
	assert.Empty(t, samples)
	require.Len(t, skips, 1)

	m = model(
		facts.Record{Source: "perf_memory_info.txt", Line: 1, MemoryTotalMB: facts.FloatPtr(1000)},
		facts.Record{Source: "perf_memory_info.txt", Line: 2, MemoryFreeMB: facts.FloatPtr(50)},
	)
	samples, _ = MeasureMemoryUsed.Samples(m, refNow)
	require.Len(t, samples, 1)
	assert.InDelta(t, 95, samples[0].Value, 1e-9)
}

func TestDatastoreFreeSkipsUnknownSize(t *testing.T) {
	m := model(
		facts.Record{Source: "vm_datastore_info.txt", Line: 3, Datastore: &facts.Datastore{Name: "ds1", SizeBytes: 200, FreeBytes: 10}},
		facts.Record{Source: "vm_datastore_info.txt", Line: 4, Datastore: &facts.Datastore{Name: "ds2"}},
	)
	samples, skips := MeasureDatastoreFree.Samples(m, refNow)
	require.Len(t, samples, 1)
	assert.Equal(t, 5.0, samples[0].Value)
	assert.Equal(t, []Skip{{Subject: "ds2", Reason: "datastore size unknown"}}, skips)
}

func TestPresenceChecks(t *testing.T) {
	red := facts.HealthRed
	m := model(
		facts.Record{Source: "hw_storage_devices.txt", Line: 1, Device: &facts.Device{ID: "naa.1", Status: "on"}},
		facts.Record{Source: "hw_storage_devices.txt", Line: 5, Device: &facts.Device{ID: "naa.2", Status: "dead", Offline: true}},
		facts.Record{Source: "net_interfaces.txt", Line: 3, NIC: &facts.NIC{Name: "vmnic0", LinkStatus: "Up"}},
		facts.Record{Source: "net_interfaces.txt", Line: 4, NIC: &facts.NIC{Name: "vmnic1", LinkStatus: "Down"}},
		facts.Record{Source: "hw_health_status.txt", Line: 1, HealthState: &red},
		facts.Record{Source: "hw_sensors.txt", Line: 1, Sensor: &facts.Sensor{Name: "Fan 1", State: facts.HealthYellow}},
		facts.Record{Source: "hw_sensors.txt", Line: 4, Sensor: &facts.Sensor{Name: "Temp 1", State: facts.HealthGreen}},
		facts.Record{Source: "vm_list.txt", Line: 1, VM: &facts.VM{ID: "1", Name: "web01", State: "Stuck"}},
		facts.Record{Source: "vm_list.txt", Line: 6, VM: &facts.VM{ID: "2", Name: "db01", State: "Powered on"}},
		facts.Record{Source: "vm_list.txt", Line: 9, VM: &facts.VM{ID: "3", Name: "app01"}},
	)

	tests := []struct {
		check     PresenceCheck
		subjects  []string
		skipCount int
	}{
		{CheckDeviceDegraded, []string{"naa.2"}, 0},
		{CheckNICDown, []string{"vmnic1"}, 0},
		{CheckHealthState, []string{"host"}, 0},
		{CheckSensorAlert, []string{"Fan 1"}, 0},
		{CheckVMProblemState, []string{"web01"}, 1},
		{CheckInconsistency, nil, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.check), func(t *testing.T) {
			hits, skips := PresenceCondition{Check: tt.check}.Hits(m)
			var subjects []string
			for _, h := range hits {
				subjects = append(subjects, h.Subject)
				assert.NotEmpty(t, h.Evidence)
			}
			assert.Equal(t, tt.subjects, subjects)
			assert.Len(t, skips, tt.skipCount)
		})
	}
}

func TestVersionRange(t *testing.T) {
	tests := []struct {
		version string
		eol     bool
		old     bool
	}{
		{"6.0.0", true, false},
		{"6.5.0", false, true},
		{"6.7.0", false, true},
		{"7.0.3", false, false},
		{"8.0.2", false, false},
	}
	eol := PresenceCondition{Check: CheckVersionRange, MaxVersion: "6.5.0"}
	outdated := PresenceCondition{Check: CheckVersionRange, MinVersion: "6.5.0", MaxVersion: "7.0.0"}
	for _, tt := range tests {
		m := model(facts.Record{Source: "system_version.txt", Line: 1, Version: facts.StringPtr(tt.version)})
		hits, _ := eol.Hits(m)
		assert.Equal(t, tt.eol, len(hits) == 1, "eol %s", tt.version)
		hits, _ = outdated.Hits(m)
		assert.Equal(t, tt.old, len(hits) == 1, "outdated %s", tt.version)
		if len(hits) == 1 {
			assert.Equal(t, []types.Evidence{{Label: "version", Value: tt.version}}, hits[0].Evidence)
		}
	}
}

func TestVersionConflictIsSkippedAndInconsistent(t *testing.T) {
	m := model(
		facts.Record{Source: "system_version.txt", Line: 1, Version: facts.StringPtr("6.0.0")},
		facts.Record{Source: "logs/vmkernel.log", Line: 3, Version: facts.StringPtr("7.0.3")},
	)
	hits, skips := PresenceCondition{Check: CheckVersionRange, MaxVersion: "6.5.0"}.Hits(m)
	assert.Empty(t, hits)
	require.Len(t, skips, 1)

	hits, _ = PresenceCondition{Check: CheckInconsistency}.Hits(m)
	require.Len(t, hits, 1)
	assert.Equal(t, []types.Evidence{
		{Label: "field", Value: "version"},
		{Label: "values", Value: "6.0.0 (system_version.txt:1); 7.0.3 (logs/vmkernel.log:3)"},
	}, hits[0].Evidence)
}
