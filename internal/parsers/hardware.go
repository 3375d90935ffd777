package parsers

import (
	"strings"

	"github.com/steveyegge/esxidiag/internal/artifacts"
	"github.com/steveyegge/esxidiag/internal/facts"
)

// hwHealthParser reads the platform health dump. Only the HealthState line
// matters; the rest (vendor, serial, UUID) is ignored.
type hwHealthParser struct{}

func (hwHealthParser) Dialect() artifacts.Dialect { return artifacts.DialectHWHealth }

func (hwHealthParser) Parse(a artifacts.Artifact) (Result, error) {
	s := newSession(a)
	for i, raw := range splitLines(a.Content) {
		key, value, ok := keyValue(raw)
		if !ok {
			continue
		}
		switch strings.ToLower(strings.ReplaceAll(key, " ", "")) {
		case "healthstate", "overallstatus":
			if value == "" {
				s.warn(i+1, "empty health state", raw)
				continue
			}
			h := facts.NormalizeHealth(value)
			s.emit(i+1, facts.Record{HealthState: &h})
		}
	}
	return s.result(), nil
}

// sensorStatusKeys are the block fields that may hold a sensor's state.
var sensorStatusKeys = []string{"Health State", "HealthState", "Status", "State"}

// sensorTableParser reads the sensor block list:
//
//	System Board 1 Ambient Temp
//	   Health State: Green
//	   Current Reading: 24
//	   Units: Degrees C
type sensorTableParser struct{}

func (sensorTableParser) Dialect() artifacts.Dialect { return artifacts.DialectSensorTable }

func (sensorTableParser) Parse(a artifacts.Artifact) (Result, error) {
	s := newSession(a)
	for _, b := range parseBlocks(s, splitLines(a.Content)) {
		var state string
		found := false
		for _, k := range sensorStatusKeys {
			if v, ok := b.get(k); ok {
				state, found = v, true
				break
			}
		}
		if !found || state == "" {
			s.warn(b.line, "sensor without health state", b.header)
			continue
		}
		reading, _ := b.get("Current Reading")
		if units, ok := b.get("Units"); ok && reading != "" {
			reading += " " + units
		}
		s.emit(b.line, facts.Record{Sensor: &facts.Sensor{
			Name:    b.header,
			State:   facts.NormalizeHealth(state),
			Reading: reading,
		}})
	}
	return s.result(facts.DomainSensors), nil
}
