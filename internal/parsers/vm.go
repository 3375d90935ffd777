package parsers

import (
	"regexp"
	"strings"

	"github.com/steveyegge/esxidiag/internal/artifacts"
	"github.com/steveyegge/esxidiag/internal/facts"
)

// vmInventoryParser reads the running VM process list:
//
//	web01
//	   World ID: 2099304
//	   Display Name: web01
//	   Config File: /vmfs/volumes/datastore1/web01/web01.vmx
//	   State: Powered on
type vmInventoryParser struct{}

func (vmInventoryParser) Dialect() artifacts.Dialect { return artifacts.DialectVMInventory }

func (vmInventoryParser) Parse(a artifacts.Artifact) (Result, error) {
	s := newSession(a)
	for _, b := range parseBlocks(s, splitLines(a.Content)) {
		name, ok := b.get("Display Name")
		if !ok || name == "" {
			name = b.header
		}
		id, _ := b.get("World ID")
		if id == "" {
			id = name
		}
		cfg, _ := b.get("Config File")
		state, _ := b.get("State")
		s.emit(b.line, facts.Record{VM: &facts.VM{
			ID:         id,
			Name:       name,
			ConfigFile: cfg,
			State:      state,
		}})
	}
	return s.result(facts.DomainVMs), nil
}

var (
	snapshotVMRe    = regexp.MustCompile(`^VM\s*:\s*(.+)$`)
	snapshotFieldRe = regexp.MustCompile(`^-+\s*Snapshot\s+(Name|Id|Created On)\s*:\s*(.*)$`)
)

// vmSnapshotsParser reads snapshot trees grouped by VM:
//
//	VM: web01
//	--Snapshot Name        : before-upgrade
//	--Snapshot Id          : 1
//	--Snapshot Created On  : 10/1/2024 12:00:00
//	----Snapshot Name      : nested
//
// A Name line starts a new snapshot; Id and Created On fill it in.
type vmSnapshotsParser struct{}

func (vmSnapshotsParser) Dialect() artifacts.Dialect { return artifacts.DialectVMSnapshots }

func (vmSnapshotsParser) Parse(a artifacts.Artifact) (Result, error) {
	s := newSession(a)

	var (
		vm      string
		cur     *facts.Snapshot
		curLine int
	)
	flush := func() {
		if cur != nil {
			s.emit(curLine, facts.Record{Snapshot: cur})
			cur = nil
		}
	}

	for i, raw := range splitLines(a.Content) {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := snapshotVMRe.FindStringSubmatch(line); m != nil {
			flush()
			vm = strings.TrimSpace(m[1])
			continue
		}
		m := snapshotFieldRe.FindStringSubmatch(line)
		if m == nil {
			// Description and Quiesced lines, state lines.
			continue
		}
		if vm == "" {
			s.warn(lineNo, "snapshot line before any VM", raw)
			continue
		}
		value := strings.TrimSpace(m[2])
		switch m[1] {
		case "Name":
			flush()
			cur = &facts.Snapshot{VM: vm, Name: value}
			curLine = lineNo
		case "Id":
			if cur == nil {
				s.warn(lineNo, "snapshot id before snapshot name", raw)
				continue
			}
			cur.ID = value
		case "Created On":
			if cur == nil {
				s.warn(lineNo, "creation time before snapshot name", raw)
				continue
			}
			ts, ok := ParseTimestamp(value)
			if !ok {
				s.warn(lineNo, "unparseable snapshot creation time", raw)
			}
			cur.Created = ts
		}
	}
	flush()
	return s.result(facts.DomainSnapshots), nil
}
