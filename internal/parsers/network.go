package parsers

import (
	"strconv"
	"strings"

	"github.com/steveyegge/esxidiag/internal/artifacts"
	"github.com/steveyegge/esxidiag/internal/facts"
)

// networkConfigParser reads the NIC list table, the standard vSwitch list,
// or the VMkernel interface list. The NIC form is recognized by its
// "Link Status" column, the vSwitch form by its "Uplinks" fields, and the
// interface form by "Portgroup"/"Portset" fields without any uplinks.
//
//	Name    PCI Device    Driver  Admin Status  Link Status  Speed  Duplex  MAC Address        MTU  Description
//	------  ------------  ------  ------------  -----------  -----  ------  -----------------  ---  -----------
//	vmnic0  0000:01:00.0  ixgben  Up            Up           10000  Full    00:11:22:33:44:55  1500 ...
type networkConfigParser struct{}

func (networkConfigParser) Dialect() artifacts.Dialect { return artifacts.DialectNetworkConfig }

func (p networkConfigParser) Parse(a artifacts.Artifact) (Result, error) {
	s := newSession(a)
	lines := splitLines(a.Content)
	if t, ok := findTable(lines); ok && t.index("Link Status") >= 0 {
		return p.parseNICs(s, lines, t), nil
	}
	blocks := parseBlocks(s, lines)
	if isInterfaceList(blocks) {
		return p.parseInterfaces(s, blocks), nil
	}
	return p.parseVSwitches(s, blocks), nil
}

// isInterfaceList reports whether blocks are "esxcli network ip interface
// list" entries rather than vSwitches.
func isInterfaceList(blocks []block) bool {
	iface := false
	for _, b := range blocks {
		if _, ok := b.get("Uplinks"); ok {
			return false
		}
		if _, ok := b.get("Portgroup"); ok {
			iface = true
		} else if _, ok := b.get("Portset"); ok {
			iface = true
		}
	}
	return iface
}

func (networkConfigParser) parseNICs(s *session, lines []string, t table) Result {
	for i := t.firstRow; i < len(lines); i++ {
		lineNo := i + 1
		raw := lines[i]
		if strings.TrimSpace(raw) == "" {
			continue
		}
		cells := t.cells(raw)
		name := t.cell(cells, "Name")
		if name == "" || hasSpace(name) {
			s.warn(lineNo, "malformed NIC row", raw)
			continue
		}
		link := t.cell(cells, "Link Status")
		if !strings.EqualFold(link, "up") && !strings.EqualFold(link, "down") {
			s.warn(lineNo, "unknown link status", raw)
			continue
		}
		speed := 0
		if v := t.cell(cells, "Speed"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				s.warn(lineNo, "invalid NIC speed", raw)
				continue
			}
			speed = n
		}
		s.emit(lineNo, facts.Record{NIC: &facts.NIC{
			Name:       name,
			Driver:     t.cell(cells, "Driver"),
			LinkStatus: link,
			SpeedMbps:  speed,
			MAC:        t.cell(cells, "MAC Address"),
		}})
	}
	return s.result(facts.DomainNICs)
}

// parseVSwitches reads
//
//	vSwitch0
//	   Name: vSwitch0
//	   Uplinks: vmnic1, vmnic0
//	   Portgroups: VM Network, Management Network
//
// An entry without an Uplinks field is skipped with a warning; its uplink
// count is unknown, not zero.
func (networkConfigParser) parseVSwitches(s *session, blocks []block) Result {
	for _, b := range blocks {
		name := b.header
		if v, ok := b.get("Name"); ok && v != "" {
			name = v
		}
		v, ok := b.get("Uplinks")
		if !ok {
			s.warn(b.line, "vSwitch entry without Uplinks", b.header)
			continue
		}
		var uplinks []string
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				uplinks = append(uplinks, u)
			}
		}
		s.emit(b.line, facts.Record{VSwitch: &facts.VSwitch{Name: name, Uplinks: uplinks}})
	}
	return s.result(facts.DomainVSwitches)
}

// parseInterfaces reads the VMkernel interface list
//
//	vmk0
//	   Name: vmk0
//	   MAC Address: 00:50:56:6a:1b:2c
//	   Enabled: true
//	   Portset: vSwitch0
//	   Portgroup: Management Network
//	   MTU: 1500
//
// No rule reads VMkernel interfaces, so the entries only get validated: a
// block without an Enabled field is a warning. The artifact covers no
// domain, which leaves vSwitch and NIC facts to the artifacts that carry them.
func (networkConfigParser) parseInterfaces(s *session, blocks []block) Result {
	for _, b := range blocks {
		if _, ok := b.get("Enabled"); !ok {
			s.warn(b.line, "interface entry without Enabled", b.header)
		}
	}
	return s.result()
}
