package parsers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/steveyegge/esxidiag/internal/artifacts"
	"github.com/steveyegge/esxidiag/internal/facts"
)

// latencyRowRe matches "<device> <reads> <writes> <latency> <unit>"; the
// unit may be attached to the number ("25ms").
var latencyRowRe = regexp.MustCompile(`^(\S+)\s+(\S+)\s+(\S+)\s+([\d.,]+)\s*([A-Za-zµμ]+)$`)

// storageAdapterParser reads the storage device list (blocks with Status and
// Is Offline) and the per-device latency table. The form is taken from the
// content: indented "Key: Value" lines mean the block list.
type storageAdapterParser struct{}

func (storageAdapterParser) Dialect() artifacts.Dialect { return artifacts.DialectStorageAdapter }

func (p storageAdapterParser) Parse(a artifacts.Artifact) (Result, error) {
	s := newSession(a)
	lines := splitLines(a.Content)
	for _, l := range lines {
		if isIndented(l) && strings.Contains(l, ":") {
			return p.parseDevices(s, lines), nil
		}
	}
	return p.parseLatency(s, lines), nil
}

func (storageAdapterParser) parseDevices(s *session, lines []string) Result {
	for _, b := range parseBlocks(s, lines) {
		status, ok := b.get("Status")
		if !ok {
			s.warn(b.line, "device without status", b.header)
			continue
		}
		offline := false
		if v, ok := b.get("Is Offline"); ok {
			parsed, err := strconv.ParseBool(strings.ToLower(v))
			if err != nil {
				s.warn(b.lineOf("Is Offline"), "invalid Is Offline value", v)
				continue
			}
			offline = parsed
		}
		name, _ := b.get("Display Name")
		s.emit(b.line, facts.Record{Device: &facts.Device{
			ID:          b.header,
			DisplayName: name,
			Status:      status,
			Offline:     offline,
		}})
	}
	return s.result(facts.DomainStorageDevices)
}

func (storageAdapterParser) parseLatency(s *session, lines []string) Result {
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || isSeparator(line) {
			continue
		}
		if f := strings.Fields(line); strings.EqualFold(f[0], "device") {
			continue
		}
		m := latencyRowRe.FindStringSubmatch(line)
		if m == nil {
			s.warn(lineNo, "malformed latency row", raw)
			continue
		}
		v, err := ParseDecimal(m[4])
		if err != nil {
			s.warn(lineNo, err.Error(), raw)
			continue
		}
		ms, err := LatencyToMS(v, m[5])
		if err != nil {
			s.warn(lineNo, err.Error(), raw)
			continue
		}
		s.emit(lineNo, facts.Record{Latency: &facts.LatencySample{Device: m[1], LatencyMS: ms}})
	}
	return s.result(facts.DomainStorageLatency)
}

// datastoreParser reads the filesystem list table:
//
//	Mount Point        Volume Name  UUID  Mounted  Type    Size  Free
//	-----------------  -----------  ----  -------  ------  ----  ----
//	/vmfs/volumes/...  datastore1   ...   true     VMFS-6  1000  50
type datastoreParser struct{}

func (datastoreParser) Dialect() artifacts.Dialect { return artifacts.DialectDatastore }

func (datastoreParser) Parse(a artifacts.Artifact) (Result, error) {
	s := newSession(a)
	lines := splitLines(a.Content)
	t, ok := findTable(lines)
	if !ok {
		s.warn(0, "no filesystem table found", "")
		return s.result(), nil
	}
	if t.index("Size") < 0 || t.index("Free") < 0 {
		s.warn(t.firstRow-1, "filesystem table without Size and Free columns", lines[t.firstRow-2])
		return s.result(), nil
	}

	for i := t.firstRow; i < len(lines); i++ {
		lineNo := i + 1
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		cells := t.cells(lines[i])
		name := t.cell(cells, "Volume Name")
		mount := t.cell(cells, "Mount Point")
		if name == "" {
			name = mount
		}
		if name == "" {
			s.warn(lineNo, "filesystem row without name", lines[i])
			continue
		}
		size, err1 := strconv.ParseInt(strings.ReplaceAll(t.cell(cells, "Size"), ",", ""), 10, 64)
		free, err2 := strconv.ParseInt(strings.ReplaceAll(t.cell(cells, "Free"), ",", ""), 10, 64)
		if err1 != nil || err2 != nil || size < 0 || free < 0 {
			s.warn(lineNo, "invalid size or free bytes", lines[i])
			continue
		}
		s.emit(lineNo, facts.Record{Datastore: &facts.Datastore{
			Name:       name,
			MountPoint: mount,
			Type:       t.cell(cells, "Type"),
			SizeBytes:  size,
			FreeBytes:  free,
		}})
	}
	return s.result(facts.DomainDatastores), nil
}
