package parsers

import (
	"path"
	"regexp"
	"strings"

	"github.com/steveyegge/esxidiag/internal/artifacts"
	"github.com/steveyegge/esxidiag/internal/facts"
)

var (
	// esxtop-style row: NAME ID GID %USED ...
	cpuRowRe = regexp.MustCompile(`^(\S+)\s+\d+\s+\d+\s+(\d+(?:[.,]\d+)?)(?:\s|$)`)
	// "Physical Memory: 68719476736 Bytes", "Free Memory: 2048 MB"
	memoryLineRe = regexp.MustCompile(`(?i)^(Total|Free|Physical)\s+Memory:\s*([\d.,]+)\s*(\S+)?`)
)

// perfCountersParser reads esxtop CPU tables and memory summaries.
// CPU usage is a percentage; memory is normalized to MB.
type perfCountersParser struct{}

func (perfCountersParser) Dialect() artifacts.Dialect { return artifacts.DialectPerfCounters }

func (p perfCountersParser) Parse(a artifacts.Artifact) (Result, error) {
	s := newSession(a)
	lines := splitLines(a.Content)
	if strings.Contains(path.Base(a.Name), "cpu") {
		return p.parseCPU(s, lines), nil
	}
	return p.parseMemory(s, lines), nil
}

func (perfCountersParser) parseCPU(s *session, lines []string) Result {
	inTable := false
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.Contains(line, "%PCPU") || strings.Contains(line, "%USED") {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}
		m := cpuRowRe.FindStringSubmatch(line)
		if m == nil {
			s.warn(lineNo, "malformed CPU row", raw)
			continue
		}
		used, err := ParseDecimal(m[2])
		if err != nil {
			s.warn(lineNo, err.Error(), raw)
			continue
		}
		s.emit(lineNo, facts.Record{CPU: &facts.CPUSample{Name: m[1], UsedPercent: used}})
	}
	if !inTable {
		s.warn(0, "no %PCPU table header found", "")
		return s.result()
	}
	return s.result(facts.DomainCPU)
}

func (perfCountersParser) parseMemory(s *session, lines []string) Result {
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		m := memoryLineRe.FindStringSubmatch(line)
		if m == nil {
			// NUMA node counts, reliable memory and the like.
			continue
		}
		// Memory amounts are whole numbers, so a comma groups thousands.
		v, err := ParseDecimal(strings.ReplaceAll(m[2], ",", ""))
		if err != nil {
			s.warn(lineNo, err.Error(), raw)
			continue
		}
		unit := m[3]
		if unit == "" {
			s.warn(lineNo, "memory amount without unit", raw)
			continue
		}
		mb, err := MemoryToMB(v, unit)
		if err != nil {
			s.warn(lineNo, err.Error(), raw)
			continue
		}
		switch strings.ToLower(m[1]) {
		case "free":
			s.emit(lineNo, facts.Record{MemoryFreeMB: facts.FloatPtr(mb)})
		default:
			s.emit(lineNo, facts.Record{MemoryTotalMB: facts.FloatPtr(mb)})
		}
	}
	return s.result()
}
