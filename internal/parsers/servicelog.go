package parsers

import (
	"regexp"
	"strings"

	"github.com/steveyegge/esxidiag/internal/artifacts"
	"github.com/steveyegge/esxidiag/internal/facts"
)

// "info hostd[2099515] [Originator@6876 sub=Vimsvc opID=x] Task Completed"
// "In(166) Hostd[2099515]: [Originator@6876 sub=Vimsvc] Task Completed"
var serviceHeaderRe = regexp.MustCompile(`^(\S+)\s+([\w.-]+)\[\d+\]:?\s*(?:\[[^\]]*\]\s*)?(.*)$`)

// serviceLogParser reads management agent logs (hostd, vpxa, fdm). An entry
// starts with a timestamp; lines without one continue the previous entry.
type serviceLogParser struct{}

func (serviceLogParser) Dialect() artifacts.Dialect { return artifacts.DialectServiceLog }

func (serviceLogParser) Parse(a artifacts.Artifact) (Result, error) {
	s := newSession(a)
	var prev *facts.LogEvent

	for i, raw := range splitLines(a.Content) {
		lineNo := i + 1
		line := strings.TrimRight(raw, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		ts, rest, matched := LeadingTimestamp(line)
		if !matched && prev != nil {
			prev.Text += "\n" + line
			prev.Message += "\n" + strings.TrimSpace(line)
			continue
		}

		ev := &facts.LogEvent{Time: ts, Text: strings.TrimSpace(line), Message: rest}
		if matched {
			if m := serviceHeaderRe.FindStringSubmatch(rest); m != nil {
				if l, ok := normalizeLevel(m[1]); ok {
					ev.Level = l
					ev.Process = m[2]
					ev.Message = m[3]
				}
			}
		}
		s.emit(lineNo, facts.Record{Observed: ts, LogEvent: ev})
		prev = ev
	}
	return s.result(facts.DomainLogs), nil
}
