package parsers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/steveyegge/esxidiag/internal/artifacts"
	"github.com/steveyegge/esxidiag/internal/facts"
)

var (
	// "In(182)" style severity tags written by newer hosts
	levelTagRe = regexp.MustCompile(`^([A-Z][a-z])\(\d+\)$`)
	// "cpu3:2097645)ScsiDeviceIO: "
	cpuHeaderRe = regexp.MustCompile(`^cpu\d+:\d+\)(?:([\w.-]+):\s*)?`)
	// "vmkernel: ", "sshd[1234]: "
	procHeaderRe = regexp.MustCompile(`^([A-Za-z][\w.-]*)(?:\[\d+\])?:\s*`)

	deviceLatencyRe = regexp.MustCompile(`Device (\S+) performance has deteriorated\. I/O latency increased from average value of (\d+) microseconds to (\d+) microseconds`)
)

var levelTags = map[string]string{
	"Db": "verbose",
	"In": "info",
	"No": "notice",
	"Wa": "warning",
	"Er": "error",
	"Cr": "critical",
	"Al": "alert",
	"Em": "emergency",
}

// normalizeLevel maps a level token to its lower-case name; ok is false when
// tok does not look like a level.
func normalizeLevel(tok string) (string, bool) {
	if m := levelTagRe.FindStringSubmatch(tok); m != nil {
		if l, ok := levelTags[m[1]]; ok {
			return l, true
		}
		return strings.ToLower(m[1]), true
	}
	switch l := strings.ToLower(tok); l {
	case "verbose", "trivia", "debug", "info", "notice", "warning", "error", "critical", "alert", "panic":
		return l, true
	}
	return "", false
}

// bootLogName is the only log whose product banner counts as a version
// observation. Other logs (esxi_install.log, upgrade logs) mention install
// and upgrade source versions that say nothing about the running build.
const bootLogName = artifacts.LogsDir + "/vmkernel.log"

// kernelLogParser reads vmkernel and syslog style logs, one event per line.
// Besides the events it extracts device latency reports and the product
// version announced at boot: a vmkernel.log message that starts with
// "VMware ESXi x.y.z".
type kernelLogParser struct{}

func (kernelLogParser) Dialect() artifacts.Dialect { return artifacts.DialectKernelLog }

func (kernelLogParser) Parse(a artifacts.Artifact) (Result, error) {
	s := newSession(a)
	for i, raw := range splitLines(a.Content) {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		ts, rest, _ := LeadingTimestamp(line)
		ev := &facts.LogEvent{Time: ts, Text: line}

		if tok, tail, ok := strings.Cut(rest, " "); ok {
			if l, ok := normalizeLevel(tok); ok {
				ev.Level = l
				rest = strings.TrimSpace(tail)
			}
		}
		if m := cpuHeaderRe.FindStringSubmatch(rest); m != nil {
			ev.Process = m[1]
			rest = rest[len(m[0]):]
		} else if m := procHeaderRe.FindStringSubmatch(rest); m != nil {
			ev.Process = m[1]
			rest = rest[len(m[0]):]
			if m := cpuHeaderRe.FindStringSubmatch(rest); m != nil {
				if m[1] != "" {
					ev.Process = m[1]
				}
				rest = rest[len(m[0]):]
			}
		}
		ev.Message = rest
		s.emit(lineNo, facts.Record{Observed: ts, LogEvent: ev})

		if m := deviceLatencyRe.FindStringSubmatch(line); m != nil {
			us, err := strconv.ParseFloat(m[3], 64)
			if err != nil {
				s.warn(lineNo, "invalid latency value", raw)
			} else {
				s.emit(lineNo, facts.Record{Observed: ts, Latency: &facts.LatencySample{
					Device:    m[1],
					LatencyMS: us / 1000,
					At:        ts,
				}})
			}
		}
		if a.Name == bootLogName && strings.HasPrefix(ev.Message, "VMware ESXi ") {
			if m := productLineRe.FindStringSubmatch(ev.Message); m != nil {
				if v := normalizeVersion(m[1]); v != "" {
					s.emit(lineNo, facts.Record{Observed: ts, Version: facts.StringPtr(v)})
				}
			}
		}
	}
	return s.result(facts.DomainLogs), nil
}
