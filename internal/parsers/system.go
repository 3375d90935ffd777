package parsers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/steveyegge/esxidiag/internal/artifacts"
	"github.com/steveyegge/esxidiag/internal/facts"
)

var (
	// "VMware ESXi 7.0.3 build-20328353" from `vmware -v`
	productLineRe = regexp.MustCompile(`VMware ESXi (\d+\.\d+(?:\.\d+)?)(?:\s+(?:build-|\[Releasebuild-)(\d+))?`)
	// "up 200 days," / "up 1 day," from `uptime`
	uptimeDaysRe = regexp.MustCompile(`\bup\s+(\d+)\s+days?\b`)
	// "up 3:12," / "up 42 min," with no day count
	uptimeShortRe = regexp.MustCompile(`\bup\s+(?:\d+:\d+|\d+\s+min)`)
	buildDigitsRe = regexp.MustCompile(`(\d+)\s*$`)
)

// systemInfoParser reads `vmware -v`, `esxcli system version get`, and
// `uptime` output. Versions are normalized to x.y.z and builds to digits.
type systemInfoParser struct{}

func (systemInfoParser) Dialect() artifacts.Dialect { return artifacts.DialectSystemInfo }

func (systemInfoParser) Parse(a artifacts.Artifact) (Result, error) {
	s := newSession(a)
	for i, raw := range splitLines(a.Content) {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := productLineRe.FindStringSubmatch(line); m != nil {
			s.emit(lineNo, facts.Record{Version: facts.StringPtr(normalizeVersion(m[1]))})
			if m[2] != "" {
				s.emit(lineNo, facts.Record{Build: facts.StringPtr(m[2])})
			}
			continue
		}

		if m := uptimeDaysRe.FindStringSubmatch(line); m != nil {
			days, _ := strconv.Atoi(m[1])
			s.emit(lineNo, facts.Record{UptimeDays: facts.FloatPtr(float64(days))})
			continue
		}
		if uptimeShortRe.MatchString(line) {
			s.emit(lineNo, facts.Record{UptimeDays: facts.FloatPtr(0)})
			continue
		}

		key, value, ok := keyValue(line)
		if !ok {
			s.warn(lineNo, "unrecognized system information line", raw)
			continue
		}
		switch strings.ToLower(key) {
		case "version":
			if v := normalizeVersion(value); v != "" {
				s.emit(lineNo, facts.Record{Version: facts.StringPtr(v)})
			} else {
				s.warn(lineNo, "unparseable version", raw)
			}
		case "build":
			if m := buildDigitsRe.FindStringSubmatch(value); m != nil {
				s.emit(lineNo, facts.Record{Build: facts.StringPtr(m[1])})
			} else {
				s.warn(lineNo, "unparseable build", raw)
			}
		}
		// Other esxcli keys (Product, Update, Patch, time and license
		// fields) carry nothing the rules read.
	}
	return s.result(), nil
}

// normalizeVersion pads a dotted version to three components; it returns
// "" when s does not start with a numeric version.
func normalizeVersion(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexFunc(s, func(r rune) bool { return r != '.' && (r < '0' || r > '9') }); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, ".")
	if s == "" {
		return ""
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	for _, p := range parts {
		if p == "" {
			return ""
		}
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts, ".")
}
