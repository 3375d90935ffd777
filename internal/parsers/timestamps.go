package parsers

import (
	"strings"
	"time"
	"unicode"

	"github.com/steveyegge/esxidiag/internal/facts"
)

// timestampLayout is one accepted timestamp form and how many
// whitespace-separated fields it spans at the start of a line.
type timestampLayout struct {
	layout  string
	fields  int
	hasYear bool
}

// Layouts are tried in order. Inputs without a zone are taken as UTC, and
// fractional seconds are accepted after the seconds field.
var timestampLayouts = []timestampLayout{
	{layout: time.RFC3339, fields: 1, hasYear: true},
	{layout: "2006-01-02T15:04:05", fields: 1, hasYear: true},
	{layout: "2006-01-02 15:04:05", fields: 2, hasYear: true},
	{layout: "1/2/2006 15:04:05", fields: 2, hasYear: true},
	{layout: "Mon Jan 2 15:04:05 2006", fields: 5, hasYear: true},
	{layout: "Mon Jan 2 15:04:05 MST 2006", fields: 6, hasYear: true},
	// Classic syslog. No year, so the line is kept with an unknown time.
	{layout: "Jan 2 15:04:05", fields: 3, hasYear: false},
}

// ParseTimestamp parses a complete timestamp string. ok is false when no
// layout matches; a matching layout without a year yields ok with an
// unknown Timestamp.
func ParseTimestamp(s string) (facts.Timestamp, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return facts.Timestamp{}, false
	}
	for _, l := range timestampLayouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			if !l.hasYear {
				return facts.Timestamp{}, true
			}
			return facts.At(t.UTC().UnixMilli()), true
		}
	}
	return facts.Timestamp{}, false
}

// LeadingTimestamp looks for a timestamp at the start of line and returns it
// with the remainder of the line. matched is false when the line does not
// start with any accepted form; rest is then the whole line, trimmed.
func LeadingTimestamp(line string) (ts facts.Timestamp, rest string, matched bool) {
	for _, l := range timestampLayouts {
		head, tail, ok := cutFields(line, l.fields)
		if !ok {
			continue
		}
		head = strings.TrimRight(head, ":,")
		t, err := time.Parse(l.layout, strings.Join(strings.Fields(head), " "))
		if err != nil {
			continue
		}
		if !l.hasYear {
			return facts.Timestamp{}, tail, true
		}
		return facts.At(t.UTC().UnixMilli()), tail, true
	}
	return facts.Timestamp{}, strings.TrimSpace(line), false
}

// cutFields splits off the first n whitespace-separated fields of s.
func cutFields(s string, n int) (head, tail string, ok bool) {
	i := 0
	for f := 0; f < n; f++ {
		for i < len(s) && unicode.IsSpace(rune(s[i])) {
			i++
		}
		if i == len(s) {
			return "", "", false
		}
		for i < len(s) && !unicode.IsSpace(rune(s[i])) {
			i++
		}
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i:]), true
}
