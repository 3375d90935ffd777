package parsers

import (
	"strings"
	"unicode"
)

// splitLines splits normalized content into lines without the trailing
// empty element a final newline would produce.
func splitLines(content []byte) []string {
	text := strings.TrimSuffix(string(content), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func isIndented(line string) bool {
	return line != "" && (line[0] == ' ' || line[0] == '\t')
}

// field is one "Key: Value" line of a block.
type field struct {
	key   string
	value string
	line  int
}

// block is an esxcli list entry: an unindented header line followed by
// indented "Key: Value" lines.
type block struct {
	header string
	line   int
	fields []field
}

// get returns the value of the first field named key (case-insensitive).
func (b block) get(key string) (string, bool) {
	for _, f := range b.fields {
		if strings.EqualFold(f.key, key) {
			return f.value, true
		}
	}
	return "", false
}

// lineOf returns the line of the field named key, or the header line.
func (b block) lineOf(key string) int {
	for _, f := range b.fields {
		if strings.EqualFold(f.key, key) {
			return f.line
		}
	}
	return b.line
}

// parseBlocks reads the block grammar. Indented lines that are not
// "Key: Value", or that appear before any header, become warnings. Lines
// starting with '#' are collector comments.
func parseBlocks(s *session, lines []string) []block {
	var blocks []block
	for i, raw := range lines {
		lineNo := i + 1
		if t := strings.TrimSpace(raw); t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		if !isIndented(raw) {
			blocks = append(blocks, block{header: strings.TrimSpace(raw), line: lineNo})
			continue
		}
		key, value, ok := strings.Cut(strings.TrimSpace(raw), ":")
		if !ok || strings.TrimSpace(key) == "" {
			s.warn(lineNo, "expected 'Key: Value'", raw)
			continue
		}
		if len(blocks) == 0 {
			s.warn(lineNo, "field before any entry header", raw)
			continue
		}
		cur := &blocks[len(blocks)-1]
		cur.fields = append(cur.fields, field{
			key:   strings.TrimSpace(key),
			value: strings.TrimSpace(value),
			line:  lineNo,
		})
	}
	return blocks
}

// column is one fixed-width table column, in rune offsets.
type column struct {
	name  string
	start int
	end   int // exclusive; -1 for the last column
}

// table is an esxcli fixed-width table located by its dashed separator.
type table struct {
	columns []column
	// firstRow is the index into lines of the first data row
	firstRow int
}

// isSeparator reports whether line is a row of dash runs ("----  ---").
func isSeparator(line string) bool {
	t := strings.TrimSpace(line)
	if len(t) < 2 || !strings.Contains(t, "--") {
		return false
	}
	for _, r := range t {
		if r != '-' && r != ' ' {
			return false
		}
	}
	return true
}

// findTable locates the first separator line that follows a header and
// derives column spans from its dash runs.
func findTable(lines []string) (table, bool) {
	for i := 1; i < len(lines); i++ {
		if !isSeparator(lines[i]) {
			continue
		}
		sep := []rune(lines[i])
		header := []rune(lines[i-1])
		var cols []column
		for j := 0; j < len(sep); {
			if sep[j] != '-' {
				j++
				continue
			}
			start := j
			for j < len(sep) && sep[j] == '-' {
				j++
			}
			cols = append(cols, column{start: start, end: j})
		}
		for k := range cols {
			if k+1 < len(cols) {
				cols[k].end = cols[k+1].start
			} else {
				cols[k].end = -1
			}
			cols[k].name = strings.TrimSpace(sliceRunes(header, cols[k].start, cols[k].end))
		}
		return table{columns: cols, firstRow: i + 1}, true
	}
	return table{}, false
}

// index returns the column whose header equals name (case-insensitive).
func (t table) index(name string) int {
	for i, c := range t.columns {
		if strings.EqualFold(c.name, name) {
			return i
		}
	}
	return -1
}

// cells splits a data row by the column spans.
func (t table) cells(line string) []string {
	r := []rune(line)
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = strings.TrimSpace(sliceRunes(r, c.start, c.end))
	}
	return out
}

func sliceRunes(r []rune, start, end int) string {
	if start >= len(r) {
		return ""
	}
	if end < 0 || end > len(r) {
		end = len(r)
	}
	return string(r[start:end])
}

// cell returns the value of the named column, or "" if there is no such column.
func (t table) cell(cells []string, name string) string {
	if i := t.index(name); i >= 0 {
		return cells[i]
	}
	return ""
}

// keyValue splits "Key: Value" with surrounding space trimmed.
func keyValue(line string) (key, value string, ok bool) {
	k, v, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(k), strings.TrimSpace(v), true
}

func hasSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}
