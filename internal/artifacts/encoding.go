package artifacts

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnreadable marks an artifact that is empty, binary, or cannot be decoded.
// Every fact such an artifact would have supplied stays unknown.
var ErrUnreadable = errors.New("artifact unreadable")

// binarySniffLen bounds how much of the content is inspected for NUL bytes.
const binarySniffLen = 8192

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Normalize converts raw artifact bytes to UTF-8 text with LF line endings.
//
// Content with a byte order mark is decoded per the mark (UTF-8 or UTF-16).
// Valid UTF-8 is kept. Anything else is read as Windows-1252, which is what
// esxcli output captured through a Windows jump host usually is. Empty or
// binary content wraps ErrUnreadable.
func Normalize(raw []byte) ([]byte, error) {
	var out []byte
	switch {
	case bytes.HasPrefix(raw, bomUTF8), bytes.HasPrefix(raw, bomUTF16LE), bytes.HasPrefix(raw, bomUTF16BE):
		decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding: %v", ErrUnreadable, err)
		}
		out = decoded
	case looksBinary(raw):
		return nil, fmt.Errorf("%w: binary content", ErrUnreadable)
	case utf8.Valid(raw):
		out = raw
	default:
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding windows-1252: %v", ErrUnreadable, err)
		}
		out = decoded
	}

	out = normalizeNewlines(out)
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrUnreadable)
	}
	return out, nil
}

func looksBinary(raw []byte) bool {
	n := len(raw)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(raw[:n], 0) >= 0
}

// Truncate shortens raw to at most max bytes without splitting a character.
// UTF-16 content (by its byte order mark) is cut to an even length. Other
// content is cut after the last line feed within the limit, or failing that
// at a UTF-8 rune boundary, so a cut never turns valid UTF-8 invalid.
func Truncate(raw []byte, max int) []byte {
	if max < 0 {
		max = 0
	}
	if len(raw) <= max {
		return raw
	}
	if bytes.HasPrefix(raw, bomUTF16LE) || bytes.HasPrefix(raw, bomUTF16BE) {
		return raw[:max-max%2]
	}
	if i := bytes.LastIndexByte(raw[:max], '\n'); i >= 0 {
		return raw[:i+1]
	}
	cut := max
	for cut > 0 && max-cut < utf8.UTFMax && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut]
}

func normalizeNewlines(b []byte) []byte {
	if bytes.IndexByte(b, '\r') < 0 {
		return b
	}
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))
}
