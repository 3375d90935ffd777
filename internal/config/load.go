package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/esxidiag/internal/events"
)

// ConfigError reports an invalid threshold document or override. It is the
// only error that aborts an analysis run; match it with errors.As.
type ConfigError struct {
	// Source is the document path or "environment"
	Source string
	// Key is the offending threshold key, empty for document-level problems
	Key    string
	Line   int
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	return "configuration error: " + msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ignoredSections are the non-threshold sections of the collector's config.yaml.
// They are accepted silently so the same file can be passed to the analyzer.
var ignoredSections = map[string]bool{
	"ssh":         true,
	"web":         true,
	"logging":     true,
	"report":      true,
	"kb_articles": true,
}

// LoadThresholds reads a threshold document from path. An empty path yields
// the defaults. Non-fatal problems come back as config_warning diagnostics.
func LoadThresholds(path string) (Thresholds, []events.Diagnostic, error) {
	if path == "" {
		return DefaultThresholds(), nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Thresholds{}, nil, &ConfigError{Source: path, Reason: fmt.Sprintf("reading threshold document: %v", err), Err: err}
	}
	return ParseThresholds(data, path)
}

// ParseThresholds decodes a YAML threshold document. The thresholds either sit
// under a top-level "thresholds" section or form a flat mapping. Missing keys
// fall back to defaults, unknown keys produce warnings, and wrong-typed or
// out-of-range values are rejected with a *ConfigError.
func ParseThresholds(data []byte, source string) (Thresholds, []events.Diagnostic, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Thresholds{}, nil, &ConfigError{Source: source, Reason: fmt.Sprintf("invalid YAML: %v", err), Err: err}
	}

	cfg := DefaultThresholds()
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return cfg, nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return cfg, nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return Thresholds{}, nil, &ConfigError{Source: source, Line: root.Line, Reason: "threshold document must be a mapping"}
	}

	var warnings []events.Diagnostic
	warn := func(line int, format string, args ...interface{}) {
		d := events.NewConfigWarning(source, fmt.Sprintf(format, args...))
		d.Line = line
		warnings = append(warnings, *d)
	}

	section := root
	if node := mappingValue(root, "thresholds"); node != nil {
		if node.Kind != yaml.MappingNode {
			return Thresholds{}, nil, &ConfigError{Source: source, Key: "thresholds", Line: node.Line, Reason: "thresholds section must be a mapping"}
		}
		section = node
		for i := 0; i+1 < len(root.Content); i += 2 {
			k := root.Content[i]
			if k.Value != "thresholds" && !ignoredSections[k.Value] {
				warn(k.Line, "unrecognized section %q ignored", k.Value)
			}
		}
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(section.Content); i += 2 {
		keyNode, valNode := section.Content[i], section.Content[i+1]
		key := keyNode.Value

		spec, ok := LookupSpec(key)
		if !ok {
			if section == root && ignoredSections[key] {
				continue
			}
			warn(keyNode.Line, "unrecognized threshold key %q ignored", key)
			continue
		}
		if seen[key] {
			return Thresholds{}, nil, &ConfigError{Source: source, Key: key, Line: keyNode.Line, Reason: fmt.Sprintf("duplicate key %s", key)}
		}
		seen[key] = true

		v, err := decodeNumber(valNode)
		if err != nil {
			return Thresholds{}, nil, &ConfigError{Source: source, Key: key, Line: valNode.Line, Reason: fmt.Sprintf("%s: %v", key, err)}
		}
		if err := spec.check(v); err != nil {
			return Thresholds{}, nil, &ConfigError{Source: source, Key: key, Line: valNode.Line, Reason: err.Error()}
		}
		cfg.values[key] = v
	}

	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].Line < warnings[j].Line })
	return cfg, warnings, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// decodeNumber accepts YAML int and float scalars only. Quoted numbers,
// booleans, and nulls are wrong-typed.
func decodeNumber(n *yaml.Node) (float64, error) {
	if n.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("expected a number")
	}
	switch n.ShortTag() {
	case "!!int", "!!float":
	default:
		return 0, fmt.Errorf("expected a number, got %s %q", n.ShortTag(), n.Value)
	}
	var v float64
	if err := n.Decode(&v); err != nil {
		return 0, fmt.Errorf("expected a number: %w", err)
	}
	return v, nil
}
