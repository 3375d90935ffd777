package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/steveyegge/esxidiag/internal/facts"
	"github.com/steveyegge/esxidiag/internal/health"
	"github.com/steveyegge/esxidiag/internal/types"
)

func evalThreshold(e *Engine, model *facts.Model, rule health.Rule) ([]health.Hit, []health.Skip, error) {
	c := rule.Threshold
	limit, err := e.limit(c.Key)
	if err != nil {
		return nil, nil, err
	}
	samples, skips := c.Measure.Samples(model, e.now)
	return compareSamples(c.Measure, c.Op, limit, samples), skips, nil
}

// evalAge is a threshold comparison in days: older than the limit fires.
func evalAge(e *Engine, model *facts.Model, rule health.Rule) ([]health.Hit, []health.Skip, error) {
	c := rule.Age
	limit, err := e.limit(c.Key)
	if err != nil {
		return nil, nil, err
	}
	samples, skips := c.Measure.Samples(model, e.now)
	return compareSamples(c.Measure, health.GreaterThan, limit, samples), skips, nil
}

func evalPresence(_ *Engine, model *facts.Model, rule health.Rule) ([]health.Hit, []health.Skip, error) {
	hits, skips := rule.Presence.Hits(model)
	return hits, skips, nil
}

// logGroup collects one log file's matches for a pattern rule.
type logGroup struct {
	source  string
	matches int
	samples []string
}

// evalPattern reports one hit per log file with matching entries, quoting
// the first few in log order.
func evalPattern(_ *Engine, model *facts.Model, rule health.Rule) ([]health.Hit, []health.Skip, error) {
	c := rule.Pattern
	groups := make(map[string]*logGroup)
	for _, ev := range model.Logs() {
		if !c.Pattern.MatchString(ev.Text) {
			continue
		}
		g, ok := groups[ev.Origin.Source]
		if !ok {
			g = &logGroup{source: ev.Origin.Source}
			groups[ev.Origin.Source] = g
		}
		g.matches++
		if len(g.samples) < c.MaxSamples {
			g.samples = append(g.samples, firstLine(ev.Text))
		}
	}

	sources := make([]string, 0, len(groups))
	for s := range groups {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	hits := make([]health.Hit, 0, len(sources))
	for _, s := range sources {
		g := groups[s]
		ev := []types.Evidence{
			{Label: "log", Value: g.source},
			{Label: "matches", Value: strconv.Itoa(g.matches)},
		}
		for _, sample := range g.samples {
			ev = append(ev, types.Evidence{Label: "sample", Value: sample})
		}
		hits = append(hits, health.Hit{Subject: g.source, Evidence: ev})
	}
	return hits, nil, nil
}

func (e *Engine) limit(key string) (float64, error) {
	v, ok := e.thresholds.Get(key)
	if !ok {
		return 0, fmt.Errorf("threshold %s is not set", key)
	}
	return v, nil
}

// compareSamples keeps the worst sample of each subject and reports the
// subjects whose worst value satisfies op against limit. Subjects keep the
// order in which they were first sampled.
func compareSamples(m health.Measure, op health.Comparator, limit float64, samples []health.Sample) []health.Hit {
	worst := make(map[string]health.Sample)
	var order []string
	for _, s := range samples {
		cur, seen := worst[s.Subject]
		if !seen {
			order = append(order, s.Subject)
			worst[s.Subject] = s
			continue
		}
		if op.Worse(s.Value, cur.Value) {
			worst[s.Subject] = s
		}
	}

	var hits []health.Hit
	for _, subject := range order {
		s := worst[subject]
		if !op.Holds(s.Value, limit) {
			continue
		}
		hits = append(hits, health.Hit{Subject: subject, Evidence: thresholdEvidence(m, op, limit, s)})
	}
	return hits
}

func thresholdEvidence(m health.Measure, op health.Comparator, limit float64, s health.Sample) []types.Evidence {
	var ev []types.Evidence
	if label := m.SubjectLabel(); label != "" {
		ev = append(ev, types.Evidence{Label: label, Value: s.Subject})
	}
	return append(ev,
		types.Evidence{Label: m.ValueLabel(), Value: health.FormatValue(s.Value, m.Unit())},
		types.Evidence{Label: "threshold", Value: string(op) + " " + health.FormatValue(limit, m.Unit())},
	)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
