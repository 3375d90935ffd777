// Package parsers turns raw artifacts into partial fact records.
//
// There is one parser per artifact dialect. Parsing is line tolerant: a
// malformed line or block becomes a parse_warning diagnostic and parsing
// continues. Only a structurally unreadable artifact fails, and then only
// that artifact's facts stay unknown.
package parsers

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/esxidiag/internal/artifacts"
	"github.com/steveyegge/esxidiag/internal/events"
	"github.com/steveyegge/esxidiag/internal/facts"
	"github.com/steveyegge/esxidiag/internal/logging"
)

// Parser converts one artifact dialect into records.
// Implementations hold no state between calls and are safe for concurrent use.
type Parser interface {
	Dialect() artifacts.Dialect
	// Parse returns the artifact's records and warnings. The error is
	// reserved for artifacts that cannot be parsed at all.
	Parse(a artifacts.Artifact) (Result, error)
}

// Result is the immutable output of parsing one artifact.
type Result struct {
	Artifact string
	Records  []facts.Record
	Warnings []events.Diagnostic
}

var registry = map[artifacts.Dialect]Parser{}

func register(p Parser) {
	if _, dup := registry[p.Dialect()]; dup {
		panic(fmt.Sprintf("parsers: duplicate parser for dialect %s", p.Dialect()))
	}
	registry[p.Dialect()] = p
}

func init() {
	register(systemInfoParser{})
	register(perfCountersParser{})
	register(hwHealthParser{})
	register(sensorTableParser{})
	register(storageAdapterParser{})
	register(datastoreParser{})
	register(networkConfigParser{})
	register(vmInventoryParser{})
	register(vmSnapshotsParser{})
	register(kernelLogParser{})
	register(serviceLogParser{})
}

// For returns the parser for dialect d.
func For(d artifacts.Dialect) (Parser, bool) {
	p, ok := registry[d]
	return p, ok
}

// Parse runs the dialect's parser on a, converting a panic into an error so
// one broken artifact cannot take the run down.
func Parse(a artifacts.Artifact) (res Result, err error) {
	p, ok := For(a.Dialect)
	if !ok {
		return Result{}, fmt.Errorf("no parser for dialect %q", a.Dialect)
	}
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = fmt.Errorf("%s parser panicked: %v", a.Dialect, r)
		}
	}()
	return p.Parse(a)
}

// ParseAll parses artifacts in parallel with at most workers goroutines.
// Each artifact is parsed independently into its own Result; results come
// back in input order. Artifacts that fail become artifact_unreadable
// diagnostics. Cancellation is honored between artifacts only: a parse
// that has started always finishes.
func ParseAll(ctx context.Context, arts []artifacts.Artifact, workers int) ([]Result, []events.Diagnostic, error) {
	logger := logging.New("parsers")
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(arts))
	errs := make([]error, len(arts))

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, a := range arts {
		i, a := i, a
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return nil, nil, err
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = Parse(a)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var out []Result
	var diags []events.Diagnostic
	for i, a := range arts {
		if errs[i] != nil {
			logger.Info("artifact unreadable", "artifact", a.Name, "error", errs[i])
			diags = append(diags, *events.NewArtifactUnreadable(a.Name, errs[i]))
			continue
		}
		logger.Debug("artifact parsed",
			"artifact", a.Name,
			"dialect", a.Dialect,
			"records", len(results[i].Records),
			"warnings", len(results[i].Warnings))
		out = append(out, results[i])
	}
	return out, diags, nil
}

// session accumulates one Parse call's output.
type session struct {
	artifact string
	dialect  artifacts.Dialect
	records  []facts.Record
	warnings []events.Diagnostic
}

func newSession(a artifacts.Artifact) *session {
	return &session{artifact: a.Name, dialect: a.Dialect}
}

// emit stamps r with the artifact name and line and queues it.
func (s *session) emit(line int, r facts.Record) {
	r.Source = s.artifact
	r.Line = line
	s.records = append(s.records, r)
}

func (s *session) warn(line int, reason, excerpt string) {
	s.warnings = append(s.warnings, *events.NewParseWarning(s.artifact, string(s.dialect), line, reason, excerpt))
}

// result finishes the session. Each domain in covers that no emitted record
// supplied gets a coverage-only record, so an artifact listing zero
// entries still makes its domain known.
func (s *session) result(covers ...facts.Domain) Result {
	supplied := make(map[facts.Domain]bool)
	for _, r := range s.records {
		for _, d := range r.Domains() {
			supplied[d] = true
		}
	}
	for _, d := range covers {
		if !supplied[d] {
			s.records = append(s.records, facts.Record{Source: s.artifact, Covers: d})
		}
	}
	sort.SliceStable(s.warnings, func(i, j int) bool { return s.warnings[i].Line < s.warnings[j].Line })
	return Result{Artifact: s.artifact, Records: s.records, Warnings: s.warnings}
}
