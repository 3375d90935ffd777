package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/steveyegge/esxidiag/internal/artifacts"
	"github.com/steveyegge/esxidiag/internal/config"
	"github.com/steveyegge/esxidiag/internal/deduplication"
	"github.com/steveyegge/esxidiag/internal/events"
	"github.com/steveyegge/esxidiag/internal/facts"
	"github.com/steveyegge/esxidiag/internal/health"
	"github.com/steveyegge/esxidiag/internal/logging"
	"github.com/steveyegge/esxidiag/internal/parsers"
	"github.com/steveyegge/esxidiag/internal/types"
)

// Analyzer coordinates one analysis run:
// - Reads the collection directory
// - Parses artifacts in parallel
// - Merges the records into one fact model
// - Evaluates the rule table
// - Deduplicates and orders the findings
type Analyzer struct {
	registry   *health.Registry
	thresholds config.Thresholds
	settings   config.RunSettings
	now        time.Time

	// Warnings are carried into every report, e.g. threshold document warnings
	Warnings []events.Diagnostic

	// MaxArtifactSize caps bytes read per artifact; 0 means no cap
	MaxArtifactSize int64
}

// NewAnalyzer creates an Analyzer. A zero now means the time of each run.
func NewAnalyzer(reg *health.Registry, th config.Thresholds, settings config.RunSettings, now time.Time) *Analyzer {
	if reg == nil {
		reg = health.DefaultRegistry()
	}
	return &Analyzer{
		registry:   reg,
		thresholds: th,
		settings:   settings,
		now:        now,
	}
}

// Report is the result of one analysis run.
type Report struct {
	RunID      string    `json:"run_id"`
	Collection string    `json:"collection,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`

	// KnownDomains lists the fact domains some artifact supplied
	KnownDomains []facts.Domain `json:"known_domains"`
	// MissingArtifacts lists expected artifact names that were absent
	MissingArtifacts []string `json:"missing_artifacts,omitempty"`

	Findings    types.FindingList   `json:"findings"`
	Diagnostics []events.Diagnostic `json:"diagnostics"`
	Stats       ReportStats         `json:"stats"`
}

// ReportStats summarizes a run.
type ReportStats struct {
	Artifacts      int `json:"artifacts"`
	Records        int `json:"records"`
	ParseWarnings  int `json:"parse_warnings"`
	RulesEvaluated int `json:"rules_evaluated"`
	RawFindings    int `json:"raw_findings"`
	Duplicates     int `json:"duplicates"`
}

// Run analyzes the collection directory dir. Absent or unreadable artifacts
// leave their facts unknown; only a missing directory or cancellation is an
// error.
func (a *Analyzer) Run(ctx context.Context, dir string) (*Report, error) {
	logger := logging.New("analyzer")

	reader := artifacts.NewReader(dir)
	reader.MaxSize = a.MaxArtifactSize
	col, err := reader.Read(ctx)
	if err != nil {
		return nil, err
	}

	results, unreadable, err := parsers.ParseAll(ctx, col.Artifacts, a.settings.Workers)
	if err != nil {
		return nil, fmt.Errorf("parsing artifacts: %w", err)
	}

	builder := facts.NewBuilder()
	diags := append([]events.Diagnostic{}, col.Diagnostics...)
	diags = append(diags, unreadable...)
	warnings := len(events.Filter(col.Diagnostics, events.TypeParseWarning))
	for _, r := range results {
		builder.Add(r.Records...)
		diags = append(diags, r.Warnings...)
		warnings += len(r.Warnings)
	}
	logger.Debug("records merged", "records", builder.Len(), "parse_warnings", warnings)

	report, err := a.Evaluate(ctx, builder.Build())
	if err != nil {
		return nil, err
	}
	report.Collection = dir
	report.MissingArtifacts = col.Missing
	report.Diagnostics = append(report.Diagnostics, diags...)
	events.Sort(report.Diagnostics)
	report.Stats.Artifacts = len(col.Artifacts)
	report.Stats.Records = builder.Len()
	report.Stats.ParseWarnings = warnings

	logger.Info("analysis complete",
		"run_id", report.RunID,
		"findings", len(report.Findings),
		"diagnostics", len(report.Diagnostics))
	return report, nil
}

// Evaluate runs the rule and deduplication stages on an already built model.
func (a *Analyzer) Evaluate(ctx context.Context, model *facts.Model) (*Report, error) {
	eng := New(a.registry, a.thresholds, Options{Now: a.now, Workers: a.settings.Workers})

	eval, err := eng.Evaluate(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("evaluating rules: %w", err)
	}

	agg := deduplication.Aggregate(eval.Findings)
	if err := agg.Validate(); err != nil {
		return nil, fmt.Errorf("aggregating findings: %w", err)
	}

	diags := append([]events.Diagnostic{}, a.Warnings...)
	diags = append(diags, eval.Diagnostics...)
	events.Sort(diags)

	return &Report{
		RunID:        uuid.New().String(),
		AnalyzedAt:   eng.Now(),
		KnownDomains: model.KnownDomains(),
		Findings:     agg.Findings,
		Diagnostics:  diags,
		Stats: ReportStats{
			RulesEvaluated: eval.RulesEvaluated,
			RawFindings:    agg.Stats.TotalCandidates,
			Duplicates:     agg.Stats.WithinBatchDuplicateCount,
		},
	}, nil
}
