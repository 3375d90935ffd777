// Package engine evaluates the rule table against a fact model.
//
// Each rule runs on its own against the read-only model and thresholds.
// A rule whose required domains are unknown is skipped with an
// insufficient_data diagnostic; a rule that fails or panics becomes a
// rule_evaluation_failure diagnostic. Neither stops the other rules.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/esxidiag/internal/config"
	"github.com/steveyegge/esxidiag/internal/events"
	"github.com/steveyegge/esxidiag/internal/facts"
	"github.com/steveyegge/esxidiag/internal/health"
	"github.com/steveyegge/esxidiag/internal/logging"
	"github.com/steveyegge/esxidiag/internal/types"
)

// Options tune one Engine.
type Options struct {
	// Now is the reference time for age rules. Zero means the time New is called.
	Now time.Time
	// Workers bounds how many rules run at once. Values below 1 mean 1.
	Workers int
}

// Engine evaluates rules from one registry with one set of thresholds.
// It holds no per-run state and may evaluate several models concurrently.
type Engine struct {
	registry   *health.Registry
	thresholds config.Thresholds
	now        time.Time
	workers    int
	evaluators map[health.ConditionKind]evaluator
	logger     *slog.Logger
}

// evaluator interprets one condition kind. Hits become findings and skips
// become subject-level insufficient_data diagnostics.
type evaluator func(e *Engine, model *facts.Model, rule health.Rule) ([]health.Hit, []health.Skip, error)

// New creates an Engine. The reference time is fixed here and never re-read.
func New(reg *health.Registry, th config.Thresholds, opts Options) *Engine {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		registry:   reg,
		thresholds: th,
		now:        now.UTC(),
		workers:    workers,
		evaluators: map[health.ConditionKind]evaluator{
			health.KindThreshold: evalThreshold,
			health.KindPattern:   evalPattern,
			health.KindPresence:  evalPresence,
			health.KindAge:       evalAge,
		},
		logger: logging.New("engine"),
	}
}

// Now returns the run's reference time.
func (e *Engine) Now() time.Time { return e.now }

// Evaluation is the engine's raw output: findings before deduplication and
// the diagnostics gathered while evaluating.
type Evaluation struct {
	// Findings are in rule id order, then in the order each rule produced them
	Findings    []types.Finding
	Diagnostics []events.Diagnostic
	// RulesEvaluated counts rules that ran to completion (with or without findings)
	RulesEvaluated int
}

// Evaluate runs every registered rule against model.
func (e *Engine) Evaluate(ctx context.Context, model *facts.Model) (*Evaluation, error) {
	return e.evaluate(ctx, model, e.registry.Rules())
}

// EvaluateSubset runs only the rules with the given ids. Unknown ids are an
// error. A rule's findings are the same whether it runs alone or with the
// full registry.
func (e *Engine) EvaluateSubset(ctx context.Context, model *facts.Model, ids ...string) (*Evaluation, error) {
	rules, err := e.registry.Resolve(ids...)
	if err != nil {
		return nil, fmt.Errorf("resolving rules: %w", err)
	}
	return e.evaluate(ctx, model, rules)
}

// outcome is one rule's contribution to an Evaluation.
type outcome struct {
	findings  []types.Finding
	diags     []events.Diagnostic
	completed bool
}

func (e *Engine) evaluate(ctx context.Context, model *facts.Model, rules []health.Rule) (*Evaluation, error) {
	outcomes := make([]outcome, len(rules))

	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i, rule := range rules {
		i, rule := i, rule
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return nil, err
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = e.runRule(model, rule)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ev := &Evaluation{}
	for _, o := range outcomes {
		ev.Findings = append(ev.Findings, o.findings...)
		ev.Diagnostics = append(ev.Diagnostics, o.diags...)
		if o.completed {
			ev.RulesEvaluated++
		}
	}
	events.Sort(ev.Diagnostics)

	e.logger.Info("rules evaluated",
		"rules", len(rules),
		"completed", ev.RulesEvaluated,
		"findings", len(ev.Findings),
		"diagnostics", len(ev.Diagnostics))
	return ev, nil
}

// runRule evaluates one rule, turning a panic into a failure diagnostic so
// the remaining rules are unaffected.
func (e *Engine) runRule(model *facts.Model, rule health.Rule) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("rule panicked", "rule", rule.ID, "panic", r)
			out = outcome{diags: []events.Diagnostic{
				*events.NewRuleFailure(rule.ID, string(rule.Kind), true, fmt.Errorf("panic: %v", r)),
			}}
		}
	}()

	if missing := model.Missing(rule.Requires...); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, d := range missing {
			names[i] = string(d)
		}
		e.logger.Debug("rule skipped", "rule", rule.ID, "missing", names)
		return outcome{diags: []events.Diagnostic{*events.NewInsufficientData(rule.ID, names)}}
	}

	eval, ok := e.evaluators[rule.Kind]
	if !ok {
		err := fmt.Errorf("no evaluator for kind %q", rule.Kind)
		return outcome{diags: []events.Diagnostic{*events.NewRuleFailure(rule.ID, string(rule.Kind), false, err)}}
	}
	hits, skips, err := eval(e, model, rule)
	if err != nil {
		e.logger.Warn("rule failed", "rule", rule.ID, "error", err)
		return outcome{diags: []events.Diagnostic{*events.NewRuleFailure(rule.ID, string(rule.Kind), false, err)}}
	}

	out.completed = true
	for _, s := range skips {
		out.diags = append(out.diags, *events.NewSubjectSkipped(rule.ID, s.Subject, s.Reason))
	}
	for _, h := range hits {
		out.findings = append(out.findings, newFinding(rule, h.Evidence))
	}
	return out
}

// newFinding fills the rule's fixed template with evidence. The slices are
// copies so findings never share memory with the rule table.
func newFinding(rule health.Rule, evidence []types.Evidence) types.Finding {
	f := types.Finding{
		RuleID:      rule.ID,
		Category:    rule.Category,
		Severity:    rule.Severity,
		Title:       rule.Title,
		Description: rule.Description,
		Evidence:    slices.Clone(evidence),
		Remediation: slices.Clone(rule.Remediation),
		References:  slices.Clone(rule.References),
	}
	if f.Evidence == nil {
		f.Evidence = []types.Evidence{}
	}
	if f.Remediation == nil {
		f.Remediation = []string{}
	}
	if f.References == nil {
		f.References = []string{}
	}
	return f
}
