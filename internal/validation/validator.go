package validation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/gridval/internal/dataset"
	"github.com/roach88/gridval/internal/schema"
)

// Validator runs a fixed rule set against datasets and batches.
//
// A Validator is immutable after New and safe for concurrent use; every
// call builds its own identifier index and shares nothing mutable.
//
// INVARIANTS:
//   - rule order never changes after construction
//   - baseline (scenario-invariant) violations prefix every scenario slot
//   - slot i of a Result always describes scenario i, whatever order
//     workers finish in
type Validator struct {
	reg       *schema.Registry
	invariant []Rule
	dependent []Rule
	workers   int
	logger    *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithWorkers sets the maximum number of scenarios validated concurrently.
//
// Default: runtime.GOMAXPROCS(0). Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(v *Validator) {
		if n < 1 {
			n = 1
		}
		v.workers = n
	}
}

// WithLogger sets the logger. Default: logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// New verifies every rule against the registry and builds a Validator.
// The rules slice is copied; its order is the reporting order.
func New(reg *schema.Registry, rules []Rule, opts ...Option) (*Validator, error) {
	v := &Validator{
		reg:     reg,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for i, rule := range rules {
		if err := rule.Verify(reg); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rule.Name(), err)
		}
		if rule.Scope() == ScenarioInvariant {
			v.invariant = append(v.invariant, rule)
		} else {
			v.dependent = append(v.dependent, rule)
		}
	}

	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Rules returns the configured rules: scenario-invariant first, then
// scenario-dependent, each group in configured order.
func (v *Validator) Rules() []Rule {
	return append(slices.Clone(v.invariant), v.dependent...)
}

// ValidateInput validates a single dataset: scenario-invariant rules, then
// scenario-dependent rules, all against the input itself.
func (v *Validator) ValidateInput(input dataset.Dataset) ([]Violation, error) {
	idx, err := dataset.NewIndex(v.reg, input)
	if err != nil {
		return nil, err
	}

	out := Dedup(runRules(v.invariant, idx))
	return append(out, Dedup(runRules(v.dependent, idx))...), nil
}

// ValidateBatch validates every scenario of a batch against the input.
//
// Algorithm:
//  1. Index the input and run scenario-invariant rules once (the baseline).
//  2. Run scenario-dependent rules once on the input (the reuse cache).
//  3. For each scenario, concurrently: merge its update, collect referential
//     violations, then run each scenario-dependent rule, reusing the cached
//     outcome when the scenario overrides none of the fields the rule reads.
//  4. Slot i = baseline, then scenario i's own violations. A violation
//     reported twice (a rule configured twice) appears once. Every slot owns
//     its violations; editing one slot leaves the others unchanged.
//
// Returns an error only for configuration errors or context cancellation.
func (v *Validator) ValidateBatch(ctx context.Context, input dataset.Dataset, batch dataset.Batch) (*Result, error) {
	idx, err := dataset.NewIndex(v.reg, input)
	if err != nil {
		return nil, err
	}
	if err := batch.Conform(v.reg); err != nil {
		return nil, err
	}
	n, err := batch.Scenarios()
	if err != nil {
		return nil, err
	}

	baseline := Dedup(runRules(v.invariant, idx))
	cached := make([][]Violation, len(v.dependent))
	for i, rule := range v.dependent {
		cached[i] = rule.Check(idx)
	}

	v.logger.Debug("batch prepared",
		"scenarios", n,
		"baseline_violations", len(baseline),
		"workers", v.workers,
	)

	slots := make([][]Violation, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			own, err := v.scenario(idx, batch.Scenario(i), cached, i)
			if err != nil {
				return fmt.Errorf("scenario %d: %w", i, err)
			}
			slot := make([]Violation, 0, len(baseline)+len(own))
			for _, vl := range baseline {
				slot = append(slot, vl.Clone())
			}
			for _, vl := range own {
				slot = append(slot, vl.Clone())
			}
			slots[i] = slot
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Scenarios: slots}
	v.logger.Info("batch validated",
		"scenarios", n,
		"failed", len(res.Failed()),
		"violations", res.Count(),
	)
	return res, nil
}

// scenario merges one update and runs the scenario-dependent rules.
func (v *Validator) scenario(idx *dataset.Index, update dataset.Update, cached [][]Violation, i int) ([]Violation, error) {
	ov, unresolved, err := idx.Merge(update)
	if err != nil {
		return nil, err
	}

	out := unresolvedViolations(unresolved)
	reused := 0
	for r, rule := range v.dependent {
		if !touchesAny(ov, rule.Reads()) {
			out = append(out, cached[r]...)
			reused++
			continue
		}
		out = append(out, rule.Check(ov)...)
	}

	out = Dedup(out)
	v.logger.Debug("scenario validated",
		"scenario", i,
		"violations", len(out),
		"touched_fields", len(ov.Touched()),
		"unresolved_components", len(unresolved),
		"rules_reused", reused,
	)
	return out, nil
}

func runRules(rules []Rule, view dataset.View) []Violation {
	var out []Violation
	for _, rule := range rules {
		out = append(out, rule.Check(view)...)
	}
	return out
}

func touchesAny(ov *dataset.Overlay, refs []schema.FieldRef) bool {
	for _, ref := range refs {
		if ov.Touches(ref) {
			return true
		}
	}
	return false
}
