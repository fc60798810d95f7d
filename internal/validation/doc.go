// Package validation checks network datasets and batch updates against a
// configured rule set and reports structured violations per scenario.
//
// Rules come in two scopes. Scenario-invariant rules (identifier uniqueness)
// run once against the base input; their violations form a baseline that
// prefixes every scenario's list. Scenario-dependent rules (flag validity,
// numeric bounds, required values) run against each scenario's merged view.
// Referential violations are produced while merging, before any
// scenario-dependent rule runs.
//
// Content problems are always returned as Violation values. Only
// configuration errors (*schema.ConfigError) and context cancellation are
// returned as errors.
//
// Usage:
//
//	rules, err := validation.BuildRules(reg, specs)
//	v, err := validation.New(reg, rules, validation.WithWorkers(8))
//	res, err := v.ValidateBatch(ctx, input, batch)
//	for i, vs := range res.Scenarios { ... }
package validation
