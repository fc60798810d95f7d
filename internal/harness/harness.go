package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/gridval/internal/catalog"
	"github.com/roach88/gridval/internal/dataset"
	"github.com/roach88/gridval/internal/report"
	"github.com/roach88/gridval/internal/schema"
	"github.com/roach88/gridval/internal/validation"
)

// Option configures a run.
type Option func(*runner)

type runner struct {
	logger *slog.Logger
}

// WithLogger passes a logger to the validator of each case.
func WithLogger(l *slog.Logger) Option {
	return func(r *runner) {
		r.logger = l
	}
}

// Run executes a case and returns the result.
//
// An error is returned only when the case itself cannot run: its catalog
// fails to load or its input or batch blocks are malformed. Validation
// outcomes, including configuration errors, are reported in the Result.
//
// Execution flow:
// 1. Load the catalog (case directory or embedded default)
// 2. Decode input and batch
// 3. Validate the batch, or the input alone when there is no batch
// 4. Compare with expect, error and assertions
func Run(ctx context.Context, c *Case, opts ...Option) (*Result, error) {
	r := &runner{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(r)
	}

	cat, err := loadCatalog(c)
	if err != nil {
		return nil, fmt.Errorf("case %s: %w", c.Name, err)
	}
	input, err := dataset.DecodeDatasetNode(&c.Input)
	if err != nil {
		return nil, fmt.Errorf("case %s: input: %w", c.Name, err)
	}
	batch, err := dataset.DecodeBatchNode(&c.Batch)
	if err != nil {
		return nil, fmt.Errorf("case %s: batch: %w", c.Name, err)
	}

	vopts := []validation.Option{validation.WithLogger(r.logger.With("case", c.Name))}
	if c.Workers > 0 {
		vopts = append(vopts, validation.WithWorkers(c.Workers))
	}
	v, err := cat.Validator(vopts...)
	if err != nil {
		return nil, fmt.Errorf("case %s: %w", c.Name, err)
	}

	result := NewResult(c.Name)
	outcome, err := validate(ctx, v, input, batch, c.Batch.Kind != 0)
	if err != nil {
		var cfgErr *schema.ConfigError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
		checkConfigError(result, c, err)
		return result, nil
	}

	result.Outcome = outcome
	if result.Digest, err = report.Digest(outcome); err != nil {
		return nil, fmt.Errorf("case %s: %w", c.Name, err)
	}

	if c.Error != "" {
		result.AddError(fmt.Sprintf("expected configuration error containing %q, validation succeeded", c.Error))
		return result, nil
	}
	if c.Expect != nil {
		for _, msg := range compareExpect(c.Expect, outcome) {
			result.AddError(msg)
		}
	}
	for _, msg := range EvaluateAssertions(result, c.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// RunAll runs cases in order. It stops at the first case that cannot run.
func RunAll(ctx context.Context, cases []*Case, opts ...Option) ([]*Result, error) {
	results := make([]*Result, 0, len(cases))
	for _, c := range cases {
		res, err := Run(ctx, c, opts...)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func loadCatalog(c *Case) (*catalog.Catalog, error) {
	if dir := c.CatalogDir(); dir != "" {
		return catalog.Load(dir)
	}
	return catalog.Default()
}

// validate runs batch validation, or single-input validation as a
// one-scenario result when the case has no batch.
func validate(ctx context.Context, v *validation.Validator, input dataset.Dataset, batch dataset.Batch, hasBatch bool) (*validation.Result, error) {
	if hasBatch {
		return v.ValidateBatch(ctx, input, batch)
	}
	vs, err := v.ValidateInput(input)
	if err != nil {
		return nil, err
	}
	return &validation.Result{Scenarios: [][]validation.Violation{vs}}, nil
}

func checkConfigError(result *Result, c *Case, err error) {
	switch {
	case c.Error == "":
		result.AddError(fmt.Sprintf("unexpected configuration error: %v", err))
	case !strings.Contains(err.Error(), c.Error):
		result.AddError(fmt.Sprintf("configuration error %q does not contain %q", err.Error(), c.Error))
	}
}
