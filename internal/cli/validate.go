package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/gridval/internal/dataset"
	"github.com/roach88/gridval/internal/report"
	"github.com/roach88/gridval/internal/schema"
	"github.com/roach88/gridval/internal/store"
	"github.com/roach88/gridval/internal/validation"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Input   string
	Batch   string // optional: without it the input is validated as one scenario
	Catalog string // optional: embedded default catalog when empty
	Workers int
	Sparse  bool   // report failing scenarios only, keyed by index
	Store   string // optional: archive the run in this SQLite file
	Label   string
}

// ValidateResult is the JSON payload of the validate command.
type ValidateResult struct {
	Summary report.Summary  `json:"summary"`
	RunID   string          `json:"run_id,omitempty"`
	Result  json.RawMessage `json:"result"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an input dataset and a batch of update scenarios",
		Long: `Validate an input dataset, and optionally a batch of update scenarios,
against a component catalog.

Violations of the input alone are reported in every scenario. Each
scenario's updates are overlaid on the input and checked on their own.

Exit codes:
  0 - Every scenario is clean
  1 - At least one scenario has violations
  2 - Command or configuration error (unreadable files, bad catalog,
      unknown component or field, mismatched scenario counts)

Examples:
  gridval validate --input grid.yaml
  gridval validate --input grid.yaml --batch updates.yaml --workers 4
  gridval validate --input grid.yaml --batch updates.yaml --sparse --format json
  gridval validate --input grid.yaml --batch updates.yaml --store runs.db --label nightly`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "path to the input dataset (required)")
	_ = cmd.MarkFlagRequired("input")
	cmd.Flags().StringVar(&opts.Batch, "batch", "", "path to the batch update")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "directory of CUE catalog files (default: embedded catalog)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "scenarios validated concurrently (default: GOMAXPROCS)")
	cmd.Flags().BoolVar(&opts.Sparse, "sparse", false, "report only failing scenarios, keyed by index")
	cmd.Flags().StringVar(&opts.Store, "store", "", "archive the run in this SQLite database")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label for the archived run")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cat, err := loadCatalog(opts.Catalog)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to load catalog", err)
	}

	input, err := dataset.ReadDatasetFile(opts.Input)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, "failed to read input", err)
	}
	formatter.VerboseLog("Read input %s: %d component(s)", opts.Input, len(input))

	var batch dataset.Batch
	if opts.Batch != "" {
		if batch, err = dataset.ReadBatchFile(opts.Batch); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeReadFailed, "failed to read batch", err)
		}
		formatter.VerboseLog("Read batch %s: %d component(s)", opts.Batch, len(batch))
	}

	vopts := []validation.Option{validation.WithLogger(formatter.Logger())}
	if opts.Workers > 0 {
		vopts = append(vopts, validation.WithWorkers(opts.Workers))
	}
	v, err := cat.Validator(vopts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to build validator", err)
	}

	var res *validation.Result
	if opts.Batch != "" {
		res, err = v.ValidateBatch(ctx, input, batch)
	} else {
		var vs []validation.Violation
		if vs, err = v.ValidateInput(input); err == nil {
			res = &validation.Result{Scenarios: [][]validation.Violation{vs}}
		}
	}
	if err != nil {
		var cfgErr *schema.ConfigError
		if errors.As(err, &cfgErr) {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "configuration error", err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "validation aborted", err)
	}

	summary, err := report.Summarize(res)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to summarize result", err)
	}

	out := ValidateResult{Summary: summary}
	if opts.Store != "" {
		st, err := store.Open(opts.Store)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open store", err)
		}
		defer st.Close()

		run, err := st.SaveRun(ctx, opts.Label, res)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to archive run", err)
		}
		out.RunID = run.ID
		formatter.VerboseLog("Archived run %s in %s", run.ID, opts.Store)
	}

	if opts.Format == "json" {
		encode := report.Encode
		if opts.Sparse {
			encode = report.EncodeSparse
		}
		if out.Result, err = encode(res); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to encode result", err)
		}
		return outputValidateJSON(cmd.OutOrStdout(), out)
	}
	return outputValidateText(cmd.OutOrStdout(), res, out, opts.Sparse)
}

// outputValidateJSON outputs the validation result as JSON.
func outputValidateJSON(w io.Writer, out ValidateResult) error {
	response := CLIResponse{Status: "ok", Data: out}
	failed := len(out.Summary.Failed)
	if failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeViolations,
			Message: fmt.Sprintf("%d scenario(s) have violations", failed),
		}
	}

	if err := encodeIndented(w, response); err != nil {
		return err
	}
	if failed > 0 {
		// Violations = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) have violations", failed))
	}
	return nil
}

// outputValidateText outputs the validation result as text. Clean scenarios
// are listed too unless sparse is set.
func outputValidateText(w io.Writer, res *validation.Result, out ValidateResult, sparse bool) error {
	writeScenarios(w, res, sparse)

	s := out.Summary
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Validation Summary: %d scenario(s), %d failed, %d violation(s)\n", s.Scenarios, len(s.Failed), s.Violations)
	fmt.Fprintf(w, "Digest: %s\n", s.Digest)
	if out.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", out.RunID)
	}

	if len(s.Failed) > 0 {
		// Violations = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) have violations", len(s.Failed)))
	}
	fmt.Fprintln(w, "✓ All scenarios valid")
	return nil
}

// writeScenarios prints one block per scenario.
func writeScenarios(w io.Writer, res *validation.Result, sparse bool) {
	for i, vs := range res.Scenarios {
		if len(vs) == 0 {
			if !sparse {
				fmt.Fprintf(w, "✓ scenario %d\n", i)
			}
			continue
		}
		fmt.Fprintf(w, "✗ scenario %d: %d violation(s)\n", i, len(vs))
		for _, v := range vs {
			fmt.Fprintf(w, "  [%s] %s\n", v.Kind, v.Error())
		}
	}
}
