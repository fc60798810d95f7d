package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/gridval/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // case filter (glob pattern on the case name)
}

// CaseResult holds the result of a single case.
type CaseResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
	Digest string   `json:"digest,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Cases  []CaseResult `json:"cases"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Total  int          `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <cases-dir>",
		Short: "Run conformance cases",
		Long: `Run YAML conformance cases.

Each case holds an input, an optional batch and the outcome validation
must produce: exact per-scenario violations, an expected configuration
error, or assertions on the result.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed
  2 - Command error (invalid paths, malformed case files, etc.)

Examples:
  gridval test ./cases
  gridval test ./cases --filter "update_*"
  gridval test ./cases --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter cases by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, casesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(casesDir); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, fmt.Sprintf("cases directory not found: %s", casesDir), nil)
	}
	if _, err := filepath.Match(opts.Filter, ""); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid filter pattern", err)
	}

	cases, err := harness.LoadCases(casesDir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, "failed to load cases", err)
	}

	var selected []*harness.Case
	for _, c := range cases {
		if opts.Filter != "" {
			if matched, _ := filepath.Match(opts.Filter, c.Name); !matched {
				continue
			}
		}
		selected = append(selected, c)
	}

	result := TestResult{
		Cases: make([]CaseResult, 0, len(selected)),
		Total: len(selected),
	}
	if len(selected) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd.OutOrStdout(), result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No cases found.")
		return nil
	}

	logger := formatter.Logger()
	for _, c := range selected {
		formatter.VerboseLog("Running case: %s", c.Name)
		caseResult := runCase(cmd, c, logger)
		result.Cases = append(result.Cases, caseResult)
		if caseResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		if opts.Format != "json" {
			writeCaseResult(cmd.OutOrStdout(), caseResult)
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd.OutOrStdout(), result)
	}
	return outputTestText(cmd.OutOrStdout(), result)
}

// runCase runs one case. A case that cannot run is a failed case.
func runCase(cmd *cobra.Command, c *harness.Case, logger *slog.Logger) CaseResult {
	res, err := harness.Run(cmd.Context(), c, harness.WithLogger(logger))
	if err != nil {
		return CaseResult{
			Name:   c.Name,
			Pass:   false,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}
	return CaseResult{Name: res.Name, Pass: res.Pass, Errors: res.Errors, Digest: res.Digest}
}

func writeCaseResult(w io.Writer, r CaseResult) {
	if r.Pass {
		fmt.Fprintf(w, "✓ %s\n", r.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", r.Name)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(w io.Writer, result TestResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d case(s) failed", result.Failed),
		}
	}

	if err := encodeIndented(w, response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(w io.Writer, result TestResult) error {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All cases passed")
	return nil
}
