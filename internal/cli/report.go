package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/gridval/internal/report"
	"github.com/roach88/gridval/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Store  string
	Sparse bool
	Digest string // list only runs whose result has this digest
	Delete bool   // delete the given run instead of printing it
}

// RunSummary is one archived run in a listing.
type RunSummary struct {
	ID      string         `json:"id"`
	Label   string         `json:"label,omitempty"`
	Summary report.Summary `json:"summary"`
}

// DeleteResult is the JSON payload of report --delete.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// ReportResult is the JSON payload of the report command for one run.
type ReportResult struct {
	RunSummary
	Result json.RawMessage `json:"result"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Print an archived validation run",
		Long: `Print an archived validation run, or list every archived run when no
run id is given.

The stored result is checked against its digest before it is printed.
With --digest the listing keeps only runs with that result digest, which
finds earlier runs that produced the same outcome. With --delete the
given run is removed from the archive.

Exit codes:
  0 - Run printed
  2 - Command error (store not found, unknown run, corrupt result)

Examples:
  gridval report --store runs.db
  gridval report 01927b2e-6f1c-7c3a-9d2e-3c1f0b7a9e55 --store runs.db
  gridval report 01927b2e-6f1c-7c3a-9d2e-3c1f0b7a9e55 --store runs.db --format json
  gridval report --store runs.db --digest 9f2c...
  gridval report 01927b2e-6f1c-7c3a-9d2e-3c1f0b7a9e55 --store runs.db --delete`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if opts.Delete {
					formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
					return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--delete requires a run id", nil)
				}
				return runListRuns(opts, cmd)
			}
			if opts.Delete {
				return runDeleteRun(opts, args[0], cmd)
			}
			return runReport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "", "path to the SQLite run archive (required)")
	_ = cmd.MarkFlagRequired("store")
	cmd.Flags().BoolVar(&opts.Sparse, "sparse", false, "report only failing scenarios, keyed by index")
	cmd.Flags().StringVar(&opts.Digest, "digest", "", "list only runs whose result has this digest")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "delete the given run from the archive")

	return cmd
}

func runReport(opts *ReportOptions, id string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openExistingStore(opts.Store)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open store", err)
	}
	defer st.Close()

	run, err := st.LoadRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", id), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to load run", err)
	}

	summary := RunSummary{ID: run.ID, Label: run.Label, Summary: run.Summary}
	if opts.Format == "json" {
		encode := report.Encode
		if opts.Sparse {
			encode = report.EncodeSparse
		}
		data, err := encode(run.Result)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to encode result", err)
		}
		return encodeIndented(cmd.OutOrStdout(), CLIResponse{
			Status: "ok",
			Data:   ReportResult{RunSummary: summary, Result: data},
		})
	}

	w := cmd.OutOrStdout()
	writeRunHeader(w, summary)
	fmt.Fprintln(w)
	writeScenarios(w, run.Result, opts.Sparse)
	return nil
}

func runListRuns(opts *ReportOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openExistingStore(opts.Store)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open store", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
	}

	var keep map[string]bool
	if opts.Digest != "" {
		ids, err := st.RunsWithDigest(ctx, opts.Digest)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to look up digest", err)
		}
		keep = make(map[string]bool, len(ids))
		for _, id := range ids {
			keep[id] = true
		}
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		if keep != nil && !keep[r.ID] {
			continue
		}
		summaries = append(summaries, RunSummary{ID: r.ID, Label: r.Label, Summary: r.Summary})
	}

	if opts.Format == "json" {
		return encodeIndented(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: summaries})
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs found in store.")
		return nil
	}
	fmt.Fprintf(w, "Runs: %d\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintln(w)
		writeRunHeader(w, s)
	}
	return nil
}

func runDeleteRun(opts *ReportOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openExistingStore(opts.Store)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open store", err)
	}
	defer st.Close()

	err = st.DeleteRun(cmd.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", id), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to delete run", err)
	}
	formatter.VerboseLog("Deleted run %s from %s", id, opts.Store)

	if opts.Format == "json" {
		return encodeIndented(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: DeleteResult{ID: id, Deleted: true}})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted run %s\n", id)
	return nil
}

func writeRunHeader(w io.Writer, s RunSummary) {
	status := "✓"
	if len(s.Summary.Failed) > 0 {
		status = "✗"
	}
	fmt.Fprintf(w, "%s Run: %s\n", status, s.ID)
	if s.Label != "" {
		fmt.Fprintf(w, "  Label: %s\n", s.Label)
	}
	fmt.Fprintf(w, "  Scenarios: %d, failed: %d, violations: %d\n", s.Summary.Scenarios, len(s.Summary.Failed), s.Summary.Violations)
	fmt.Fprintf(w, "  Digest: %s\n", s.Summary.Digest)
}

// openExistingStore opens an archive without creating it.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return store.Open(path)
}
