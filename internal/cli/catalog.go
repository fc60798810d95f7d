package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/gridval/internal/catalog"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	Catalog string
}

// CatalogField is one declared field.
type CatalogField struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// CatalogComponent is one component schema.
type CatalogComponent struct {
	Name   string         `json:"name"`
	Fields []CatalogField `json:"fields"`
}

// CatalogRule is one rule in reporting order.
type CatalogRule struct {
	Name  string `json:"name"`
	Scope string `json:"scope"`
}

// CatalogResult is the JSON payload of the catalog command.
type CatalogResult struct {
	Components []CatalogComponent `json:"components"`
	Rules      []CatalogRule      `json:"rules"`
	Defaults   bool               `json:"defaults"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the components, fields and rules of a catalog",
		Long: `Print the components, field semantics and rules of a catalog.

Without --catalog the embedded power-grid catalog is printed. Rules are
listed in the order their violations are reported: scenario-invariant
rules first, then scenario-dependent rules, each in catalog order.

Examples:
  gridval catalog
  gridval catalog --catalog ./catalog --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "directory of CUE catalog files (default: embedded catalog)")

	return cmd
}

func runCatalog(opts *CatalogOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cat, err := loadCatalog(opts.Catalog)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to load catalog", err)
	}

	result, err := describeCatalog(cat)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, "failed to describe catalog", err)
	}

	if opts.Format == "json" {
		return encodeIndented(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	outputCatalogText(cmd.OutOrStdout(), result)
	return nil
}

func describeCatalog(cat *catalog.Catalog) (CatalogResult, error) {
	result := CatalogResult{Defaults: cat.Defaults}
	for _, name := range cat.Registry.Components() {
		fields, err := cat.Registry.FieldsOf(name)
		if err != nil {
			return CatalogResult{}, err
		}
		comp := CatalogComponent{Name: name, Fields: make([]CatalogField, len(fields))}
		for i, f := range fields {
			comp.Fields[i] = CatalogField{Name: f.Name, Kind: string(f.Kind)}
		}
		result.Components = append(result.Components, comp)
	}
	v, err := cat.Validator()
	if err != nil {
		return CatalogResult{}, err
	}
	for _, r := range v.Rules() {
		result.Rules = append(result.Rules, CatalogRule{Name: r.Name(), Scope: r.Scope().String()})
	}
	if result.Rules == nil {
		result.Rules = []CatalogRule{}
	}
	return result, nil
}

// outputCatalogText outputs the catalog as aligned text.
func outputCatalogText(w io.Writer, result CatalogResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Components: %d\n", len(result.Components))
	for _, c := range result.Components {
		fmt.Fprintf(tw, "  %s\n", c.Name)
		for _, f := range c.Fields {
			fmt.Fprintf(tw, "    %s\t%s\n", f.Name, f.Kind)
		}
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintf(tw, "Rules: %d\n", len(result.Rules))
	for _, r := range result.Rules {
		fmt.Fprintf(tw, "  %s\t%s\n", r.Name, r.Scope)
	}
	tw.Flush()
}
