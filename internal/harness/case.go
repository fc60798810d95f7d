package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gridval/internal/schema"
	"github.com/roach88/gridval/internal/validation"
)

// Case defines one conformance case: an input, an optional batch, and the
// outcome validation must produce.
type Case struct {
	// Name uniquely identifies this case. Golden snapshots use it as the
	// file name.
	Name string `yaml:"name"`

	// Description explains what this case validates.
	Description string `yaml:"description"`

	// Catalog is a directory of CUE catalog files, relative to the case
	// file. Empty selects the embedded default catalog.
	Catalog string `yaml:"catalog,omitempty"`

	// Workers bounds validation concurrency. Zero uses the validator
	// default.
	Workers int `yaml:"workers,omitempty"`

	// Input is the base dataset.
	Input yaml.Node `yaml:"input"`

	// Batch is the optional batch update, in dense or sparse form.
	Batch yaml.Node `yaml:"batch,omitempty"`

	// Expect is the exact expected outcome.
	Expect *Expect `yaml:"expect,omitempty"`

	// Error, when set, expects validation to fail with a configuration
	// error whose message contains this text.
	Error string `yaml:"error,omitempty"`

	// Assertions are additional checks on the outcome.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	dir string
}

// Expect is the exact expected outcome of a case.
type Expect struct {
	// Scenarios is the expected scenario count, when set.
	Scenarios *int `yaml:"scenarios,omitempty"`

	// Failures maps each failing scenario to its violations, in order.
	Failures map[int][]ExpectedViolation `yaml:"failures"`
}

// ExpectedViolation is the YAML form of a violation.
type ExpectedViolation struct {
	Kind   string   `yaml:"kind"`
	Fields []string `yaml:"fields"` // "component.field"
	IDs    []string `yaml:"ids"`    // "component:id"
	Detail string   `yaml:"detail,omitempty"`
}

// Violation converts the expectation into a comparable violation.
func (e ExpectedViolation) Violation() (validation.Violation, error) {
	v := validation.Violation{Kind: validation.Kind(e.Kind), Detail: e.Detail}
	for _, f := range e.Fields {
		ref, err := schema.ParseFieldRef(f)
		if err != nil {
			return validation.Violation{}, err
		}
		v.Fields = append(v.Fields, ref)
	}
	refs, err := parseIDRefs(e.IDs)
	if err != nil {
		return validation.Violation{}, err
	}
	v.IDs = refs
	return v, nil
}

// Assertion is an additional check on a case outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "contains": scenario has a violation of kind listing ids
	// - "count": total violations, or violations of one scenario
	// - "clean": listed scenarios have no violations
	// - "digest": result digest equals digest
	Type string `yaml:"type"`

	// Scenario selects one scenario (contains, and count when set).
	Scenario *int `yaml:"scenario,omitempty"`

	// Scenarios lists scenarios (clean).
	Scenarios []int `yaml:"scenarios,omitempty"`

	// Kind is the violation kind (contains).
	Kind string `yaml:"kind,omitempty"`

	// IDs must all be listed by the matching violation (contains).
	IDs []string `yaml:"ids,omitempty"`

	// Count is the expected number of violations (count).
	Count int `yaml:"count,omitempty"`

	// Digest is the expected result digest (digest).
	Digest string `yaml:"digest,omitempty"`
}

// Assertion type constants.
const (
	AssertContains = "contains"
	AssertCount    = "count"
	AssertClean    = "clean"
	AssertDigest   = "digest"
)

// LoadCase reads and parses a case YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}

	var c Case
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	c.dir = filepath.Dir(path)

	if err := validateCase(&c); err != nil {
		return nil, fmt.Errorf("invalid case %s: %w", path, err)
	}
	return &c, nil
}

// LoadCases loads every .yaml and .yml case in dir, sorted by file name.
func LoadCases(dir string) ([]*Case, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no case files found in %s", dir)
	}

	cases := make([]*Case, 0, len(paths))
	names := make(map[string]string, len(paths))
	for _, p := range paths {
		c, err := LoadCase(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := names[c.Name]; dup {
			return nil, fmt.Errorf("case name %q used by both %s and %s", c.Name, prev, p)
		}
		names[c.Name] = p
		cases = append(cases, c)
	}
	return cases, nil
}

// CatalogDir returns the resolved catalog directory, or "" for the default.
func (c *Case) CatalogDir() string {
	if c.Catalog == "" || filepath.IsAbs(c.Catalog) {
		return c.Catalog
	}
	return filepath.Join(c.dir, c.Catalog)
}

// validateCase checks that required fields are present and valid.
func validateCase(c *Case) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}
	if c.Input.Kind == 0 {
		return fmt.Errorf("input is required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	if c.Expect == nil && c.Error == "" && len(c.Assertions) == 0 {
		return fmt.Errorf("one of expect, error or assertions is required")
	}
	if c.Error != "" && (c.Expect != nil || len(c.Assertions) > 0) {
		return fmt.Errorf("error cannot be combined with expect or assertions")
	}

	if c.Expect != nil {
		for i, vs := range c.Expect.Failures {
			if i < 0 {
				return fmt.Errorf("expect.failures: negative scenario %d", i)
			}
			if len(vs) == 0 {
				return fmt.Errorf("expect.failures[%d]: list the violations or drop the scenario", i)
			}
			for j, v := range vs {
				if v.Kind == "" {
					return fmt.Errorf("expect.failures[%d][%d]: kind is required", i, j)
				}
				if _, err := v.Violation(); err != nil {
					return fmt.Errorf("expect.failures[%d][%d]: %w", i, j, err)
				}
			}
		}
	}

	for i, a := range c.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertContains:
		if a.Scenario == nil || a.Kind == "" {
			return fmt.Errorf("assertions[%d]: scenario and kind are required for contains", index)
		}
		if _, err := parseIDRefs(a.IDs); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertClean:
		if len(a.Scenarios) == 0 {
			return fmt.Errorf("assertions[%d]: scenarios list is required for clean", index)
		}
	case AssertDigest:
		if a.Digest == "" {
			return fmt.Errorf("assertions[%d]: digest is required", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// parseIDRefs parses "component:id" references.
func parseIDRefs(ss []string) ([]validation.IDRef, error) {
	refs := make([]validation.IDRef, 0, len(ss))
	for _, s := range ss {
		component, raw, ok := strings.Cut(s, ":")
		if !ok || component == "" {
			return nil, fmt.Errorf("id reference %q is not component:id", s)
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("id reference %q: %w", s, err)
		}
		refs = append(refs, validation.IDRef{Component: component, ID: id})
	}
	return refs, nil
}
