package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/gridval/internal/validation"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// compareExpect checks an outcome against an exact expectation.
func compareExpect(exp *Expect, outcome *validation.Result) []string {
	var errs []string
	if exp.Scenarios != nil && *exp.Scenarios != outcome.Len() {
		errs = append(errs, fmt.Sprintf("expected %d scenarios, got %d", *exp.Scenarios, outcome.Len()))
	}

	for i := range outcome.Len() {
		var want []validation.Violation
		for _, ev := range exp.Failures[i] {
			// Expectations were checked when the case was loaded.
			v, _ := ev.Violation()
			want = append(want, v)
		}
		got := outcome.Scenario(i)
		if !slices.EqualFunc(want, got, validation.Violation.Equal) {
			errs = append(errs, fmt.Sprintf("scenario %d:\n  expected: %s\n  actual:   %s", i, describe(want), describe(got)))
		}
	}

	for i := range exp.Failures {
		if i >= outcome.Len() {
			errs = append(errs, fmt.Sprintf("expected failures for scenario %d, outcome has %d scenarios", i, outcome.Len()))
		}
	}
	slices.Sort(errs)
	return errs
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, empty when all pass.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertContains:
			err = assertContains(result.Outcome, a)
		case AssertCount:
			err = assertCount(result.Outcome, a)
		case AssertClean:
			err = assertClean(result.Outcome, a)
		case AssertDigest:
			if result.Digest != a.Digest {
				err = &AssertionError{Type: AssertDigest, Expected: a.Digest, Actual: result.Digest}
			}
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertContains checks that a scenario has a violation of the kind listing
// every given id (subset match).
func assertContains(outcome *validation.Result, a Assertion) error {
	want, err := parseIDRefs(a.IDs)
	if err != nil {
		return err
	}
	expected := fmt.Sprintf("scenario %d has %s listing %s", *a.Scenario, a.Kind, strings.Join(a.IDs, ", "))
	if *a.Scenario < 0 || *a.Scenario >= outcome.Len() {
		return &AssertionError{Type: AssertContains, Expected: expected, Actual: fmt.Sprintf("outcome has %d scenarios", outcome.Len())}
	}

	vs := outcome.Scenario(*a.Scenario)
	for _, v := range vs {
		if string(v.Kind) != a.Kind {
			continue
		}
		if subset(want, v.IDs) {
			return nil
		}
	}
	return &AssertionError{Type: AssertContains, Expected: expected, Actual: describe(vs)}
}

// assertCount checks the number of violations in one scenario, or in the
// whole outcome when no scenario is given.
func assertCount(outcome *validation.Result, a Assertion) error {
	got, where := outcome.Count(), "in total"
	if a.Scenario != nil {
		where = fmt.Sprintf("in scenario %d", *a.Scenario)
		if *a.Scenario < 0 || *a.Scenario >= outcome.Len() {
			return &AssertionError{Type: AssertCount, Expected: fmt.Sprintf("%d violations %s", a.Count, where), Actual: fmt.Sprintf("outcome has %d scenarios", outcome.Len())}
		}
		got = len(outcome.Scenario(*a.Scenario))
	}
	if got != a.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d violations %s", a.Count, where),
			Actual:   fmt.Sprintf("%d violations", got),
		}
	}
	return nil
}

// assertClean checks that every listed scenario has no violations.
func assertClean(outcome *validation.Result, a Assertion) error {
	var dirty []string
	for _, i := range a.Scenarios {
		if i < 0 || i >= outcome.Len() {
			dirty = append(dirty, fmt.Sprintf("%d (out of range)", i))
			continue
		}
		if n := len(outcome.Scenario(i)); n > 0 {
			dirty = append(dirty, fmt.Sprintf("%d (%d violations)", i, n))
		}
	}
	if len(dirty) > 0 {
		return &AssertionError{
			Type:     AssertClean,
			Expected: fmt.Sprintf("scenarios %v clean", a.Scenarios),
			Actual:   "not clean: " + strings.Join(dirty, ", "),
		}
	}
	return nil
}

func subset(want, have []validation.IDRef) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}

func describe(vs []validation.Violation) string {
	if len(vs) == 0 {
		return "no violations"
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = "[" + string(v.Kind) + "] " + v.Error()
	}
	return strings.Join(parts, "; ")
}
