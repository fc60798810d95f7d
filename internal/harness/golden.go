package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/gridval/internal/report"
)

// RunWithGolden executes a case and compares its canonical outcome against
// testdata/golden/{case.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the case cannot run or stops with a configuration
// error. A mismatch against the golden file fails the test through goldie.
func RunWithGolden(t *testing.T, c *Case) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), c)
	if err != nil {
		return nil, err
	}
	if result.Outcome == nil {
		return result, &AssertionError{Type: "golden", Expected: "a validation outcome", Actual: "configuration error"}
	}
	return result, AssertGolden(t, c.Name, result)
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := report.Encode(result.Outcome)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
