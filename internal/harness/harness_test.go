package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCase(t *testing.T, path string) *Result {
	t.Helper()
	c, err := LoadCase(path)
	require.NoError(t, err)
	res, err := Run(context.Background(), c)
	require.NoError(t, err)
	return res
}

func TestRunCases(t *testing.T) {
	cases, err := LoadCases("testdata/cases")
	require.NoError(t, err)

	results, err := RunAll(context.Background(), cases)
	require.NoError(t, err)
	require.Len(t, results, len(cases))

	for _, res := range results {
		assert.True(t, res.Pass, "%s: %v", res.Name, res.Errors)
	}
}

func TestRunConfigErrorHasNoOutcome(t *testing.T) {
	res := runCase(t, "testdata/cases/unknown_field.yaml")
	assert.True(t, res.Pass)
	assert.Nil(t, res.Outcome)
	assert.Empty(t, res.Digest)
}

func TestRunReportsMismatches(t *testing.T) {
	path := writeCase(t, `
name: wrong
description: "expects the wrong ids"
input:
  node:
    - {id: 1, u_rated: 10500.0}
    - {id: 2, u_rated: 10500.0}
batch:
  node:
    - [{id: 2, u_rated: -1.0}]
    - []
expect:
  scenarios: 3
  failures:
    0:
      - kind: not_greater_than
        fields: [node.u_rated]
        ids: ["node:1"]
        detail: "> 0"
    1:
      - kind: missing_value
        fields: [node.u_rated]
        ids: ["node:1"]
assertions:
  - type: clean
    scenarios: [0, 5]
  - type: contains
    scenario: 0
    kind: not_greater_than
    ids: ["node:1"]
  - type: count
    count: 4
  - type: digest
    digest: "0000"
`)
	res := runCase(t, path)

	assert.False(t, res.Pass)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, 2, res.Outcome.Len())

	joined := ""
	for _, e := range res.Errors {
		joined += e + "\n"
	}
	assert.Contains(t, joined, "expected 3 scenarios, got 2")
	assert.Contains(t, joined, "scenario 0:")
	assert.Contains(t, joined, "scenario 1:")
	assert.Contains(t, joined, "Assertion failed: clean")
	assert.Contains(t, joined, "5 (out of range)")
	assert.Contains(t, joined, "Assertion failed: contains")
	assert.Contains(t, joined, "Assertion failed: count")
	assert.Contains(t, joined, "Assertion failed: digest")
}

func TestRunUnexpectedConfigError(t *testing.T) {
	path := writeCase(t, `
name: surprise
description: "a config error nobody expected"
input:
  transformer:
    - {id: 1}
  shunt:
    - {id: 2, node: 1, status: 1, g1: 0.0, b1: 0.0, colour: 3}
expect:
  failures: {}
`)
	res := runCase(t, path)
	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "unexpected configuration error")
}

func TestRunExpectedErrorButValid(t *testing.T) {
	path := writeCase(t, `
name: too_clean
description: "expects an error that never happens"
input:
  node:
    - {id: 1, u_rated: 10500.0}
error: unknown field
`)
	res := runCase(t, path)
	assert.False(t, res.Pass)
	assert.Contains(t, res.Errors[0], "validation succeeded")
}

func TestRunMalformedInput(t *testing.T) {
	path := writeCase(t, `
name: malformed
description: "input rows must be mappings"
input:
  node: [1, 2]
error: anything
`)
	c, err := LoadCase(path)
	require.NoError(t, err)
	_, err = Run(context.Background(), c)
	assert.ErrorContains(t, err, "case malformed: input")
}

func TestRunMissingCatalog(t *testing.T) {
	path := writeCase(t, `
name: lost
description: "catalog directory does not exist"
catalog: nowhere
input:
  node: [{id: 1}]
error: anything
`)
	c, err := LoadCase(path)
	require.NoError(t, err)
	_, err = Run(context.Background(), c)
	assert.ErrorContains(t, err, "case lost")
}
