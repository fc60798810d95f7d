package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var harnessCases = filepath.Join("..", "harness", "testdata", "cases")

const failingCase = `
name: wrong_expectation
description: "Expects a clean result from an input with a non-boolean flag"
input:
  line:
    - {id: 5, from_node: 1, to_node: 2, from_status: 3, to_status: 0}
expect:
  failures: {}
`

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentCasesDir(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/cases")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "cases directory not found")
}

func TestTestCommandEmptyCasesDir(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no case files found")
}

func TestTestCommandHarnessCases(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), harnessCases)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ update_errors")
	assert.Contains(t, out, "✓ unknown_field")
	assert.Contains(t, out, "Test Summary: 5 passed, 0 failed, 5 total")
	assert.Contains(t, out, "✓ All cases passed")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), harnessCases, "--filter", "update_*")
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, float64(1), data["total"])
	cases := data["cases"].([]any)
	require.Len(t, cases, 1)
	c := cases[0].(map[string]any)
	assert.Equal(t, "update_errors", c["name"])
	assert.Equal(t, "7b50ec4492290568478b883ffee11191af13fadf5e6f6bfe7a8cd18b9cf450d6", c["digest"])
}

func TestTestCommandFilterNoMatch(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), harnessCases, "--filter", "nothing_*")
	require.NoError(t, err)
	assert.Contains(t, out, "No cases found.")
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), harnessCases, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFailingCase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong.yaml", failingCase)

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_expectation")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandFailingCaseJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong.yaml", failingCase)

	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, float64(1), data["failed"])
	c := data["cases"].([]any)[0].(map[string]any)
	assert.Equal(t, false, c["pass"])
	assert.NotEmpty(t, c["errors"])
}
