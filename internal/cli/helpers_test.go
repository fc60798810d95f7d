package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const gridInputYAML = `
node:
  - {id: 1, u_rated: 10500.0}
  - {id: 2, u_rated: 10500.0}
line:
  - {id: 5, from_node: 1, to_node: 2, from_status: 0, to_status: 0}
  - {id: 6, from_node: 2, to_node: 1, from_status: 0, to_status: 0}
`

// Scenario 0 is clean, scenario 1 sets a non-boolean flag, scenario 2
// updates a line the input does not have.
const gridBatchYAML = `
line:
  - [{id: 5, from_status: 1}]
  - [{id: 6, from_status: 7}]
  - [{id: 9, from_status: 1}]
`

const cleanBatchYAML = `
line:
  - [{id: 5, from_status: 1}]
  - [{id: 6, to_status: 1}]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout and the command error.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func decodeResponse(t *testing.T, out string) (CLIResponse, map[string]any) {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	data, _ := resp.Data.(map[string]any)
	return resp, data
}
