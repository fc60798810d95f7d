package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"update_errors", "input_errors", "sparse_batch"} {
		t.Run(name, func(t *testing.T) {
			c, err := LoadCase("testdata/cases/" + name + ".yaml")
			require.NoError(t, err)

			res, err := RunWithGolden(t, c)
			require.NoError(t, err)
			assert.True(t, res.Pass, "%v", res.Errors)
		})
	}
}

func TestRunWithGoldenConfigError(t *testing.T) {
	c, err := LoadCase("testdata/cases/unknown_field.yaml")
	require.NoError(t, err)

	_, err = RunWithGolden(t, c)
	assert.ErrorContains(t, err, "configuration error")
}
