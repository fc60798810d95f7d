package report

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridval/internal/schema"
	"github.com/roach88/gridval/internal/validation"
)

var fromStatus = schema.FieldRef{Component: "line", Field: "from_status"}

func notBoolean(ids ...int64) validation.Violation {
	refs := make([]validation.IDRef, len(ids))
	for i, id := range ids {
		refs[i] = validation.IDRef{Component: "line", ID: id}
	}
	return validation.Violation{
		Kind:   validation.KindNotBoolean,
		Fields: []schema.FieldRef{fromStatus},
		IDs:    refs,
	}
}

func updateErrors() *validation.Result {
	return &validation.Result{Scenarios: [][]validation.Violation{
		{notBoolean(5, 6)},
		{notBoolean(7)},
		{notBoolean(5, 7)},
	}}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestEncodeGolden(t *testing.T) {
	data, err := Encode(updateErrors())
	require.NoError(t, err)
	newGoldie(t).Assert(t, "update_errors", data)
}

func TestEncodeSparseGolden(t *testing.T) {
	data, err := EncodeSparse(updateErrors())
	require.NoError(t, err)
	newGoldie(t).Assert(t, "update_errors_sparse", data)
}

func TestEncodeInputErrorsGolden(t *testing.T) {
	v := validation.Violation{
		Kind: validation.KindMultiComponentNotUnique,
		Fields: []schema.FieldRef{
			{Component: "line", Field: "id"},
			{Component: "node", Field: "id"},
		},
		IDs: []validation.IDRef{{Component: "line", ID: 123}, {Component: "node", ID: 123}},
	}
	res := &validation.Result{Scenarios: [][]validation.Violation{{v}, {v}, {v}}}

	data, err := Encode(res)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "input_errors", data)
}

func TestDecodeRoundTrip(t *testing.T) {
	res := updateErrors()
	res.Scenarios = append(res.Scenarios, []validation.Violation{}, []validation.Violation{{
		Kind:   validation.KindNotGreaterThan,
		Fields: []schema.FieldRef{{Component: "node", Field: "u_rated"}},
		IDs:    []validation.IDRef{{Component: "node", ID: 1}},
		Detail: "> 0",
	}})

	data, err := Encode(res)
	require.NoError(t, err)
	back, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, res, back)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte(`{"scenarios":`))
	assert.ErrorContains(t, err, "decode result")
}

func TestDigest(t *testing.T) {
	digest, err := Digest(updateErrors())
	require.NoError(t, err)
	assert.Equal(t, "7b50ec4492290568478b883ffee11191af13fadf5e6f6bfe7a8cd18b9cf450d6", digest)

	empty, err := Digest(&validation.Result{Scenarios: [][]validation.Violation{}})
	require.NoError(t, err)
	assert.Equal(t, "73a4d6580b093385841ba832e2b67293887d3280d2188c0172b599c3c372fc2c", empty)
}

func TestDigestIgnoresNilVersusEmptySlots(t *testing.T) {
	a := &validation.Result{Scenarios: [][]validation.Violation{nil, {notBoolean(5)}}}
	b := &validation.Result{Scenarios: [][]validation.Violation{{}, {notBoolean(5)}}}

	da, err := Digest(a)
	require.NoError(t, err)
	db, err := Digest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestSummarize(t *testing.T) {
	sum, err := Summarize(updateErrors())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Scenarios)
	assert.Equal(t, []int{0, 1, 2}, sum.Failed)
	assert.Equal(t, 3, sum.Violations)
	assert.Len(t, sum.Digest, 64)

	clean, err := Summarize(&validation.Result{Scenarios: [][]validation.Violation{{}, {}}})
	require.NoError(t, err)
	assert.Equal(t, []int{}, clean.Failed)
	assert.Zero(t, clean.Violations)
}
