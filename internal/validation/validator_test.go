package validation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridval/internal/dataset"
	"github.com/roach88/gridval/internal/schema"
	"github.com/roach88/gridval/internal/testutil"
)

var (
	lineID     = schema.FieldRef{Component: "line", Field: "id"}
	nodeID     = schema.FieldRef{Component: "node", Field: "id"}
	fromStatus = schema.FieldRef{Component: "line", Field: "from_status"}
	uRated     = schema.FieldRef{Component: "node", Field: "u_rated"}
)

func gridValidator(t *testing.T, opts ...Option) *Validator {
	t.Helper()
	reg := testutil.GridRegistry()
	v, err := New(reg, DefaultRules(reg), opts...)
	require.NoError(t, err)
	return v
}

func TestValidateBatchInputError(t *testing.T) {
	input := testutil.GridInput()
	input["node"][3]["id"] = dataset.Int(123)
	input["line"][3]["id"] = dataset.Int(123)

	res, err := gridValidator(t).ValidateBatch(context.Background(), input, testutil.GridBatch())
	require.NoError(t, err)

	want := []Violation{{
		Kind:   KindMultiComponentNotUnique,
		Fields: []schema.FieldRef{lineID, nodeID},
		IDs:    []IDRef{{Component: "line", ID: 123}, {Component: "node", ID: 123}},
	}}
	require.Equal(t, 3, res.Len())
	assert.Equal(t, want, res.Scenario(0))
	assert.Equal(t, want, res.Scenario(1))
	assert.Equal(t, want, res.Scenario(2))
	assert.Equal(t, []int{0, 1, 2}, res.Failed())
}

func TestValidateBatchUpdateError(t *testing.T) {
	batch := testutil.FlagBatch([][2]int64{{12, 34}, {0, -128}, {56, 78}})

	res, err := gridValidator(t).ValidateBatch(context.Background(), testutil.GridInput(), batch)
	require.NoError(t, err)

	notBoolean := func(ids ...int64) []Violation {
		refs := make([]IDRef, len(ids))
		for i, id := range ids {
			refs[i] = IDRef{Component: "line", ID: id}
		}
		return []Violation{{Kind: KindNotBoolean, Fields: []schema.FieldRef{fromStatus}, IDs: refs}}
	}

	require.Equal(t, 3, res.Len(), "result is positional: one slot per scenario")
	assert.Equal(t, notBoolean(5, 6), res.Scenario(0))
	assert.Equal(t, notBoolean(7), res.Scenario(1), "0 is a valid flag, -128 is not")
	assert.Equal(t, notBoolean(5, 7), res.Scenario(2), "ids follow base order, not update order")

	sparse := res.Sparse()
	assert.Len(t, sparse, 3)
	assert.Equal(t, notBoolean(5, 7), sparse[2])
}

func TestValidateBatchCleanScenarios(t *testing.T) {
	res, err := gridValidator(t).ValidateBatch(context.Background(), testutil.GridInput(), testutil.GridBatch())
	require.NoError(t, err)

	require.Equal(t, 3, res.Len())
	for i := 0; i < res.Len(); i++ {
		assert.Empty(t, res.Scenario(i))
	}
	assert.True(t, res.Valid())
	assert.Empty(t, res.Sparse())
	assert.Equal(t, 0, res.Count())
}

func TestValidateBatchBaselinePrefixesEverySlot(t *testing.T) {
	input := testutil.GridInput()
	input["node"][3]["id"] = dataset.Int(123)
	input["line"][3]["id"] = dataset.Int(123)
	batch := testutil.FlagBatch([][2]int64{{12, 1}, {1, 1}, {1, 2}})

	v := gridValidator(t)
	baseline := runRules(v.invariant, mustIndex(t, input))
	require.Len(t, baseline, 1)

	res, err := v.ValidateBatch(context.Background(), input, batch)
	require.NoError(t, err)

	for i, slot := range res.Scenarios {
		require.GreaterOrEqual(t, len(slot), len(baseline), "scenario %d", i)
		assert.Equal(t, baseline, slot[:len(baseline)], "scenario %d", i)
	}
	assert.Len(t, res.Scenario(0), 2)
	assert.Len(t, res.Scenario(1), 1)
	assert.Len(t, res.Scenario(2), 2)
}

func TestValidateBatchMergeTransparency(t *testing.T) {
	input := testutil.GridInput()
	input["line"][1]["from_status"] = dataset.Int(3)
	input["node"][0]["u_rated"] = dataset.Float(-1)

	reg := testutil.GridRegistry()
	rules := append(DefaultRules(reg), NewGreaterThan(uRated, 0))
	v, err := New(reg, rules)
	require.NoError(t, err)

	batch := dataset.Batch{"line": {{}, {}}}
	res, err := v.ValidateBatch(context.Background(), input, batch)
	require.NoError(t, err)

	onBase := runRules(v.dependent, mustIndex(t, input))
	require.Len(t, onBase, 2)
	assert.Equal(t, onBase, res.Scenario(0))
	assert.Equal(t, onBase, res.Scenario(1))
}

func TestValidateBatchBaseViolationSurvivesUnrelatedUpdate(t *testing.T) {
	input := testutil.GridInput()
	input["line"][3]["from_status"] = dataset.Int(9)

	res, err := gridValidator(t).ValidateBatch(context.Background(), input, testutil.GridBatch())
	require.NoError(t, err)

	for i := 0; i < res.Len(); i++ {
		require.Len(t, res.Scenario(i), 1)
		assert.Equal(t, []IDRef{{Component: "line", ID: 8}}, res.Scenario(i)[0].IDs)
	}
}

func TestValidateBatchUpdateRepairsBaseViolation(t *testing.T) {
	input := testutil.GridInput()
	input["line"][0]["from_status"] = dataset.Int(9)

	res, err := gridValidator(t).ValidateBatch(context.Background(), input, testutil.GridBatch())
	require.NoError(t, err)

	assert.Empty(t, res.Scenario(0), "scenario 0 sets line 5 to 1")
	require.Len(t, res.Scenario(1), 1)
	assert.Equal(t, []IDRef{{Component: "line", ID: 5}}, res.Scenario(1)[0].IDs)
	assert.Empty(t, res.Scenario(2), "scenario 2 sets line 5 to 1")
}

func TestValidateBatchUnresolvedUpdate(t *testing.T) {
	batch := dataset.Batch{
		"line": {
			{dataset.NewRow(dataset.F("id", dataset.Int(99)), dataset.F("from_status", dataset.Int(7)))},
			{dataset.NewRow(dataset.F("id", dataset.Int(5)), dataset.F("from_status", dataset.Int(7)))},
		},
	}

	res, err := gridValidator(t).ValidateBatch(context.Background(), testutil.GridInput(), batch)
	require.NoError(t, err)

	assert.Equal(t, []Violation{{
		Kind:   KindIDNotInDataset,
		Fields: []schema.FieldRef{lineID},
		IDs:    []IDRef{{Component: "line", ID: 99}},
	}}, res.Scenario(0), "the unresolved row is not applied, so no flag violation")

	assert.Equal(t, []Violation{{
		Kind:   KindNotBoolean,
		Fields: []schema.FieldRef{fromStatus},
		IDs:    []IDRef{{Component: "line", ID: 5}},
	}}, res.Scenario(1))
}

func TestValidateBatchReferentialBeforeRules(t *testing.T) {
	batch := dataset.Batch{
		"line": {{
			dataset.NewRow(dataset.F("id", dataset.Int(5)), dataset.F("from_status", dataset.Int(7))),
			dataset.NewRow(dataset.F("id", dataset.Int(50)), dataset.F("from_status", dataset.Int(1))),
		}},
	}

	res, err := gridValidator(t).ValidateBatch(context.Background(), testutil.GridInput(), batch)
	require.NoError(t, err)

	slot := res.Scenario(0)
	require.Len(t, slot, 2)
	assert.Equal(t, KindIDNotInDataset, slot[0].Kind)
	assert.Equal(t, KindNotBoolean, slot[1].Kind)
}

func TestValidateBatchDeterministicAcrossWorkers(t *testing.T) {
	const scenarios = 200
	input := testutil.GridInput()
	input["node"][2]["id"] = dataset.Int(7)

	batch := dataset.Batch{"line": make([][]dataset.Row, scenarios)}
	for i := range scenarios {
		batch["line"][i] = []dataset.Row{
			dataset.NewRow(dataset.F("id", dataset.Int(5+i%4)), dataset.F("from_status", dataset.Int(i%3))),
			dataset.NewRow(dataset.F("id", dataset.Int(100+i%5)), dataset.F("r1", dataset.Float(1))),
		}
	}

	serial, err := gridValidator(t, WithWorkers(1)).ValidateBatch(context.Background(), input, batch)
	require.NoError(t, err)

	for _, workers := range []int{2, 8, 64} {
		parallel, err := gridValidator(t, WithWorkers(workers)).ValidateBatch(context.Background(), input, batch)
		require.NoError(t, err)
		assert.True(t, serial.Equal(parallel), "workers=%d", workers)
		assert.Equal(t, serial, parallel, "workers=%d", workers)
	}

	for i, slot := range serial.Scenarios {
		require.NotEmpty(t, slot, "scenario %d", i)
		assert.Equal(t, KindMultiComponentNotUnique, slot[0].Kind)
	}
}

// countingRule wraps a rule and counts Check calls.
type countingRule struct {
	Rule
	calls atomic.Int64
}

func (r *countingRule) Check(v dataset.View) []Violation {
	r.calls.Add(1)
	return r.Rule.Check(v)
}

func TestValidateBatchReusesUntouchedRules(t *testing.T) {
	reg := testutil.GridRegistry()
	flags := &countingRule{Rule: NewBoolean(fromStatus)}
	voltage := &countingRule{Rule: NewGreaterThan(uRated, 0)}

	v, err := New(reg, []Rule{flags, voltage})
	require.NoError(t, err)

	res, err := v.ValidateBatch(context.Background(), testutil.GridInput(), testutil.GridBatch())
	require.NoError(t, err)
	assert.True(t, res.Valid())

	assert.Equal(t, int64(1+3), flags.calls.Load(), "base pass plus every scenario touching from_status")
	assert.Equal(t, int64(1), voltage.calls.Load(), "u_rated is never updated: base pass only")
}

func TestValidateBatchIgnoresUnsetUpdateValues(t *testing.T) {
	reg := testutil.GridRegistry()
	required := &countingRule{Rule: NewRequired(uRated)}

	v, err := New(reg, []Rule{required})
	require.NoError(t, err)

	batch := dataset.Batch{
		"node": {
			{dataset.NewRow(dataset.F("id", dataset.Int(1)), dataset.F("u_rated", dataset.NaN()))},
			{},
		},
	}
	res, err := v.ValidateBatch(context.Background(), testutil.GridInput(), batch)
	require.NoError(t, err)

	assert.True(t, res.Valid(), "NaN in an update leaves the base value in place")
	assert.Equal(t, int64(1), required.calls.Load(), "an unset update does not touch u_rated")
}

func TestValidateBatchSlotsShareNothing(t *testing.T) {
	input := testutil.GridInput()
	input["node"][3]["id"] = dataset.Int(5)
	input["line"][3]["to_status"] = dataset.Int(9)

	res, err := gridValidator(t).ValidateBatch(context.Background(), input, testutil.GridBatch())
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.Len(), 2)
	require.Len(t, res.Scenario(0), 2)
	require.Len(t, res.Scenario(1), 2)

	want := res.Scenario(1)[0].IDs[0]
	res.Scenario(0)[0].IDs[0] = IDRef{Component: "edited", ID: -1}
	res.Scenario(0)[1].Fields[0] = schema.FieldRef{Component: "edited", Field: "edited"}

	assert.Equal(t, want, res.Scenario(1)[0].IDs[0], "baseline violations are copied per slot")
	assert.Equal(t, schema.FieldRef{Component: "line", Field: "to_status"}, res.Scenario(1)[1].Fields[0], "reused rule outcomes are copied per slot")
}

func TestValidateDuplicateRuleReportsOnce(t *testing.T) {
	input := testutil.GridInput()
	input["node"][3]["id"] = dataset.Int(5)
	input["node"][0]["u_rated"] = dataset.Float(-1)

	reg := testutil.GridRegistry()
	unique := NewMultiComponentUnique(lineID, nodeID)
	positive := NewGreaterThan(uRated, 0)
	v, err := New(reg, []Rule{unique, positive, unique, positive})
	require.NoError(t, err)

	vs, err := v.ValidateInput(input)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, KindMultiComponentNotUnique, vs[0].Kind)
	assert.Equal(t, KindNotGreaterThan, vs[1].Kind)

	res, err := v.ValidateBatch(context.Background(), input, dataset.Batch{"node": {{}, {}}})
	require.NoError(t, err)
	for i := 0; i < res.Len(); i++ {
		assert.Equal(t, vs, res.Scenario(i), "scenario %d", i)
	}
}

func TestValidateBatchConfigErrors(t *testing.T) {
	v := gridValidator(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input dataset.Dataset
		batch dataset.Batch
		want  error
	}{
		{
			name:  "unknown input component",
			input: dataset.Dataset{"transformer": {dataset.NewRow(dataset.F("id", dataset.Int(1)))}},
			batch: testutil.GridBatch(),
			want:  schema.ErrUnknownComponent,
		},
		{
			name:  "unknown batch field",
			input: testutil.GridInput(),
			batch: dataset.Batch{"line": {{dataset.NewRow(dataset.F("id", dataset.Int(5)), dataset.F("tap_pos", dataset.Int(1)))}}},
			want:  schema.ErrUnknownField,
		},
		{
			name:  "scenario count mismatch",
			input: testutil.GridInput(),
			batch: dataset.Batch{"line": {{}, {}}, "node": {{}}},
			want:  schema.ErrScenarioCount,
		},
		{
			name:  "ambiguous missing identifiers",
			input: testutil.GridInput(),
			batch: dataset.Batch{"line": {{dataset.NewRow(dataset.F("from_status", dataset.Int(1)))}}},
			want:  schema.ErrMissingID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.ValidateBatch(ctx, tt.input, tt.batch)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var cfgErr *schema.ConfigError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestValidateBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gridValidator(t).ValidateBatch(ctx, testutil.GridInput(), testutil.GridBatch())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestValidateBatchEmpty(t *testing.T) {
	res, err := gridValidator(t).ValidateBatch(context.Background(), testutil.GridInput(), dataset.Batch{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
	assert.True(t, res.Valid())
}

func TestValidateInput(t *testing.T) {
	input := testutil.GridInput()
	input["node"][3]["id"] = dataset.Int(5)
	input["line"][2]["to_status"] = dataset.Int(2)

	vs, err := gridValidator(t).ValidateInput(input)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, KindMultiComponentNotUnique, vs[0].Kind, "invariant rules come first")
	assert.Equal(t, []IDRef{{Component: "line", ID: 5}, {Component: "node", ID: 5}}, vs[0].IDs)
	assert.Equal(t, KindNotBoolean, vs[1].Kind)
	assert.Equal(t, []IDRef{{Component: "line", ID: 7}}, vs[1].IDs)

	clean, err := gridValidator(t).ValidateInput(testutil.GridInput())
	require.NoError(t, err)
	assert.Empty(t, clean)
}

func TestNewRejectsInvalidRules(t *testing.T) {
	reg := testutil.GridRegistry()

	_, err := New(reg, []Rule{NewBoolean(uRated)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrKindMismatch))

	_, err = New(reg, []Rule{NewRequired(schema.FieldRef{Component: "line", Field: "p_from"})})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrUnknownField))
}

func TestValidatorRulesOrder(t *testing.T) {
	reg := testutil.GridRegistry()
	v, err := New(reg, []Rule{NewBoolean(fromStatus), NewMultiComponentUnique(lineID, nodeID), NewGreaterThan(uRated, 0)})
	require.NoError(t, err)

	names := make([]string, 0, 3)
	for _, r := range v.Rules() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{
		"multi_component_unique(line.id,node.id)",
		"boolean(line.from_status)",
		"greater_than(node.u_rated)",
	}, names)
}

func mustIndex(t *testing.T, input dataset.Dataset) *dataset.Index {
	t.Helper()
	idx, err := dataset.NewIndex(testutil.GridRegistry(), input)
	require.NoError(t, err)
	return idx
}
