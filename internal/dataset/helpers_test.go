package dataset

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/gridval/internal/schema"
)

func testRegistry() *schema.Registry {
	return schema.MustRegistry(
		schema.Component{Name: "node", Fields: []schema.Field{
			{Name: "id", Kind: schema.Identifier},
			{Name: "u_rated", Kind: schema.Numeric},
		}},
		schema.Component{Name: "line", Fields: []schema.Field{
			{Name: "id", Kind: schema.Identifier},
			{Name: "from_node", Kind: schema.Reference},
			{Name: "to_node", Kind: schema.Reference},
			{Name: "from_status", Kind: schema.BooleanFlag},
			{Name: "r1", Kind: schema.Numeric},
		}},
	)
}

func testInput() Dataset {
	return Dataset{
		"node": {
			NewRow(F("id", Int(1)), F("u_rated", Float(10.5e3))),
			NewRow(F("id", Int(2)), F("u_rated", Float(10.5e3))),
		},
		"line": {
			NewRow(F("id", Int(5)), F("from_node", Int(1)), F("to_node", Int(2)), F("from_status", Int(0)), F("r1", Float(1))),
			NewRow(F("id", Int(6)), F("from_node", Int(2)), F("to_node", Int(1)), F("from_status", Int(0)), F("r1", Float(1))),
			NewRow(F("id", Int(7)), F("from_node", Int(1)), F("to_node", Int(2)), F("from_status", Int(0)), F("r1", Float(1))),
		},
	}
}

func buildIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(testRegistry(), testInput())
	require.NoError(t, err)
	return idx
}

func fieldOf(t *testing.T, v View, component string, i int, field string) Value {
	t.Helper()
	val, ok := v.Record(component, i).Field(field)
	require.True(t, ok, "%s[%d].%s missing", component, i, field)
	return val
}
