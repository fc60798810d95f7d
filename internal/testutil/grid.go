// Package testutil provides shared fixtures for gridval tests.
package testutil

import (
	"github.com/roach88/gridval/internal/dataset"
	"github.com/roach88/gridval/internal/schema"
)

// GridRegistry declares the node/line network used across tests.
func GridRegistry() *schema.Registry {
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
			{Name: "to_status", Kind: schema.BooleanFlag},
			{Name: "r1", Kind: schema.Numeric},
			{Name: "x1", Kind: schema.Numeric},
			{Name: "c1", Kind: schema.Numeric},
			{Name: "tan1", Kind: schema.Numeric},
			{Name: "i_n", Kind: schema.Numeric},
		}},
	)
}

// GridInput returns four nodes (ids 1-4) at 10.5 kV and four open lines
// (ids 5-8). Every call returns a fresh dataset that tests may modify.
func GridInput() dataset.Dataset {
	nodes := make([]dataset.Row, 4)
	for i := range nodes {
		nodes[i] = dataset.NewRow(
			dataset.F("id", dataset.Int(i+1)),
			dataset.F("u_rated", dataset.Float(10.5e3)),
		)
	}

	ends := [][2]int64{{1, 2}, {2, 3}, {3, 1}, {1, 2}}
	lines := make([]dataset.Row, 4)
	for i, e := range ends {
		lines[i] = dataset.NewRow(
			dataset.F("id", dataset.Int(i+5)),
			dataset.F("from_node", dataset.Int(e[0])),
			dataset.F("to_node", dataset.Int(e[1])),
			dataset.F("from_status", dataset.Int(0)),
			dataset.F("to_status", dataset.Int(0)),
			dataset.F("r1", dataset.Float(1)),
			dataset.F("x1", dataset.Float(2)),
			dataset.F("c1", dataset.Float(3)),
			dataset.F("tan1", dataset.Float(4)),
			dataset.F("i_n", dataset.Float(5)),
		)
	}

	return dataset.Dataset{"node": nodes, "line": lines}
}

// GridBatch returns three scenarios that switch two lines on each:
// lines 5,6 then 6,7 then 7,5.
func GridBatch() dataset.Batch {
	return FlagBatch([][2]int64{{1, 1}, {1, 1}, {1, 1}})
}

// FlagBatch is GridBatch with explicit from_status values per scenario.
func FlagBatch(status [][2]int64) dataset.Batch {
	ids := [][2]int64{{5, 6}, {6, 7}, {7, 5}}
	scenarios := make([][]dataset.Row, len(ids))
	for s := range ids {
		scenarios[s] = []dataset.Row{
			dataset.NewRow(dataset.F("id", dataset.Int(ids[s][0])), dataset.F("from_status", dataset.Int(status[s][0]))),
			dataset.NewRow(dataset.F("id", dataset.Int(ids[s][1])), dataset.F("from_status", dataset.Int(status[s][1]))),
		}
	}
	return dataset.Batch{"line": scenarios}
}
