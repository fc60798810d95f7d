package dataset

import (
	"maps"
	"slices"
)

// Row is an attribute bag for one component instance: field name to value.
// A base row carries every populated field; a partial row in a batch carries
// the identifier plus only the fields being overridden.
type Row map[string]Value

// Pair is a field/value pair for typed Row construction.
type Pair struct {
	Field string
	Value Value
}

// F is shorthand for Pair.
// Example: NewRow(F("id", Int(5)), F("from_status", Int(1)))
func F(field string, value Value) Pair {
	return Pair{Field: field, Value: value}
}

// NewRow builds a Row from pairs.
func NewRow(pairs ...Pair) Row {
	row := make(Row, len(pairs))
	for _, p := range pairs {
		row[p.Field] = p.Value
	}
	return row
}

// SortedFields returns the row's field names in sorted order.
func (r Row) SortedFields() []string {
	return slices.Sorted(maps.Keys(r))
}

// Clone returns a shallow copy. Values are immutable, so this is a full copy.
func (r Row) Clone() Row {
	return maps.Clone(r)
}
