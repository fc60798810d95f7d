package dataset

import (
	"github.com/roach88/gridval/internal/schema"
)

// Index is the base input plus its identifier→position maps.
//
// An Index is built once per validation call, before any scenario is
// merged, and is never mutated afterward. It implements View over the
// unmodified base input.
type Index struct {
	reg        *schema.Registry
	data       Dataset
	components []string
	idFields   map[string]string
	positions  map[string]map[int64]int
}

// NewIndex conforms the input to the registry and indexes its identifiers.
//
// When an identifier repeats within one component the first position wins;
// the repetition itself is a content violation reported by rules.
func NewIndex(reg *schema.Registry, input Dataset) (*Index, error) {
	if err := input.Conform(reg); err != nil {
		return nil, err
	}

	idx := &Index{
		reg:        reg,
		data:       input,
		components: input.Components(),
		idFields:   make(map[string]string, len(input)),
		positions:  make(map[string]map[int64]int, len(input)),
	}

	for _, component := range idx.components {
		idField, err := reg.IdentifierField(component)
		if err != nil {
			return nil, err
		}
		rows := input[component]
		pos := make(map[int64]int, len(rows))
		for i, row := range rows {
			id, _ := AsInt(row[idField])
			if _, seen := pos[id]; !seen {
				pos[id] = i
			}
		}
		idx.idFields[component] = idField
		idx.positions[component] = pos
	}

	return idx, nil
}

// Registry returns the registry the index was built against.
func (x *Index) Registry() *schema.Registry {
	return x.reg
}

// Position returns the base position of an identifier within a component.
func (x *Index) Position(component string, id int64) (int, bool) {
	pos, ok := x.positions[component][id]
	return pos, ok
}

// Components implements View.
func (x *Index) Components() []string {
	out := make([]string, len(x.components))
	copy(out, x.components)
	return out
}

// Len implements View.
func (x *Index) Len(component string) int {
	return len(x.data[component])
}

// Record implements View.
func (x *Index) Record(component string, i int) Record {
	return record{row: x.data[component][i], idField: x.idFields[component]}
}
