package dataset

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/gridval/internal/schema"
)

// Dataset maps a component type name to its records in insertion order.
type Dataset map[string][]Row

// Components returns the component names present in the dataset, sorted.
func (d Dataset) Components() []string {
	return slices.Sorted(maps.Keys(d))
}

// Conform checks the dataset against the registry: every component and
// field must be declared, values must match field semantics, and every row
// must carry its identifier.
func (d Dataset) Conform(reg *schema.Registry) error {
	for _, component := range d.Components() {
		idField, err := reg.IdentifierField(component)
		if err != nil {
			return err
		}
		for i, row := range d[component] {
			if _, ok := row[idField]; !ok {
				return schema.Errorf(schema.ErrMissingID, component, idField, "input record %d has no identifier", i)
			}
			if err := conformRow(reg, component, row); err != nil {
				return fmt.Errorf("input record %d: %w", i, err)
			}
		}
	}
	return nil
}

// conformRow checks every field of a row against the registry.
func conformRow(reg *schema.Registry, component string, row Row) error {
	for _, field := range row.SortedFields() {
		kind, err := reg.Field(component, field)
		if err != nil {
			return err
		}
		if err := conformValue(kind, row[field]); err != nil {
			return schema.Errorf(schema.ErrKindMismatch, component, field, "%v", err)
		}
	}
	return nil
}

// conformValue checks a value's representation against field semantics.
// Range checks (such as 0/1 for flags) are rules, not conformance.
func conformValue(kind schema.Kind, v Value) error {
	switch v.(type) {
	case Int:
		return nil
	case Float:
		if kind.Integral() {
			return fmt.Errorf("%s field holds non-integer value %s", kind, v)
		}
		return nil
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
}
