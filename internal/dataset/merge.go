package dataset

import (
	"slices"

	"github.com/roach88/gridval/internal/schema"
)

// Unresolved lists the identifiers of one component that a scenario updates
// but that do not exist in the base input. IDs keep update order.
type Unresolved struct {
	Component string
	IDField   string
	IDs       []int64
}

// Overlay is the merged view of one scenario: the base input with the
// scenario's partial rows applied. Fields are resolved on read; neither the
// base input nor the update rows are modified.
type Overlay struct {
	base    *Index
	patches map[string]map[int]Row
	touched map[schema.FieldRef]bool
}

// Merge overlays one scenario's update on the base input.
//
// Partial rows are matched to base records by identifier. A field holding an
// unset value (NaN) is not an override: the base value shows through and the
// field is not reported as touched. Identifiers with no base record are returned as Unresolved and their rows are not applied.
// When every partial row of a component omits the identifier and the row
// count equals the base record count, rows are matched by position instead.
// Any other omission is a ConfigError.
func (x *Index) Merge(update Update) (*Overlay, []Unresolved, error) {
	ov := &Overlay{
		base:    x,
		patches: make(map[string]map[int]Row, len(update)),
		touched: make(map[schema.FieldRef]bool),
	}
	var unresolved []Unresolved

	components := make([]string, 0, len(update))
	for c := range update {
		components = append(components, c)
	}
	slices.Sort(components)

	for _, component := range components {
		rows := update[component]
		if len(rows) == 0 {
			continue
		}
		idField, err := x.reg.IdentifierField(component)
		if err != nil {
			return nil, nil, err
		}

		positional, err := x.positional(component, idField, rows)
		if err != nil {
			return nil, nil, err
		}

		var missing []int64
		seen := make(map[int64]bool)
		for i, row := range rows {
			pos := i
			if !positional {
				id, _ := AsInt(row[idField])
				var ok bool
				if pos, ok = x.Position(component, id); !ok {
					if !seen[id] {
						seen[id] = true
						missing = append(missing, id)
					}
					continue
				}
			}
			ov.apply(component, idField, pos, row)
		}

		if len(missing) > 0 {
			unresolved = append(unresolved, Unresolved{
				Component: component,
				IDField:   idField,
				IDs:       missing,
			})
		}
	}

	return ov, unresolved, nil
}

// positional decides whether a component's partial rows are matched by
// position (no row carries an identifier) or by identifier (all do).
func (x *Index) positional(component, idField string, rows []Row) (bool, error) {
	withID := 0
	for _, row := range rows {
		if _, ok := AsInt(row[idField]); ok {
			withID++
		}
	}

	switch withID {
	case len(rows):
		return false, nil
	case 0:
		if n := x.Len(component); n != len(rows) {
			return false, schema.Errorf(schema.ErrMissingID, component, idField,
				"update omits identifiers but has %d records for %d input records", len(rows), n)
		}
		return true, nil
	default:
		return false, schema.Errorf(schema.ErrMissingID, component, idField,
			"%d of %d update records omit the identifier", len(rows)-withID, len(rows))
	}
}

// apply records a partial row against a base position. Unset values (NaN)
// leave the base value in place and do not count as overrides. A second row
// for the same position folds into the patch built by the first, so input
// and update rows stay untouched.
func (ov *Overlay) apply(component, idField string, pos int, row Row) {
	set := make(Row, len(row))
	for field, v := range row {
		if field != idField && IsSet(v) {
			set[field] = v
		}
	}
	if len(set) == 0 {
		return
	}

	byPos := ov.patches[component]
	if byPos == nil {
		byPos = make(map[int]Row)
		ov.patches[component] = byPos
	}
	if prev, ok := byPos[pos]; ok {
		for field, v := range set {
			prev[field] = v
		}
	} else {
		byPos[pos] = set
	}

	for field := range set {
		ov.touched[schema.FieldRef{Component: component, Field: field}] = true
	}
}

// Touched returns the (component, field) pairs this scenario overrides, sorted.
func (ov *Overlay) Touched() []schema.FieldRef {
	refs := make([]schema.FieldRef, 0, len(ov.touched))
	for ref := range ov.touched {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, schema.CompareFieldRefs)
	return refs
}

// Touches reports whether the scenario overrides the given field.
func (ov *Overlay) Touches(ref schema.FieldRef) bool {
	return ov.touched[ref]
}

// Components implements View.
func (ov *Overlay) Components() []string {
	return ov.base.Components()
}

// Len implements View.
func (ov *Overlay) Len(component string) int {
	return ov.base.Len(component)
}

// Record implements View.
func (ov *Overlay) Record(component string, i int) Record {
	idField := ov.base.idFields[component]
	baseRow := ov.base.data[component][i]
	if patch, ok := ov.patches[component][i]; ok {
		return patched{base: baseRow, patch: patch, idField: idField}
	}
	return record{row: baseRow, idField: idField}
}
