package validation

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/gridval/internal/dataset"
	"github.com/roach88/gridval/internal/schema"
)

// Scope says which view a rule runs against.
type Scope int

const (
	// ScenarioInvariant rules run once on the base input.
	ScenarioInvariant Scope = iota
	// ScenarioDependent rules run on every scenario's merged view.
	ScenarioDependent
)

func (s Scope) String() string {
	if s == ScenarioInvariant {
		return "scenario_invariant"
	}
	return "scenario_dependent"
}

// Rule is one independent check.
//
// Check must be a pure function of the view: no rule observes another rule's
// outcome, and the same view always yields the same violations in the same
// order.
type Rule interface {
	Name() string
	Scope() Scope
	// Reads lists the fields Check inspects. A scenario that overrides none
	// of them reuses the rule's outcome on the base input.
	Reads() []schema.FieldRef
	// Verify checks the rule's configuration against a registry.
	Verify(reg *schema.Registry) error
	Check(v dataset.View) []Violation
}

// MultiComponentUnique requires the listed identifier fields to hold values
// that are unique across all listed components together.
type MultiComponentUnique struct {
	Fields []schema.FieldRef
}

// NewMultiComponentUnique builds the rule with its fields in canonical order.
func NewMultiComponentUnique(fields ...schema.FieldRef) *MultiComponentUnique {
	sorted := slices.Clone(fields)
	slices.SortFunc(sorted, schema.CompareFieldRefs)
	return &MultiComponentUnique{Fields: slices.CompactFunc(sorted, func(a, b schema.FieldRef) bool { return a == b })}
}

func (r *MultiComponentUnique) Name() string { return "multi_component_unique" + refList(r.Fields) }
func (r *MultiComponentUnique) Scope() Scope { return ScenarioInvariant }

func (r *MultiComponentUnique) Reads() []schema.FieldRef { return slices.Clone(r.Fields) }

func (r *MultiComponentUnique) Verify(reg *schema.Registry) error {
	if len(r.Fields) < 2 {
		return schema.Errorf(schema.ErrInvalidRule, "", "", "%s needs at least two fields", r.Name())
	}
	return requireKind(reg, r.Fields, schema.Identifier)
}

// Check collects values across every listed field in (component, field)
// order and then record order. Each repeated value yields one violation
// listing every record that holds it; violations follow the value's first
// occurrence.
func (r *MultiComponentUnique) Check(v dataset.View) []Violation {
	holders := make(map[int64][]IDRef)
	var order []int64

	for _, ref := range r.Fields {
		for i := 0; i < v.Len(ref.Component); i++ {
			rec := v.Record(ref.Component, i)
			val, ok := rec.Field(ref.Field)
			if !ok {
				continue
			}
			n, ok := dataset.AsInt(val)
			if !ok {
				continue
			}
			if _, seen := holders[n]; !seen {
				order = append(order, n)
			}
			holders[n] = append(holders[n], IDRef{Component: ref.Component, ID: rec.ID()})
		}
	}

	var out []Violation
	for _, n := range order {
		ids := holders[n]
		if len(ids) < 2 {
			continue
		}
		out = append(out, Violation{
			Kind:   KindMultiComponentNotUnique,
			Fields: slices.Clone(r.Fields),
			IDs:    ids,
		})
	}
	return out
}

// Unique requires identifiers to be unique within one component.
type Unique struct {
	Field schema.FieldRef
}

// NewUnique builds the per-component uniqueness rule for an identifier field.
func NewUnique(ref schema.FieldRef) *Unique {
	return &Unique{Field: ref}
}

func (r *Unique) Name() string             { return "unique(" + r.Field.String() + ")" }
func (r *Unique) Scope() Scope             { return ScenarioInvariant }
func (r *Unique) Reads() []schema.FieldRef { return []schema.FieldRef{r.Field} }

func (r *Unique) Verify(reg *schema.Registry) error {
	return requireKind(reg, []schema.FieldRef{r.Field}, schema.Identifier)
}

// Check reports one violation per component listing every record whose
// identifier repeats, in record order.
func (r *Unique) Check(v dataset.View) []Violation {
	n := v.Len(r.Field.Component)
	counts := make(map[int64]int, n)
	for i := 0; i < n; i++ {
		counts[v.Record(r.Field.Component, i).ID()]++
	}

	var ids []IDRef
	for i := 0; i < n; i++ {
		id := v.Record(r.Field.Component, i).ID()
		if counts[id] > 1 {
			ids = append(ids, IDRef{Component: r.Field.Component, ID: id})
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return []Violation{{
		Kind:   KindNotUnique,
		Fields: []schema.FieldRef{r.Field},
		IDs:    ids,
	}}
}

// fieldRule is the shared shape of scenario-dependent single-field rules:
// scan every record of one component and group offenders.
type fieldRule struct {
	Field schema.FieldRef
}

func (r fieldRule) Scope() Scope             { return ScenarioDependent }
func (r fieldRule) Reads() []schema.FieldRef { return []schema.FieldRef{r.Field} }

// scan returns one grouped violation for every record where bad holds.
func (r fieldRule) scan(v dataset.View, kind Kind, detail string, bad func(val dataset.Value, ok bool) bool) []Violation {
	var ids []IDRef
	for i := 0; i < v.Len(r.Field.Component); i++ {
		rec := v.Record(r.Field.Component, i)
		val, ok := rec.Field(r.Field.Field)
		if bad(val, ok) {
			ids = append(ids, IDRef{Component: r.Field.Component, ID: rec.ID()})
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return []Violation{{
		Kind:   kind,
		Fields: []schema.FieldRef{r.Field},
		IDs:    ids,
		Detail: detail,
	}}
}

// Boolean requires a boolean_flag field to hold 0 or 1.
type Boolean struct {
	fieldRule
}

// NewBoolean builds the flag rule for one field.
func NewBoolean(ref schema.FieldRef) *Boolean {
	return &Boolean{fieldRule{Field: ref}}
}

func (r *Boolean) Name() string { return "boolean(" + r.Field.String() + ")" }

func (r *Boolean) Verify(reg *schema.Registry) error {
	return requireKind(reg, []schema.FieldRef{r.Field}, schema.BooleanFlag)
}

func (r *Boolean) Check(v dataset.View) []Violation {
	return r.scan(v, KindNotBoolean, "", func(val dataset.Value, ok bool) bool {
		if !ok {
			return false
		}
		n, isInt := dataset.AsInt(val)
		return !isInt || (n != 0 && n != 1)
	})
}

// Comparison requires a numeric field to exceed (or reach) a bound.
// Unset values are left to Required.
type Comparison struct {
	fieldRule
	Bound   float64
	OrEqual bool
}

// NewGreaterThan builds a strict lower-bound rule.
func NewGreaterThan(ref schema.FieldRef, bound float64) *Comparison {
	return &Comparison{fieldRule: fieldRule{Field: ref}, Bound: bound}
}

// NewGreaterOrEqual builds an inclusive lower-bound rule.
func NewGreaterOrEqual(ref schema.FieldRef, bound float64) *Comparison {
	return &Comparison{fieldRule: fieldRule{Field: ref}, Bound: bound, OrEqual: true}
}

func (r *Comparison) Name() string {
	if r.OrEqual {
		return "greater_or_equal(" + r.Field.String() + ")"
	}
	return "greater_than(" + r.Field.String() + ")"
}

func (r *Comparison) Verify(reg *schema.Registry) error {
	return requireKind(reg, []schema.FieldRef{r.Field}, schema.Numeric)
}

func (r *Comparison) Check(v dataset.View) []Violation {
	kind, op := KindNotGreaterThan, ">"
	if r.OrEqual {
		kind, op = KindNotGreaterOrEqual, ">="
	}
	return r.scan(v, kind, op+" "+formatBound(r.Bound), func(val dataset.Value, ok bool) bool {
		if !ok || !dataset.IsSet(val) {
			return false
		}
		f, _ := dataset.AsFloat(val)
		if r.OrEqual {
			return f < r.Bound
		}
		return f <= r.Bound
	})
}

// Between requires a numeric field to lie in [Low, High].
// Unset values are left to Required.
type Between struct {
	fieldRule
	Low, High float64
}

// NewBetween builds an inclusive range rule.
func NewBetween(ref schema.FieldRef, low, high float64) *Between {
	return &Between{fieldRule: fieldRule{Field: ref}, Low: low, High: high}
}

func (r *Between) Name() string { return "between(" + r.Field.String() + ")" }

func (r *Between) Verify(reg *schema.Registry) error {
	if r.Low > r.High {
		return schema.Errorf(schema.ErrInvalidRule, r.Field.Component, r.Field.Field,
			"between bounds are inverted (%s > %s)", formatBound(r.Low), formatBound(r.High))
	}
	return requireKind(reg, []schema.FieldRef{r.Field}, schema.Numeric)
}

func (r *Between) Check(v dataset.View) []Violation {
	detail := fmt.Sprintf("between %s and %s", formatBound(r.Low), formatBound(r.High))
	return r.scan(v, KindNotBetween, detail, func(val dataset.Value, ok bool) bool {
		if !ok || !dataset.IsSet(val) {
			return false
		}
		f, _ := dataset.AsFloat(val)
		return f < r.Low || f > r.High
	})
}

// Required requires a field to be present and not NaN.
type Required struct {
	fieldRule
}

// NewRequired builds the presence rule for one field.
func NewRequired(ref schema.FieldRef) *Required {
	return &Required{fieldRule{Field: ref}}
}

func (r *Required) Name() string { return "required(" + r.Field.String() + ")" }

func (r *Required) Verify(reg *schema.Registry) error {
	_, err := reg.Resolve(r.Field)
	return err
}

func (r *Required) Check(v dataset.View) []Violation {
	return r.scan(v, KindMissingValue, "", func(val dataset.Value, ok bool) bool {
		return !ok || !dataset.IsSet(val)
	})
}

// unresolvedViolations converts merge failures into referential violations.
func unresolvedViolations(unresolved []dataset.Unresolved) []Violation {
	out := make([]Violation, 0, len(unresolved))
	for _, u := range unresolved {
		ids := make([]IDRef, len(u.IDs))
		for i, id := range u.IDs {
			ids[i] = IDRef{Component: u.Component, ID: id}
		}
		out = append(out, Violation{
			Kind:   KindIDNotInDataset,
			Fields: []schema.FieldRef{{Component: u.Component, Field: u.IDField}},
			IDs:    ids,
		})
	}
	return out
}

func requireKind(reg *schema.Registry, refs []schema.FieldRef, want schema.Kind) error {
	for _, ref := range refs {
		kind, err := reg.Resolve(ref)
		if err != nil {
			return err
		}
		if kind != want {
			return schema.Errorf(schema.ErrKindMismatch, ref.Component, ref.Field,
				"rule needs a %s field, field is %s", want, kind)
		}
	}
	return nil
}

func refList(refs []schema.FieldRef) string {
	s := "("
	for i, r := range refs {
		if i > 0 {
			s += ","
		}
		s += r.String()
	}
	return s + ")"
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
