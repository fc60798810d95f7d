package validation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/gridval/internal/schema"
)

// Kind tags the constraint a violation breaks.
type Kind string

const (
	KindMultiComponentNotUnique Kind = "multi_component_not_unique"
	KindNotUnique               Kind = "not_unique"
	KindNotBoolean              Kind = "not_boolean"
	KindNotGreaterThan          Kind = "not_greater_than"
	KindNotGreaterOrEqual       Kind = "not_greater_or_equal"
	KindNotBetween              Kind = "not_between"
	KindMissingValue            Kind = "missing_value"
	KindIDNotInDataset          Kind = "id_not_in_dataset"
)

// IDRef addresses one record by component type and identifier.
type IDRef struct {
	Component string `json:"component"`
	ID        int64  `json:"id"`
}

// String renders the reference as "component:id".
func (r IDRef) String() string {
	return r.Component + ":" + strconv.FormatInt(r.ID, 10)
}

// Violation is one broken constraint instance. Records that break the same
// instance (every record sharing a duplicate identifier, every invalid flag
// of one field) are grouped into one Violation.
//
// Violations are plain values: two violations are equal when Kind, Fields,
// IDs and Detail are equal, so results compare directly in tests.
type Violation struct {
	Kind   Kind              `json:"kind"`
	Fields []schema.FieldRef `json:"fields"`
	IDs    []IDRef           `json:"ids"`
	Detail string            `json:"detail,omitempty"`
}

// Error renders a human-readable description.
func (v Violation) Error() string {
	fields := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		fields[i] = f.String()
	}
	ids := make([]string, len(v.IDs))
	for i, id := range v.IDs {
		ids[i] = id.String()
	}

	var what string
	switch v.Kind {
	case KindMultiComponentNotUnique:
		what = "values are not unique across components"
	case KindNotUnique:
		what = "identifiers are not unique"
	case KindNotBoolean:
		what = "values are not boolean (0 or 1)"
	case KindNotGreaterThan, KindNotGreaterOrEqual, KindNotBetween:
		what = "values are out of range"
	case KindMissingValue:
		what = "values are missing"
	case KindIDNotInDataset:
		what = "update identifiers do not exist in the input"
	default:
		what = string(v.Kind)
	}
	if v.Detail != "" {
		what += " (" + v.Detail + ")"
	}

	return fmt.Sprintf("%s: %s: %s", strings.Join(fields, ", "), what, strings.Join(ids, ", "))
}

// Equal reports value equality.
func (v Violation) Equal(o Violation) bool {
	return v.Kind == o.Kind &&
		v.Detail == o.Detail &&
		slices.Equal(v.Fields, o.Fields) &&
		slices.Equal(v.IDs, o.IDs)
}

// Clone returns a copy that shares no slices with v.
func (v Violation) Clone() Violation {
	v.Fields = slices.Clone(v.Fields)
	v.IDs = slices.Clone(v.IDs)
	return v
}

// Key returns a stable identity string, equal for equal violations.
func (v Violation) Key() string {
	var b strings.Builder
	b.WriteString(string(v.Kind))
	b.WriteByte('|')
	for i, f := range v.Fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.String())
	}
	b.WriteByte('|')
	for i, id := range v.IDs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(id.String())
	}
	b.WriteByte('|')
	b.WriteString(v.Detail)
	return b.String()
}

// Dedup drops repeated violations, keeping the first occurrence.
func Dedup(vs []Violation) []Violation {
	seen := make(map[string]bool, len(vs))
	out := make([]Violation, 0, len(vs))
	for _, v := range vs {
		k := v.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}
