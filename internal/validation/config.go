package validation

import (
	"fmt"

	"github.com/roach88/gridval/internal/schema"
)

// Rule kinds accepted in rule configuration.
const (
	RuleMultiComponentUnique = "multi_component_unique"
	RuleUnique               = "unique"
	RuleBoolean              = "boolean"
	RuleGreaterThan          = "greater_than"
	RuleGreaterOrEqual       = "greater_or_equal"
	RuleBetween              = "between"
	RuleRequired             = "required"
)

// RuleSpec is the data form of one rule, as read from a catalog.
type RuleSpec struct {
	Kind   string            `json:"kind"`
	Fields []schema.FieldRef `json:"fields"`
	Bound  float64           `json:"bound,omitempty"`
	Low    float64           `json:"low,omitempty"`
	High   float64           `json:"high,omitempty"`
}

// BuildRules turns rule configuration into verified rules, keeping order.
// Unknown kinds, unknown fields and semantic mismatches are ConfigErrors.
func BuildRules(reg *schema.Registry, specs []RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for i, spec := range specs {
		rule, err := buildRule(spec)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, spec.Kind, err)
		}
		if err := rule.Verify(reg); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, spec.Kind, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func buildRule(spec RuleSpec) (Rule, error) {
	if spec.Kind == RuleMultiComponentUnique {
		return NewMultiComponentUnique(spec.Fields...), nil
	}

	if len(spec.Fields) != 1 {
		return nil, schema.Errorf(schema.ErrInvalidRule, "", "",
			"%s takes exactly one field, got %d", spec.Kind, len(spec.Fields))
	}
	ref := spec.Fields[0]

	switch spec.Kind {
	case RuleUnique:
		return NewUnique(ref), nil
	case RuleBoolean:
		return NewBoolean(ref), nil
	case RuleGreaterThan:
		return NewGreaterThan(ref, spec.Bound), nil
	case RuleGreaterOrEqual:
		return NewGreaterOrEqual(ref, spec.Bound), nil
	case RuleBetween:
		return NewBetween(ref, spec.Low, spec.High), nil
	case RuleRequired:
		return NewRequired(ref), nil
	default:
		return nil, schema.Errorf(schema.ErrInvalidRule, "", "", "unknown rule kind %q", spec.Kind)
	}
}

// DefaultRules derives the structural rules every registry implies:
// identifiers unique across all components (within the component when the
// registry declares only one), and every boolean_flag field restricted to
// {0, 1}.
func DefaultRules(reg *schema.Registry) []Rule {
	var (
		unique []Rule
		flags  []Rule
		ids    []schema.FieldRef
	)
	for _, component := range reg.Components() {
		fields, _ := reg.FieldsOf(component)
		for _, f := range fields {
			ref := schema.FieldRef{Component: component, Field: f.Name}
			switch f.Kind {
			case schema.Identifier:
				ids = append(ids, ref)
				unique = append(unique, NewUnique(ref))
			case schema.BooleanFlag:
				flags = append(flags, NewBoolean(ref))
			}
		}
	}

	rules := unique
	if len(ids) > 1 {
		rules = []Rule{NewMultiComponentUnique(ids...)}
	}
	return append(rules, flags...)
}
