package schema

import (
	"fmt"
	"slices"
	"strings"
)

// Field declares one named field of a component.
type Field struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Component declares a component type with its ordered fields.
type Component struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// FieldRef addresses one field of one component type.
type FieldRef struct {
	Component string `json:"component"`
	Field     string `json:"field"`
}

// String renders the reference as "component.field".
func (r FieldRef) String() string {
	return r.Component + "." + r.Field
}

// ParseFieldRef parses "component.field".
func ParseFieldRef(s string) (FieldRef, error) {
	component, field, ok := strings.Cut(s, ".")
	if !ok || component == "" || field == "" || strings.Contains(field, ".") {
		return FieldRef{}, Errorf(ErrInvalidRule, "", "", "field reference %q is not component.field", s)
	}
	return FieldRef{Component: component, Field: field}, nil
}

// CompareFieldRefs orders references by component, then field.
func CompareFieldRefs(a, b FieldRef) int {
	if a.Component != b.Component {
		if a.Component < b.Component {
			return -1
		}
		return 1
	}
	switch {
	case a.Field < b.Field:
		return -1
	case a.Field > b.Field:
		return 1
	}
	return 0
}

type componentEntry struct {
	fields  []Field
	byName  map[string]Kind
	idField string
}

// Registry holds the declared component types.
// It is read-only after NewRegistry returns.
type Registry struct {
	components map[string]*componentEntry
	names      []string
}

// NewRegistry validates the declarations and builds a registry.
//
// Every component must have a unique name, unique field names, valid
// semantics and exactly one identifier field.
func NewRegistry(components ...Component) (*Registry, error) {
	reg := &Registry{components: make(map[string]*componentEntry, len(components))}

	for _, c := range components {
		if c.Name == "" {
			return nil, &ConfigError{Message: "component name is empty", Err: ErrUnknownComponent}
		}
		if _, exists := reg.components[c.Name]; exists {
			return nil, Errorf(ErrDuplicate, c.Name, "", "component declared twice")
		}

		entry := &componentEntry{
			fields: slices.Clone(c.Fields),
			byName: make(map[string]Kind, len(c.Fields)),
		}
		for _, f := range c.Fields {
			if !ValidKinds[f.Kind] {
				return nil, Errorf(ErrUnknownKind, c.Name, f.Name, "semantics %q", f.Kind)
			}
			if _, exists := entry.byName[f.Name]; exists {
				return nil, Errorf(ErrDuplicate, c.Name, f.Name, "field declared twice")
			}
			entry.byName[f.Name] = f.Kind

			if f.Kind == Identifier {
				if entry.idField != "" {
					return nil, Errorf(ErrIdentifier, c.Name, f.Name,
						"second identifier field (already %q)", entry.idField)
				}
				entry.idField = f.Name
			}
		}
		if entry.idField == "" {
			return nil, Errorf(ErrIdentifier, c.Name, "", "component has no identifier field")
		}

		reg.components[c.Name] = entry
		reg.names = append(reg.names, c.Name)
	}

	slices.Sort(reg.names)
	return reg, nil
}

// MustRegistry is like NewRegistry but panics on error.
// Intended for package-level fixtures and tests.
func MustRegistry(components ...Component) *Registry {
	reg, err := NewRegistry(components...)
	if err != nil {
		panic(err)
	}
	return reg
}

// Components returns the component names in sorted order.
func (r *Registry) Components() []string {
	return slices.Clone(r.names)
}

// Has reports whether the component type is declared.
func (r *Registry) Has(component string) bool {
	_, ok := r.components[component]
	return ok
}

// FieldsOf returns the ordered fields of a component.
func (r *Registry) FieldsOf(component string) ([]Field, error) {
	entry, err := r.lookup(component)
	if err != nil {
		return nil, err
	}
	return slices.Clone(entry.fields), nil
}

// IdentifierField returns the name of the component's identifier field.
func (r *Registry) IdentifierField(component string) (string, error) {
	entry, err := r.lookup(component)
	if err != nil {
		return "", err
	}
	return entry.idField, nil
}

// Field returns the semantics of one field.
func (r *Registry) Field(component, field string) (Kind, error) {
	entry, err := r.lookup(component)
	if err != nil {
		return "", err
	}
	kind, ok := entry.byName[field]
	if !ok {
		return "", Errorf(ErrUnknownField, component, field, "field is not declared")
	}
	return kind, nil
}

// Resolve checks that a reference names a declared field and returns its semantics.
func (r *Registry) Resolve(ref FieldRef) (Kind, error) {
	return r.Field(ref.Component, ref.Field)
}

func (r *Registry) lookup(component string) (*componentEntry, error) {
	entry, ok := r.components[component]
	if !ok {
		return nil, &ConfigError{
			Component: component,
			Message:   fmt.Sprintf("component %q is not declared", component),
			Err:       ErrUnknownComponent,
		}
	}
	return entry, nil
}
