package schema

import "fmt"

// Kind is the semantic type of a field.
type Kind string

const (
	Identifier  Kind = "identifier"
	BooleanFlag Kind = "boolean_flag"
	Numeric     Kind = "numeric"
	Reference   Kind = "reference"
)

// ValidKinds defines all recognized field semantics.
var ValidKinds = map[Kind]bool{
	Identifier:  true,
	BooleanFlag: true,
	Numeric:     true,
	Reference:   true,
}

// ParseKind converts a semantics string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !ValidKinds[k] {
		return "", &ConfigError{
			Message: fmt.Sprintf("%q is not one of identifier, boolean_flag, numeric, reference", s),
			Err:     ErrUnknownKind,
		}
	}
	return k, nil
}

// Integral reports whether values of this kind must be integers.
func (k Kind) Integral() bool {
	return k != Numeric
}
