package dataset

import (
	"math"
	"strconv"
)

// Value is a sealed interface over field values.
// Only Int and Float implement it.
type Value interface {
	value() // Sealed
	String() string
}

// Int is an integer field value (identifiers, flags, references).
type Int int64

func (Int) value() {}

func (v Int) String() string {
	return strconv.FormatInt(int64(v), 10)
}

// Float is a real field value. NaN marks a value that is not set.
type Float float64

func (Float) value() {}

func (v Float) String() string {
	return strconv.FormatFloat(float64(v), 'g', -1, 64)
}

// NaN returns the "not set" Float.
func NaN() Float {
	return Float(math.NaN())
}

// AsFloat converts a numeric value to float64.
func AsFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Float:
		return float64(val), true
	default:
		return 0, false
	}
}

// AsInt returns the integer held by v. Floats are not converted.
func AsInt(v Value) (int64, bool) {
	i, ok := v.(Int)
	return int64(i), ok
}

// IsSet reports whether v is present and not NaN.
func IsSet(v Value) bool {
	switch val := v.(type) {
	case nil:
		return false
	case Float:
		return !math.IsNaN(float64(val))
	default:
		return true
	}
}
