package validation

import "slices"

// Result holds one violation list per scenario, positioned by scenario
// index. A scenario with no violations has an empty slot.
type Result struct {
	Scenarios [][]Violation `json:"scenarios"`
}

// Len returns the number of scenarios.
func (r *Result) Len() int {
	return len(r.Scenarios)
}

// Scenario returns the violations of scenario i.
func (r *Result) Scenario(i int) []Violation {
	return r.Scenarios[i]
}

// Valid reports whether no scenario has a violation.
func (r *Result) Valid() bool {
	return len(r.Failed()) == 0
}

// Failed returns the indices of scenarios with at least one violation.
func (r *Result) Failed() []int {
	var idx []int
	for i, vs := range r.Scenarios {
		if len(vs) > 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

// Sparse returns only the failing scenarios, keyed by scenario index.
func (r *Result) Sparse() map[int][]Violation {
	out := make(map[int][]Violation)
	for _, i := range r.Failed() {
		out[i] = r.Scenarios[i]
	}
	return out
}

// Count returns the total number of violations across scenarios.
func (r *Result) Count() int {
	n := 0
	for _, vs := range r.Scenarios {
		n += len(vs)
	}
	return n
}

// Equal reports value equality of two results.
func (r *Result) Equal(o *Result) bool {
	return slices.EqualFunc(r.Scenarios, o.Scenarios, func(a, b []Violation) bool {
		return slices.EqualFunc(a, b, Violation.Equal)
	})
}
