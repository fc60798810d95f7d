package dataset

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/gridval/internal/schema"
)

// Update is one scenario's sparse update: component name to partial rows.
type Update map[string][]Row

// Batch maps a component type name to per-scenario partial rows.
// Batch[c][i] holds the partial rows scenario i applies to component c.
type Batch map[string][][]Row

// SparseBatch is the columnar batch layout: scenario i owns
// Data[Indptr[i]:Indptr[i+1]].
type SparseBatch struct {
	Indptr []int
	Data   []Row
}

// Dense converts the sparse layout to per-scenario row slices.
// The returned slices share rows with Data but never alias each other.
func (s SparseBatch) Dense(component string) ([][]Row, error) {
	if len(s.Indptr) == 0 {
		return nil, schema.Errorf(schema.ErrScenarioCount, component, "", "indptr is empty")
	}
	if s.Indptr[0] != 0 {
		return nil, schema.Errorf(schema.ErrScenarioCount, component, "", "indptr must start at 0, got %d", s.Indptr[0])
	}
	if last := s.Indptr[len(s.Indptr)-1]; last != len(s.Data) {
		return nil, schema.Errorf(schema.ErrScenarioCount, component, "",
			"indptr ends at %d but data has %d rows", last, len(s.Data))
	}

	scenarios := make([][]Row, len(s.Indptr)-1)
	for i := range scenarios {
		lo, hi := s.Indptr[i], s.Indptr[i+1]
		if hi < lo {
			return nil, schema.Errorf(schema.ErrScenarioCount, component, "",
				"indptr decreases at scenario %d (%d > %d)", i, lo, hi)
		}
		scenarios[i] = slices.Clip(s.Data[lo:hi])
	}
	return scenarios, nil
}

// Components returns the component names present in the batch, sorted.
func (b Batch) Components() []string {
	return slices.Sorted(maps.Keys(b))
}

// Scenarios returns the number of scenarios in the batch.
// All component types must agree; a mismatch is a ConfigError.
// An empty batch has zero scenarios.
func (b Batch) Scenarios() (int, error) {
	count := -1
	var first string
	for _, component := range b.Components() {
		n := len(b[component])
		if count < 0 {
			count, first = n, component
			continue
		}
		if n != count {
			return 0, schema.Errorf(schema.ErrScenarioCount, component, "",
				"has %d scenarios but %s has %d", n, first, count)
		}
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

// Scenario returns the update owned by scenario i.
// Components with no rows in that scenario are omitted.
func (b Batch) Scenario(i int) Update {
	update := make(Update, len(b))
	for component, scenarios := range b {
		if i < len(scenarios) && len(scenarios[i]) > 0 {
			update[component] = scenarios[i]
		}
	}
	return update
}

// Conform checks every partial row against the registry.
// Identifiers are optional in partial rows; whether a scenario may omit them
// is decided by the merger.
func (b Batch) Conform(reg *schema.Registry) error {
	for _, component := range b.Components() {
		if !reg.Has(component) {
			_, err := reg.FieldsOf(component)
			return err
		}
		for s, rows := range b[component] {
			for i, row := range rows {
				if err := conformRow(reg, component, row); err != nil {
					return fmt.Errorf("scenario %d, update record %d: %w", s, i, err)
				}
			}
		}
	}
	return nil
}
