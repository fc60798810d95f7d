package testutil

// FixedRunIDs returns the same run identifier every time.
//
// This enables deterministic archive contents and golden output comparison.
// If id is empty, Generate() returns "test-run-default".
//
// Thread-safety: FixedRunIDs is stateless and safe for concurrent use.
type FixedRunIDs struct {
	id string
}

// NewFixedRunIDs creates a fixed run identifier generator.
func NewFixedRunIDs(id string) *FixedRunIDs {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDs{id: id}
}

// Generate returns the fixed run identifier.
//
// Implements store.RunIDGenerator.
func (g *FixedRunIDs) Generate() string {
	return g.id
}
