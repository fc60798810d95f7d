package harness

import "github.com/roach88/gridval/internal/validation"

// Result is the outcome of running one case.
type Result struct {
	// Name is the case name.
	Name string `json:"name"`

	// Pass indicates overall case success.
	Pass bool `json:"pass"`

	// Errors contains mismatch messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Outcome is the validation result. Nil when validation stopped with a
	// configuration error.
	Outcome *validation.Result `json:"-"`

	// Digest is the digest of Outcome.
	Digest string `json:"digest,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{Name: name, Pass: true, Errors: []string{}}
}

// AddError adds a mismatch message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
