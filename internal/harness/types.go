package harness

import (
	"github.com/silvics/cbmconv/internal/convert"
	"github.com/silvics/cbmconv/internal/schema"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success. True until an assertion
	// fails.
	Pass bool `json:"pass"`

	// RunID is the fixed run id the scenario ran under.
	RunID string `json:"run_id"`

	// Summary is the run summary the pipeline produced.
	Summary convert.Summary `json:"summary"`

	// Issues holds the validation report in id order.
	Issues []schema.ValidationIssue `json:"issues"`

	// Differences holds the parameter diff in id order.
	Differences []schema.ParameterDifference `json:"differences"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Issues:      []schema.ValidationIssue{},
		Differences: []schema.ParameterDifference{},
		Errors:      []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
