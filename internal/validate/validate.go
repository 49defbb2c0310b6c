// Package validate runs the battery of structural and semantic checks
// over the canonical tables and appends the findings to the run's issue
// report.
//
// Checks are mutually independent: each one only reads canonical tables
// and produces its own issue list, so the runner may execute them in
// parallel; results are merged in registration order either way, keeping
// the issue table deterministic. No check's findings prevent another
// check from running.
package validate

import (
	"sync"

	"github.com/silvics/cbmconv/internal/schema"
)

// Check is one independent validation rule.
type Check interface {
	// Name identifies the check in logs.
	Name() string
	// Run inspects the canonical tables and returns its findings. Issue
	// ids are assigned later, at merge time.
	Run(ds *schema.Dataset, ref *schema.Reference) []schema.ValidationIssue
}

// Runner executes a fixed sequence of checks.
type Runner struct {
	checks   []Check
	parallel bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithParallel runs checks concurrently. Merge order is unchanged, so the
// issue report is identical either way.
func WithParallel() Option {
	return func(r *Runner) { r.parallel = true }
}

// WithChecks replaces the default check set.
func WithChecks(checks ...Check) Option {
	return func(r *Runner) { r.checks = checks }
}

// NewRunner creates a runner with the default check set.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{checks: DefaultChecks()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultChecks returns the standard battery in its canonical order.
func DefaultChecks() []Check {
	return []Check{
		referentialCheck{},
		rangeCheck{},
		uniquenessCheck{},
		coverageCheck{},
		dimensionConsistencyCheck{},
		yieldCompletenessCheck{},
		eligibilitySyntaxCheck{},
	}
}

// Run executes every check and appends the merged findings to rep.
func (r *Runner) Run(ds *schema.Dataset, ref *schema.Reference, rep *schema.Report) {
	results := make([][]schema.ValidationIssue, len(r.checks))

	if r.parallel {
		var wg sync.WaitGroup
		for i, check := range r.checks {
			wg.Add(1)
			go func(i int, check Check) {
				defer wg.Done()
				results[i] = check.Run(ds, ref)
			}(i, check)
		}
		wg.Wait()
	} else {
		for i, check := range r.checks {
			results[i] = check.Run(ds, ref)
		}
	}

	for _, issues := range results {
		for _, issue := range issues {
			rep.AddIssue(issue)
		}
	}
}
