package schema

import "sync"

// Report accumulates the two output report tables across components. One
// Report is threaded through every component of a run; Add methods are safe
// for concurrent use so validator checks may run in parallel.
type Report struct {
	mu          sync.Mutex
	issues      *Table[ValidationIssue]
	differences *Table[ParameterDifference]
}

// NewReport creates an empty report collector.
func NewReport() *Report {
	return &Report{
		issues:      NewTable(TableValidationIssues, func(r *ValidationIssue, id int64) { r.ID = id }),
		differences: NewTable(TableParameterDifferences, func(r *ParameterDifference, id int64) { r.ID = id }),
	}
}

// AddIssue appends a validation issue and returns its assigned id.
func (r *Report) AddIssue(issue ValidationIssue) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.issues.Append(issue)
}

// Issue is shorthand for AddIssue with positional fields.
func (r *Report) Issue(sev Severity, category, table string, rowID int64, message string) int64 {
	return r.AddIssue(ValidationIssue{
		Severity: sev,
		Category: category,
		Table:    table,
		RowID:    rowID,
		Message:  message,
	})
}

// AddDifference appends a parameter difference and returns its assigned id.
func (r *Report) AddDifference(diff ParameterDifference) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.differences.Append(diff)
}

// Issues returns the accumulated validation issues in id order.
func (r *Report) Issues() []ValidationIssue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.issues.Rows()
}

// Differences returns the accumulated parameter differences in id order.
func (r *Report) Differences() []ParameterDifference {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.differences.Rows()
}

// CountBySeverity tallies issues per severity grade.
func (r *Report) CountBySeverity() map[Severity]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Severity]int, 3)
	for _, issue := range r.issues.Rows() {
		counts[issue.Severity]++
	}
	return counts
}
