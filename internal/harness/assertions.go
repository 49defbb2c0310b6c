package harness

import (
	"fmt"
	"strings"
)

// Assertion validates the issue report or run summary.
type Assertion struct {
	// Type specifies the assertion type:
	// - "issue_contains": an issue with the given shape exists
	// - "issue_count": exactly Count issues match the given shape
	// - "summary": summary fields match expected values
	Type string `yaml:"type"`

	// Category filters issues by category (issue_contains, issue_count).
	Category string `yaml:"category,omitempty"`

	// Table filters issues by table name (issue_contains, issue_count).
	Table string `yaml:"table,omitempty"`

	// Severity filters issues by severity (issue_contains, issue_count).
	Severity string `yaml:"severity,omitempty"`

	// MessageContains filters issues by message substring
	// (issue_contains only).
	MessageContains string `yaml:"message_contains,omitempty"`

	// Count is the expected number of matches (issue_count).
	Count int `yaml:"count,omitempty"`

	// Expect holds expected summary field values (summary). Keys are the
	// summary's JSON field names.
	Expect map[string]int `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertIssueContains = "issue_contains"
	AssertIssueCount    = "issue_count"
	AssertSummary       = "summary"
)

// EvaluateAssertions checks every assertion against the result and returns
// one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertIssueContains:
			err = assertIssueContains(result, &a)
		case AssertIssueCount:
			err = assertIssueCount(result, &a)
		case AssertSummary:
			err = assertSummary(result, &a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// matchIssues returns how many report issues satisfy the assertion's
// filters. Unset filters match everything.
func matchIssues(result *Result, a *Assertion) int {
	matches := 0
	for _, issue := range result.Issues {
		if a.Category != "" && issue.Category != a.Category {
			continue
		}
		if a.Table != "" && issue.Table != a.Table {
			continue
		}
		if a.Severity != "" && string(issue.Severity) != a.Severity {
			continue
		}
		if a.MessageContains != "" && !strings.Contains(issue.Message, a.MessageContains) {
			continue
		}
		matches++
	}
	return matches
}

func assertIssueContains(result *Result, a *Assertion) error {
	if matchIssues(result, a) == 0 {
		return fmt.Errorf("no issue matches category=%q table=%q severity=%q message~%q",
			a.Category, a.Table, a.Severity, a.MessageContains)
	}
	return nil
}

func assertIssueCount(result *Result, a *Assertion) error {
	got := matchIssues(result, a)
	if got != a.Count {
		return fmt.Errorf("want %d issue(s) matching category=%q table=%q severity=%q, got %d",
			a.Count, a.Category, a.Table, a.Severity, got)
	}
	return nil
}

func assertSummary(result *Result, a *Assertion) error {
	actual := map[string]int{
		"inventory_rows": result.Summary.InventoryRows,
		"events":         result.Summary.Events,
		"differences":    result.Summary.Differences,
		"errors":         result.Summary.Errors,
		"warnings":       result.Summary.Warnings,
		"infos":          result.Summary.Infos,
	}
	for field, want := range a.Expect {
		got, ok := actual[field]
		if !ok {
			return fmt.Errorf("unknown summary field %q", field)
		}
		if got != want {
			return fmt.Errorf("summary field %q: want %d, got %d", field, want, got)
		}
	}
	return nil
}
