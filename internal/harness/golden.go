package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/silvics/cbmconv/internal/convert"
	"github.com/silvics/cbmconv/internal/schema"
)

// ReportSnapshot captures the complete report for a scenario execution in a
// deterministic, diff-friendly form.
type ReportSnapshot struct {
	ScenarioName string                       `json:"scenario_name"`
	RunID        string                       `json:"run_id"`
	Summary      convert.Summary              `json:"summary"`
	Issues       []schema.ValidationIssue     `json:"issues"`
	Differences  []schema.ParameterDifference `json:"differences"`
}

// RunWithGolden executes a scenario and compares the report snapshot against
// its golden file under testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-computed result against the golden file
// for the given scenario name.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := ReportSnapshot{
		ScenarioName: scenarioName,
		RunID:        result.RunID,
		Summary:      result.Summary,
		Issues:       result.Issues,
		Differences:  result.Differences,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
