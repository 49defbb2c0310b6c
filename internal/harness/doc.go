// Package harness provides a conformance testing framework for the
// converter pipeline.
//
// Scenarios are YAML files describing a small project (the raw tables the
// source adapter would read), the run selectors, and assertions on the
// resulting issue report and summary. Each scenario runs the real pipeline
// end to end with a fixed run id, so the same scenario always produces the
// same report.
//
// Golden files capture the full report snapshot for a scenario; they are the
// source of truth for expected pipeline output and are regenerated with
//
//	go test ./internal/harness -update
package harness
