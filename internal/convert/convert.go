// Package convert orchestrates a full conversion run: normalization of the
// raw project tables into the canonical schema, the NFCMars enrichment,
// disturbance-event reconciliation, eligibility and yield assignment, the
// parameter diff and the validation battery.
//
// Fatal problems (selector misconfiguration, missing inputs) abort the run
// with no output tables. Everything recoverable becomes a validation issue
// and the run completes with the full canonical set plus both reports.
package convert

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/silvics/cbmconv/internal/events"
	"github.com/silvics/cbmconv/internal/match"
	"github.com/silvics/cbmconv/internal/nfcmars"
	"github.com/silvics/cbmconv/internal/paramdiff"
	"github.com/silvics/cbmconv/internal/schema"
	"github.com/silvics/cbmconv/internal/source"
	"github.com/silvics/cbmconv/internal/validate"
)

// ErrNoProject is returned when a run starts without project data.
var ErrNoProject = errors.New("no project data provided")

// ErrNoExtract is returned when the extract source mode is selected but no
// flat extract was provided.
var ErrNoExtract = errors.New("disturbance source is extract but no extract provided")

// Options are the run selectors.
type Options struct {
	// NFCMars enables the spatial-framework enrichment.
	NFCMars bool

	// DisturbanceSource selects the event reconciler input format.
	DisturbanceSource events.Mode

	// ParallelChecks runs the validation battery concurrently. The issue
	// report is identical either way.
	ParallelChecks bool

	// RunIDs generates the run identifier. Nil means UUIDv7.
	RunIDs RunIDGenerator

	// Logger receives run progress. Nil means slog.Default().
	Logger *slog.Logger
}

// Inputs are the typed tables a run consumes.
type Inputs struct {
	Project   *source.ProjectData
	Reference *schema.Reference   // nil skips the parameter diff
	Extract   []events.ExtractRow // required in extract mode
}

// Summary condenses a completed run for logs and CLI output.
type Summary struct {
	InventoryRows int `json:"inventory_rows"`
	Events        int `json:"events"`
	Differences   int `json:"differences"`
	Errors        int `json:"errors"`
	Warnings      int `json:"warnings"`
	Infos         int `json:"infos"`
}

// Result is a completed conversion run.
type Result struct {
	RunID   string
	Dataset *schema.Dataset
	Report  *schema.Report
	Summary Summary
}

// Run executes the conversion pipeline in strict dependency order.
func Run(opts Options, in Inputs) (*Result, error) {
	if in.Project == nil {
		return nil, ErrNoProject
	}
	if opts.DisturbanceSource == "" {
		opts.DisturbanceSource = events.SourceRelational
	}
	if opts.DisturbanceSource == events.SourceExtract && in.Extract == nil {
		return nil, ErrNoExtract
	}
	if opts.RunIDs == nil {
		opts.RunIDs = UUIDv7Generator{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	runID := opts.RunIDs.Generate()
	log = log.With("run_id", runID)
	log.Info("starting conversion",
		"source", string(opts.DisturbanceSource),
		"nfcmars", opts.NFCMars)

	rep := schema.NewReport()
	norm := normalize(in.Project, rep)
	ds := norm.ds
	log.Debug("normalized project tables",
		"inventory", ds.Inventory.Len(),
		"spatial_units", ds.SpatialUnits.Len(),
		"classifier_sets", ds.ClassifierSets.Len())

	extract := in.Extract
	if opts.DisturbanceSource == events.SourceExtract {
		extract = norm.remapExtract(extract, rep)
	}
	src, err := events.NewSource(opts.DisturbanceSource, norm.relational, extract)
	if err != nil {
		return nil, err
	}
	if err := src.Produce(ds, rep); err != nil {
		return nil, fmt.Errorf("reconcile disturbance events: %w", err)
	}
	log.Debug("reconciled disturbance events", "events", ds.DisturbanceEvents.Len())

	// Enrichment must land between event production and eligibility
	// assignment: the reconciled events need their spugroup columns before
	// the matcher reads them.
	if opts.NFCMars {
		ext := &nfcmars.Extension{
			PSPUBySPU:   norm.framework,
			Memberships: norm.memberships,
		}
		ext.Apply(ds, rep)
		log.Debug("applied nfcmars enrichment",
			"framework_rows", len(norm.framework),
			"membership_rows", len(norm.memberships))
	}

	events.AssignEligibility(ds, norm.eligCandidates, rep)

	assignYields(ds)

	if in.Reference != nil {
		paramdiff.Compare(paramdiff.ProjectSnapshot(ds), paramdiff.ReferenceSnapshot(in.Reference), rep)
	}

	var runnerOpts []validate.Option
	if opts.ParallelChecks {
		runnerOpts = append(runnerOpts, validate.WithParallel())
	}
	validate.NewRunner(runnerOpts...).Run(ds, in.Reference, rep)

	result := &Result{
		RunID:   runID,
		Dataset: ds,
		Report:  rep,
		Summary: summarize(ds, rep),
	}
	log.Info("conversion complete",
		"events", result.Summary.Events,
		"differences", result.Summary.Differences,
		"errors", result.Summary.Errors,
		"warnings", result.Summary.Warnings)
	return result, nil
}

// assignYields matches every inventory row against the merch volume groups
// and records the winner. No match leaves no assignment and an ambiguous
// winning rank is recorded on the assignment row; the validator reports
// both.
func assignYields(ds *schema.Dataset) {
	if ds.MerchVolumes.Len() == 0 {
		return
	}
	pool := make([]match.Candidate, 0, ds.MerchVolumes.Len())
	for _, mv := range ds.MerchVolumes.Rows() {
		pool = append(pool, match.Candidate{ID: mv.ID, Dims: mv.Dims})
	}

	for _, inv := range ds.Inventory.Rows() {
		result := match.Best(inv.Dims, pool)
		if result.Outcome == match.NoMatch {
			continue
		}
		ds.YieldAssignments.Append(schema.YieldAssignment{
			InventoryID:   inv.ID,
			MerchVolumeID: result.CandidateID,
			Specificity:   result.Specificity,
			Ambiguous:     result.Outcome == match.Ambiguous,
		})
	}
}

func summarize(ds *schema.Dataset, rep *schema.Report) Summary {
	counts := rep.CountBySeverity()
	return Summary{
		InventoryRows: ds.Inventory.Len(),
		Events:        ds.DisturbanceEvents.Len(),
		Differences:   len(rep.Differences()),
		Errors:        counts[schema.SeverityError],
		Warnings:      counts[schema.SeverityWarning],
		Infos:         counts[schema.SeverityInfo],
	}
}
