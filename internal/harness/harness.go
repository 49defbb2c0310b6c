package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/silvics/cbmconv/internal/convert"
	"github.com/silvics/cbmconv/internal/events"
	"github.com/silvics/cbmconv/internal/source"
)

// fixedRunID is the run id every scenario runs under, so golden files stay
// byte-stable across runs.
const fixedRunID = "scenario-run"

// Run executes a scenario through the real conversion pipeline and evaluates
// its assertions. Each scenario runs in isolation with a fixed run id and a
// silenced logger.
func Run(scenario *Scenario) (*Result, error) {
	opts := convert.Options{
		NFCMars: scenario.NFCMars,
		RunIDs:  convert.NewFixedGenerator(fixedRunID),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if scenario.Source != "" {
		opts.DisturbanceSource = events.Mode(scenario.Source)
	}

	in := convert.Inputs{
		Project: buildProject(&scenario.Project),
		Extract: buildExtract(scenario.Extract),
	}

	run, err := convert.Run(opts, in)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult()
	result.RunID = run.RunID
	result.Summary = run.Summary
	if issues := run.Report.Issues(); issues != nil {
		result.Issues = issues
	}
	if diffs := run.Report.Differences(); diffs != nil {
		result.Differences = diffs
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// buildProject converts the YAML project tables into the adapter's raw form.
func buildProject(p *ProjectSpec) *source.ProjectData {
	out := &source.ProjectData{}

	for _, r := range p.Classifiers {
		out.Classifiers = append(out.Classifiers, source.RawClassifier{ID: r.ID, Name: r.Name})
	}
	for _, r := range p.ClassifierValues {
		out.ClassifierValues = append(out.ClassifierValues, source.RawClassifierValue{
			ID: r.ID, ClassifierID: r.Classifier, Value: r.Value,
		})
	}
	for _, r := range p.ClassifierSets {
		out.ClassifierSets = append(out.ClassifierSets, source.RawClassifierSet{ID: r.ID, Name: r.Name})
		for _, v := range r.Values {
			out.ClassifierSetValues = append(out.ClassifierSetValues, source.RawClassifierSetValue{
				SetID: r.ID, ClassifierID: v.Classifier, ValueID: v.Value,
			})
		}
	}

	for _, r := range p.AdminBoundaries {
		out.AdminBoundaries = append(out.AdminBoundaries, source.RawNamed{ID: r.ID, Name: r.Name})
	}
	for _, r := range p.EcoBoundaries {
		out.EcoBoundaries = append(out.EcoBoundaries, source.RawNamed{ID: r.ID, Name: r.Name})
	}
	for _, r := range p.SpatialUnits {
		out.SpatialUnits = append(out.SpatialUnits, source.RawSpatialUnit{
			ID: r.ID, AdminBoundaryID: r.Admin, EcoBoundaryID: r.Eco, DefaultSPUID: r.DefaultSPU,
		})
	}
	for _, r := range p.Species {
		out.Species = append(out.Species, source.RawSpecies{
			ID: r.ID, Name: r.Name, Genus: r.Genus, ForestType: r.ForestType,
		})
	}
	for _, r := range p.DisturbanceTypes {
		out.DisturbanceTypes = append(out.DisturbanceTypes, source.RawDisturbanceType{ID: r.ID, Name: r.Name})
	}

	for _, r := range p.Inventory {
		out.Inventory = append(out.Inventory, source.RawInventory{
			SPUID: r.SPU, ClassifierSetID: r.Set, Age: r.Age, Area: r.Area, Delay: r.Delay,
			HistoricDisturbanceTypeID: r.Historic, LastPassDisturbanceTypeID: r.LastPass,
		})
	}
	for _, r := range p.DisturbanceEvents {
		out.DisturbanceEvents = append(out.DisturbanceEvents, source.RawDisturbanceEvent{
			ClassifierSetID: r.Set, SPUID: r.SPU, EligibilityID: r.Eligibility,
			Efficiency: r.Efficiency, SortType: r.SortType,
			TargetType: r.Target, TargetMagnitude: r.Magnitude,
			DisturbanceTypeID: r.Type, Timestep: r.Timestep,
		})
	}
	for _, r := range p.Eligibilities {
		out.Eligibilities = append(out.Eligibilities, source.RawEligibility{
			ID: r.ID, Name: r.Name, PoolFilter: r.Pool, StateFilter: r.State,
		})
	}
	for _, r := range p.EligibilityAssignments {
		out.EligibilityAssignments = append(out.EligibilityAssignments, source.RawEligibilityAssignment{
			SPUID: r.SPU, ClassifierSetID: r.Set, EligibilityID: r.Eligibility,
		})
	}
	for _, r := range p.MerchVolumes {
		out.MerchVolumes = append(out.MerchVolumes, source.RawMerchVolume{
			ID: r.ID, SPUID: r.SPU, ClassifierSetID: r.Set,
		})
		for _, c := range r.Components {
			out.MerchVolumeComponents = append(out.MerchVolumeComponents, source.RawMerchVolumeComponent{
				MerchVolumeID: r.ID, SpeciesID: c.Species, Age: c.Age, Volume: c.Volume,
			})
		}
	}

	for _, r := range p.SpatialFramework {
		out.SpatialFramework = append(out.SpatialFramework, source.RawFrameworkRow{SPUID: r.SPU, PSPUID: r.PSPU})
	}
	for _, r := range p.ClassMemberships {
		out.ClassMemberships = append(out.ClassMemberships, source.RawMembership{
			SPUID: r.SPU, Class: r.Class, MembershipID: r.Membership,
		})
	}

	return out
}

// buildExtract converts YAML extract rows into the reconciler's input form.
func buildExtract(rows []ExtractRowSpec) []events.ExtractRow {
	if len(rows) == 0 {
		return nil
	}
	out := make([]events.ExtractRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, events.ExtractRow{
			ClassifierValues: r.Values,
			DefaultSPUID:     r.DefaultSPU,
			SPUID:            r.SPU,
			DisturbanceType:  r.Type,
			Timestep:         r.Timestep,
			Area:             r.Area,
		})
	}
	return out
}
