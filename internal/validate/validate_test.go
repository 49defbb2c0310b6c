package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvics/cbmconv/internal/schema"
)

// cleanDataset builds a minimal dataset that passes every default check:
// one classifier with one value, one fully covered classifier set, one
// spatial unit, one inventory record with its yield assignment, one event
// and one growth curve, all sharing the same dimension profile.
func cleanDataset() *schema.Dataset {
	ds := schema.NewDataset()

	classifier := ds.Classifiers.Append(schema.Classifier{Name: "LeadSpecies"})
	value := ds.ClassifierValues.Append(schema.ClassifierValue{ClassifierID: classifier, Value: "SW"})
	set := ds.ClassifierSets.Append(schema.ClassifierSet{Name: "SW"})
	ds.ClassifierSetValues.Append(schema.ClassifierSetValue{
		ClassifierSetID: set, ClassifierID: classifier, ClassifierValueID: value,
	})

	admin := ds.AdminBoundaries.Append(schema.AdminBoundary{SourceID: 1, Name: "Alberta"})
	eco := ds.EcoBoundaries.Append(schema.EcoBoundary{SourceID: 4, Name: "Boreal Plains"})
	spu := ds.SpatialUnits.Append(schema.SpatialUnit{SourceID: 21, AdminBoundaryID: admin, EcoBoundaryID: eco})
	ds.Species.Append(schema.Species{SourceID: 11, Name: "White Spruce", Genus: "Picea", ForestType: "Softwood"})
	wildfire := ds.DisturbanceTypes.Append(schema.DisturbanceType{SourceID: 1, Name: "Wildfire"})

	dims := schema.Dimensions{SPUID: schema.ID(spu), ClassifierSetID: schema.ID(set)}
	inv := ds.Inventory.Append(schema.Inventory{Dims: dims, Age: 40, Area: 12.5})
	ds.DisturbanceEvents.Append(schema.DisturbanceEvent{
		Dims:              dims,
		Efficiency:        1,
		SortType:          1,
		TargetType:        schema.TargetArea,
		TargetMagnitude:   3.5,
		DisturbanceTypeID: schema.ID(wildfire),
		Timestep:          5,
	})
	merch := ds.MerchVolumes.Append(schema.MerchVolume{Dims: dims})
	ds.MerchVolumeComponents.Append(schema.MerchVolumeComponent{MerchVolumeID: merch, SpeciesID: 1, Age: 0, Volume: 0})
	ds.MerchVolumeComponents.Append(schema.MerchVolumeComponent{MerchVolumeID: merch, SpeciesID: 1, Age: 50, Volume: 180})
	ds.YieldAssignments.Append(schema.YieldAssignment{InventoryID: inv, MerchVolumeID: merch, Specificity: 2})

	return ds
}

func runChecks(t *testing.T, ds *schema.Dataset, opts ...Option) []schema.ValidationIssue {
	t.Helper()
	rep := schema.NewReport()
	NewRunner(opts...).Run(ds, nil, rep)
	return rep.Issues()
}

func issuesIn(issues []schema.ValidationIssue, category string) []schema.ValidationIssue {
	var out []schema.ValidationIssue
	for _, issue := range issues {
		if issue.Category == category {
			out = append(out, issue)
		}
	}
	return out
}

func TestRunner_CleanDatasetHasNoIssues(t *testing.T) {
	assert.Empty(t, runChecks(t, cleanDataset()))
}

func TestReferential_BrokenEventReferences(t *testing.T) {
	ds := cleanDataset()
	ds.DisturbanceEvents.Append(schema.DisturbanceEvent{
		Dims:              schema.Dimensions{SPUID: schema.ID(99), ClassifierSetID: schema.ID(1)},
		Efficiency:        1,
		TargetType:        schema.TargetArea,
		DisturbanceTypeID: schema.ID(42),
		EligibilityID:     schema.ID(7),
	})

	issues := issuesIn(runChecks(t, ds), schema.CategoryUnresolvedReference)
	require.Len(t, issues, 3) // spuid, disturbance type, eligibility
	for _, issue := range issues {
		assert.Equal(t, schema.SeverityError, issue.Severity)
		assert.Equal(t, schema.TableDisturbanceEvents, issue.Table)
		assert.Equal(t, int64(2), issue.RowID)
	}
}

func TestReferential_SetValueClassifierMismatch(t *testing.T) {
	ds := cleanDataset()
	other := ds.Classifiers.Append(schema.Classifier{Name: "Ownership"})
	// Bind classifier 1's value under classifier 2.
	ds.ClassifierSetValues.Append(schema.ClassifierSetValue{
		ClassifierSetID: 1, ClassifierID: other, ClassifierValueID: 1,
	})

	issues := issuesIn(runChecks(t, ds), schema.CategoryUnresolvedReference)
	require.Len(t, issues, 1)
	assert.Equal(t, schema.TableClassifierSetValues, issues[0].Table)
	assert.Contains(t, issues[0].Message, "belongs to classifier 1")
}

func TestReferential_DefaultSPUCheckedOnlyWhenReferenceLoaded(t *testing.T) {
	ds := cleanDataset()
	ds.Inventory.Mutate(1, func(r *schema.Inventory) { r.Dims.DefaultSPUID = schema.ID(999) })

	// No reference at all: nothing to resolve against.
	assert.Empty(t, issuesIn(runChecks(t, ds), schema.CategoryUnresolvedReference))

	ref := &schema.Reference{
		SpatialUnits: []schema.SpatialUnit{{ID: 1, SourceID: 21}},
		Loaded:       map[string]bool{schema.TableSpatialUnits: true},
	}
	rep := schema.NewReport()
	NewRunner().Run(ds, ref, rep)
	issues := issuesIn(rep.Issues(), schema.CategoryUnresolvedReference)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "default_spuid 999")
}

func TestRange_Violations(t *testing.T) {
	ds := cleanDataset()
	ds.Inventory.Mutate(1, func(r *schema.Inventory) { r.Age = -1 })
	ds.DisturbanceEvents.Mutate(1, func(r *schema.DisturbanceEvent) {
		r.Efficiency = 1.5
		r.TargetType = "X"
	})
	ds.MerchVolumeComponents.Mutate(2, func(r *schema.MerchVolumeComponent) { r.Volume = -3 })

	issues := issuesIn(runChecks(t, ds), schema.CategoryRange)
	require.Len(t, issues, 4)
	messages := make([]string, len(issues))
	for i, issue := range issues {
		assert.Equal(t, schema.SeverityError, issue.Severity)
		messages[i] = issue.Message
	}
	assert.Contains(t, messages, "age -1 is negative")
	assert.Contains(t, messages, "efficiency 1.5 outside (0, 1]")
	assert.Contains(t, messages, `unknown target type "X"`)
	assert.Contains(t, messages, "volume -3 is negative")
}

func TestRange_EfficiencyBoundaries(t *testing.T) {
	ds := cleanDataset()
	ds.DisturbanceEvents.Mutate(1, func(r *schema.DisturbanceEvent) { r.Efficiency = 0 })
	assert.Len(t, issuesIn(runChecks(t, ds), schema.CategoryRange), 1)

	ds.DisturbanceEvents.Mutate(1, func(r *schema.DisturbanceEvent) { r.Efficiency = 1 })
	assert.Empty(t, issuesIn(runChecks(t, ds), schema.CategoryRange))
}

func TestUniqueness_DuplicateCurvePoint(t *testing.T) {
	ds := cleanDataset()
	ds.MerchVolumeComponents.Append(schema.MerchVolumeComponent{MerchVolumeID: 1, SpeciesID: 1, Age: 50, Volume: 200})

	issues := issuesIn(runChecks(t, ds), schema.CategoryUniqueness)
	require.Len(t, issues, 1)
	assert.Equal(t, int64(3), issues[0].RowID)
	assert.Contains(t, issues[0].Message, "first at row 2")
}

func TestCoverage_MissingAndDuplicateBindings(t *testing.T) {
	ds := cleanDataset()
	// A second classifier the existing set never binds.
	ds.Classifiers.Append(schema.Classifier{Name: "Ownership"})
	// And a duplicate binding for the first classifier.
	ds.ClassifierSetValues.Append(schema.ClassifierSetValue{
		ClassifierSetID: 1, ClassifierID: 1, ClassifierValueID: 1,
	})

	issues := issuesIn(runChecks(t, ds), schema.CategoryCoverage)
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0].Message, `2 values bound for classifier "LeadSpecies"`)
	assert.Contains(t, issues[1].Message, `no value bound for classifier "Ownership"`)
}

func TestDimensionConsistency_MixedProfiles(t *testing.T) {
	ds := cleanDataset()
	// Second inventory row stratified by pspuid instead of spuid.
	ds.Inventory.Append(schema.Inventory{
		Dims: schema.Dimensions{PSPUID: schema.ID(1), ClassifierSetID: schema.ID(1)},
		Area: 2,
	})
	ds.YieldAssignments.Append(schema.YieldAssignment{InventoryID: 2, MerchVolumeID: 1, Specificity: 1})

	issues := issuesIn(runChecks(t, ds), schema.CategoryDimensionConsistency)
	require.Len(t, issues, 1)
	assert.Equal(t, schema.SeverityWarning, issues[0].Severity)
	assert.Equal(t, schema.TableInventory, issues[0].Table)
	assert.Contains(t, issues[0].Message, "2 distinct dimension-column profiles")
	assert.Contains(t, issues[0].Message, "spuid,classifier_set_id (1 rows)")
	assert.Contains(t, issues[0].Message, "pspuid,classifier_set_id (1 rows)")
}

func TestYieldCompleteness_UnmatchedAndAmbiguous(t *testing.T) {
	ds := cleanDataset()
	ds.Inventory.Append(schema.Inventory{
		Dims: schema.Dimensions{SPUID: schema.ID(1), ClassifierSetID: schema.ID(1)},
		Area: 1,
	})
	ds.YieldAssignments.Mutate(1, func(r *schema.YieldAssignment) { r.Ambiguous = true })

	issues := runChecks(t, ds)
	unmatched := issuesIn(issues, schema.CategoryUnmatchedYield)
	require.Len(t, unmatched, 1)
	assert.Equal(t, schema.SeverityError, unmatched[0].Severity)
	assert.Equal(t, int64(2), unmatched[0].RowID)

	ambiguous := issuesIn(issues, schema.CategoryAmbiguousMatch)
	require.Len(t, ambiguous, 1)
	assert.Equal(t, schema.SeverityWarning, ambiguous[0].Severity)
	assert.Equal(t, schema.TableYieldAssignments, ambiguous[0].Table)
}

func TestEligibilitySyntax_OnlyReferencedRowsParsed(t *testing.T) {
	ds := cleanDataset()
	referenced := ds.Eligibilities.Append(schema.DisturbanceEligibility{
		Name:                  "broken",
		PoolFilterExpression:  "total_merch >=",
		StateFilterExpression: "age > 40",
	})
	// Malformed but unreferenced: not an issue.
	ds.Eligibilities.Append(schema.DisturbanceEligibility{
		Name:                 "orphan",
		PoolFilterExpression: ")(",
	})
	ds.DisturbanceEvents.Mutate(1, func(r *schema.DisturbanceEvent) { r.EligibilityID = schema.ID(referenced) })

	issues := issuesIn(runChecks(t, ds), schema.CategoryEligibilitySyntax)
	require.Len(t, issues, 1)
	assert.Equal(t, referenced, issues[0].RowID)
	assert.Contains(t, issues[0].Message, "pool filter is malformed")
}

func TestRunner_ParallelMatchesSerialOrder(t *testing.T) {
	build := func() *schema.Dataset {
		ds := cleanDataset()
		ds.Inventory.Mutate(1, func(r *schema.Inventory) { r.Age = -1 })
		ds.DisturbanceEvents.Mutate(1, func(r *schema.DisturbanceEvent) {
			r.Efficiency = 2
			r.DisturbanceTypeID = schema.ID(50)
		})
		ds.Inventory.Append(schema.Inventory{
			Dims: schema.Dimensions{SPUID: schema.ID(1), ClassifierSetID: schema.ID(1)},
		})
		return ds
	}

	serial := runChecks(t, build())
	for range 20 {
		parallel := runChecks(t, build(), WithParallel())
		require.Equal(t, serial, parallel)
	}
}

func TestRunner_WithChecksReplacesBattery(t *testing.T) {
	ds := cleanDataset()
	ds.Inventory.Mutate(1, func(r *schema.Inventory) { r.Age = -5 })

	issues := runChecks(t, ds, WithChecks(rangeCheck{}))
	require.Len(t, issues, 1)
	assert.Equal(t, schema.CategoryRange, issues[0].Category)
}
