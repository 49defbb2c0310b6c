package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvics/cbmconv/internal/schema"
)

// newTestDataset builds a dataset with two classifiers and two disturbance
// types, enough for both reconciler paths.
func newTestDataset() *schema.Dataset {
	ds := schema.NewDataset()

	species := ds.Classifiers.Append(schema.Classifier{Name: "species"})
	mgmt := ds.Classifiers.Append(schema.Classifier{Name: "management"})
	ds.ClassifierValues.Append(schema.ClassifierValue{ClassifierID: species, Value: "SW"})
	ds.ClassifierValues.Append(schema.ClassifierValue{ClassifierID: species, Value: "HW"})
	ds.ClassifierValues.Append(schema.ClassifierValue{ClassifierID: mgmt, Value: "intensive"})
	ds.ClassifierValues.Append(schema.ClassifierValue{ClassifierID: mgmt, Value: "extensive"})

	ds.DisturbanceTypes.Append(schema.DisturbanceType{SourceID: 1, Name: "Wildfire"})
	ds.DisturbanceTypes.Append(schema.DisturbanceType{SourceID: 4, Name: "Clearcut"})
	return ds
}

func TestRelationalSource_MapsOneToOne(t *testing.T) {
	ds := newTestDataset()
	rep := schema.NewReport()

	elig := int64(3)
	rows := []RelationalRow{
		{
			Dims:            schema.Dimensions{SPUID: schema.ID(5), ClassifierSetID: schema.ID(1)},
			EligibilityID:   &elig,
			Efficiency:      0.85,
			SortType:        2,
			TargetType:      schema.TargetMerchVol,
			TargetMagnitude: 1200,
			DisturbanceType: "Clearcut",
			Timestep:        3,
		},
		{
			Dims:            schema.Dimensions{},
			Efficiency:      1,
			SortType:        1,
			TargetType:      schema.TargetArea,
			TargetMagnitude: 40,
			DisturbanceType: "Wildfire",
			Timestep:        1,
		},
	}

	src, err := NewSource(SourceRelational, rows, nil)
	require.NoError(t, err)
	require.NoError(t, src.Produce(ds, rep))

	require.Equal(t, 2, ds.DisturbanceEvents.Len())
	first, _ := ds.DisturbanceEvents.Get(1)
	require.NotNil(t, first.DisturbanceTypeID)
	assert.Equal(t, int64(2), *first.DisturbanceTypeID) // Clearcut
	require.NotNil(t, first.EligibilityID)
	assert.Equal(t, int64(3), *first.EligibilityID)
	assert.Equal(t, 0.85, first.Efficiency)

	second, _ := ds.DisturbanceEvents.Get(2)
	assert.Nil(t, second.EligibilityID)
	assert.Empty(t, rep.Issues())
}

func TestRelationalSource_UnresolvedTypeReported(t *testing.T) {
	ds := newTestDataset()
	rep := schema.NewReport()

	src, err := NewSource(SourceRelational, []RelationalRow{
		{Efficiency: 1, TargetType: schema.TargetArea, DisturbanceType: "Hurricane", Timestep: 0},
	}, nil)
	require.NoError(t, err)
	require.NoError(t, src.Produce(ds, rep))

	// Row still emitted, reference nil, one issue.
	require.Equal(t, 1, ds.DisturbanceEvents.Len())
	event, _ := ds.DisturbanceEvents.Get(1)
	assert.Nil(t, event.DisturbanceTypeID)

	issues := rep.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, schema.CategoryUnresolvedReference, issues[0].Category)
	assert.Contains(t, issues[0].Message, "Hurricane")
}

func TestExtractSource_GroupsByDimensionTuple(t *testing.T) {
	ds := newTestDataset()
	rep := schema.NewReport()

	rows := []ExtractRow{
		{ClassifierValues: []string{"SW", "intensive"}, SPUID: schema.ID(5), DisturbanceType: "Wildfire", Timestep: 1, Area: 10},
		{ClassifierValues: []string{"SW", "intensive"}, SPUID: schema.ID(5), DisturbanceType: "Wildfire", Timestep: 1, Area: 15},
		{ClassifierValues: []string{"HW", "intensive"}, SPUID: schema.ID(5), DisturbanceType: "Wildfire", Timestep: 1, Area: 7},
	}

	src, err := NewSource(SourceExtract, nil, rows)
	require.NoError(t, err)
	require.NoError(t, src.Produce(ds, rep))

	// First two rows collapse into one canonical event with summed area.
	require.Equal(t, 2, ds.DisturbanceEvents.Len())
	first, _ := ds.DisturbanceEvents.Get(1)
	assert.Equal(t, 25.0, first.TargetMagnitude)
	assert.Equal(t, schema.TargetArea, first.TargetType)
	assert.Equal(t, 1.0, first.Efficiency)
	require.NotNil(t, first.Dims.ClassifierSetID)

	// Distinct classifier tuples get distinct classifier sets.
	second, _ := ds.DisturbanceEvents.Get(2)
	require.NotNil(t, second.Dims.ClassifierSetID)
	assert.NotEqual(t, *first.Dims.ClassifierSetID, *second.Dims.ClassifierSetID)

	// Each set covers both classifiers.
	assert.Equal(t, 2, ds.ClassifierSets.Len())
	assert.Equal(t, 4, ds.ClassifierSetValues.Len())
	assert.Empty(t, rep.Issues())
}

func TestExtractSource_NoDedupAcrossTimesteps(t *testing.T) {
	ds := newTestDataset()
	rep := schema.NewReport()

	rows := []ExtractRow{
		{ClassifierValues: []string{"SW", "intensive"}, SPUID: schema.ID(5), DisturbanceType: "Wildfire", Timestep: 1, Area: 10},
		{ClassifierValues: []string{"SW", "intensive"}, SPUID: schema.ID(5), DisturbanceType: "Wildfire", Timestep: 2, Area: 10},
	}

	src, err := NewSource(SourceExtract, nil, rows)
	require.NoError(t, err)
	require.NoError(t, src.Produce(ds, rep))

	require.Equal(t, 2, ds.DisturbanceEvents.Len())
	first, _ := ds.DisturbanceEvents.Get(1)
	second, _ := ds.DisturbanceEvents.Get(2)
	assert.Equal(t, int64(1), first.Timestep)
	assert.Equal(t, int64(2), second.Timestep)
	// Identical tuple reuses the same classifier set.
	assert.Equal(t, *first.Dims.ClassifierSetID, *second.Dims.ClassifierSetID)
	assert.Equal(t, 1, ds.ClassifierSets.Len())
}

func TestExtractSource_UnresolvedReferencesReported(t *testing.T) {
	ds := newTestDataset()
	rep := schema.NewReport()

	rows := []ExtractRow{
		{ClassifierValues: []string{"SW", "organic"}, SPUID: schema.ID(5), DisturbanceType: "Hurricane", Timestep: 1, Area: 3},
	}

	src, err := NewSource(SourceExtract, nil, rows)
	require.NoError(t, err)
	require.NoError(t, src.Produce(ds, rep))

	// Row still emitted: disturbance type nil, classifier set incomplete.
	require.Equal(t, 1, ds.DisturbanceEvents.Len())
	event, _ := ds.DisturbanceEvents.Get(1)
	assert.Nil(t, event.DisturbanceTypeID)
	require.NotNil(t, event.Dims.ClassifierSetID)
	assert.Equal(t, 1, ds.ClassifierSetValues.Len()) // only "SW" resolved

	issues := rep.Issues()
	require.Len(t, issues, 2)
	for _, issue := range issues {
		assert.Equal(t, schema.CategoryUnresolvedReference, issue.Category)
	}
}

func TestNewSource_UnknownMode(t *testing.T) {
	_, err := NewSource(Mode("bogus"), nil, nil)
	assert.Error(t, err)
}

func TestAssignEligibility(t *testing.T) {
	ds := newTestDataset()
	rep := schema.NewReport()

	ds.Eligibilities.Append(schema.DisturbanceEligibility{Name: "softwood", PoolFilterExpression: "total_merch >= 50"})
	ds.Eligibilities.Append(schema.DisturbanceEligibility{Name: "anything"})

	explicit := int64(2)
	ds.DisturbanceEvents.Append(schema.DisturbanceEvent{
		Dims: schema.Dimensions{SPUID: schema.ID(5)}, Efficiency: 1, TargetType: schema.TargetArea,
	})
	ds.DisturbanceEvents.Append(schema.DisturbanceEvent{
		Dims: schema.Dimensions{SPUID: schema.ID(9)}, EligibilityID: &explicit, Efficiency: 1, TargetType: schema.TargetArea,
	})

	candidates := []EligibilityCandidate{
		{Dims: schema.Dimensions{SPUID: schema.ID(5)}, EligibilityID: 1},
		{Dims: schema.Dimensions{}, EligibilityID: 2},
	}
	AssignEligibility(ds, candidates, rep)

	first, _ := ds.DisturbanceEvents.Get(1)
	require.NotNil(t, first.EligibilityID)
	assert.Equal(t, int64(1), *first.EligibilityID) // specificity 1 beats wildcard

	// Explicit references are never overwritten.
	second, _ := ds.DisturbanceEvents.Get(2)
	require.NotNil(t, second.EligibilityID)
	assert.Equal(t, int64(2), *second.EligibilityID)
	assert.Empty(t, rep.Issues())
}

func TestAssignEligibility_AmbiguousReported(t *testing.T) {
	ds := newTestDataset()
	rep := schema.NewReport()

	ds.DisturbanceEvents.Append(schema.DisturbanceEvent{
		Dims: schema.Dimensions{SPUID: schema.ID(5)}, Efficiency: 1, TargetType: schema.TargetArea,
	})
	candidates := []EligibilityCandidate{
		{Dims: schema.Dimensions{SPUID: schema.ID(5)}, EligibilityID: 1},
		{Dims: schema.Dimensions{SPUID: schema.ID(5)}, EligibilityID: 2},
	}
	AssignEligibility(ds, candidates, rep)

	event, _ := ds.DisturbanceEvents.Get(1)
	require.NotNil(t, event.EligibilityID)
	assert.Equal(t, int64(1), *event.EligibilityID) // first-constructed wins

	issues := rep.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, schema.CategoryAmbiguousMatch, issues[0].Category)
}
