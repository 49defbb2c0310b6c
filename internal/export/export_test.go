package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvics/cbmconv/internal/schema"
)

func sampleRun() (*schema.Dataset, *schema.Report) {
	ds := schema.NewDataset()
	classifier := ds.Classifiers.Append(schema.Classifier{Name: "LeadSpecies"})
	value := ds.ClassifierValues.Append(schema.ClassifierValue{ClassifierID: classifier, Value: "SW"})
	set := ds.ClassifierSets.Append(schema.ClassifierSet{Name: "SW"})
	ds.ClassifierSetValues.Append(schema.ClassifierSetValue{ClassifierSetID: set, ClassifierID: classifier, ClassifierValueID: value})

	admin := ds.AdminBoundaries.Append(schema.AdminBoundary{SourceID: 1, Name: "Alberta"})
	eco := ds.EcoBoundaries.Append(schema.EcoBoundary{SourceID: 4, Name: "Boreal Plains"})
	spu := ds.SpatialUnits.Append(schema.SpatialUnit{SourceID: 21, AdminBoundaryID: admin, EcoBoundaryID: eco})
	ds.Species.Append(schema.Species{SourceID: 11, Name: "White Spruce", Genus: "Picea", ForestType: "Softwood"})
	wildfire := ds.DisturbanceTypes.Append(schema.DisturbanceType{SourceID: 1, Name: "Wildfire"})

	dims := schema.Dimensions{SPUID: schema.ID(spu), ClassifierSetID: schema.ID(set)}
	inv := ds.Inventory.Append(schema.Inventory{Dims: dims, Age: 40, Area: 12.5})
	elig := ds.Eligibilities.Append(schema.DisturbanceEligibility{Name: "mature", StateFilterExpression: "age > 40"})
	ds.DisturbanceEvents.Append(schema.DisturbanceEvent{
		Dims: dims, EligibilityID: schema.ID(elig), Efficiency: 1, SortType: 1,
		TargetType: schema.TargetArea, TargetMagnitude: 5, DisturbanceTypeID: schema.ID(wildfire), Timestep: 10,
	})
	merch := ds.MerchVolumes.Append(schema.MerchVolume{Dims: dims})
	ds.MerchVolumeComponents.Append(schema.MerchVolumeComponent{MerchVolumeID: merch, SpeciesID: 1, Age: 50, Volume: 180})
	ds.YieldAssignments.Append(schema.YieldAssignment{InventoryID: inv, MerchVolumeID: merch, Specificity: 2})

	rep := schema.NewReport()
	rep.Issue(schema.SeverityWarning, schema.CategoryDimensionConsistency, schema.TableInventory, 0, "mixed profiles")
	rep.AddDifference(schema.ParameterDifference{
		Table: schema.TableAdminBoundaries, Key: "Alberta", Field: "source_id",
		ProjectValue: "1", DefaultValue: "2", Kind: schema.DiffChanged,
	})
	return ds, rep
}

func TestWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	ds, rep := sampleRun()
	require.NoError(t, store.Write(context.Background(), "run-1", ds, rep))

	count := func(table string) int {
		var n int
		require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		return n
	}
	assert.Equal(t, 1, count("run"))
	assert.Equal(t, 1, count("classifier"))
	assert.Equal(t, 1, count("inventory"))
	assert.Equal(t, 1, count("disturbance_event"))
	assert.Equal(t, 1, count("yield_assignment"))
	assert.Equal(t, 1, count("validation_issue"))
	assert.Equal(t, 1, count("parameter_difference"))

	var spuid int64
	var defaultSPU any
	require.NoError(t, store.DB().QueryRow(
		"SELECT spuid, default_spuid FROM inventory WHERE id = 1").Scan(&spuid, &defaultSPU))
	assert.Equal(t, int64(1), spuid)
	assert.Nil(t, defaultSPU) // unset dimension columns stay NULL

	var kind string
	require.NoError(t, store.DB().QueryRow(
		"SELECT kind FROM parameter_difference WHERE id = 1").Scan(&kind))
	assert.Equal(t, "changed", kind)
}

func TestWrite_FailureLeavesDatabaseEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	ds, rep := sampleRun()
	// A second component for the same (group, species, age) violates the
	// UNIQUE constraint mid-transaction.
	ds.MerchVolumeComponents.Append(schema.MerchVolumeComponent{MerchVolumeID: 1, SpeciesID: 1, Age: 50, Volume: 200})

	err = store.Write(context.Background(), "run-1", ds, rep)
	require.Error(t, err)

	var n int
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM run").Scan(&n))
	assert.Zero(t, n)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	var version int
	require.NoError(t, second.DB().QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}
