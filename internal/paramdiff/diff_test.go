package paramdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvics/cbmconv/internal/schema"
)

func boundarySnapshot(names map[string]int64) *Snapshot {
	t := TableSnapshot{Name: schema.TableAdminBoundaries}
	for name, sourceID := range names {
		t.Entries = append(t.Entries, Entry{
			Key:    Key(name),
			Fields: []Field{{Name: "source_id", Value: Int(sourceID)}},
		})
	}
	return &Snapshot{Tables: []TableSnapshot{t}}
}

func TestCompare_RemovedKeyReported(t *testing.T) {
	// Default table has "Boreal Plains"; project lacks it entirely:
	// exactly one row, kind removed, keyed by boundary name.
	project := boundarySnapshot(map[string]int64{"Boreal Shield": 5})
	reference := boundarySnapshot(map[string]int64{"Boreal Shield": 5, "Boreal Plains": 7})
	rep := schema.NewReport()

	Compare(project, reference, rep)

	diffs := rep.Differences()
	require.Len(t, diffs, 1)
	assert.Equal(t, schema.DiffRemoved, diffs[0].Kind)
	assert.Equal(t, "Boreal Plains", diffs[0].Key)
	assert.Equal(t, schema.TableAdminBoundaries, diffs[0].Table)
}

func TestCompare_ChangedField(t *testing.T) {
	project := boundarySnapshot(map[string]int64{"Boreal Shield": 9})
	reference := boundarySnapshot(map[string]int64{"Boreal Shield": 5})
	rep := schema.NewReport()

	Compare(project, reference, rep)

	diffs := rep.Differences()
	require.Len(t, diffs, 1)
	assert.Equal(t, schema.DiffChanged, diffs[0].Kind)
	assert.Equal(t, "source_id", diffs[0].Field)
	assert.Equal(t, "9", diffs[0].ProjectValue)
	assert.Equal(t, "5", diffs[0].DefaultValue)
}

func TestCompare_EqualTablesProduceNothing(t *testing.T) {
	project := boundarySnapshot(map[string]int64{"Boreal Shield": 5, "Taiga Plains": 2})
	reference := boundarySnapshot(map[string]int64{"Boreal Shield": 5, "Taiga Plains": 2})
	rep := schema.NewReport()

	Compare(project, reference, rep)

	assert.Empty(t, rep.Differences())
	assert.Empty(t, rep.Issues())
}

func TestCompare_Symmetry(t *testing.T) {
	// Swapping sides swaps added and removed and swaps the changed-value
	// direction, while preserving the key set of differing rows.
	a := boundarySnapshot(map[string]int64{"Boreal Shield": 9, "Montane Cordillera": 3})
	b := boundarySnapshot(map[string]int64{"Boreal Shield": 5, "Boreal Plains": 7})

	forward := schema.NewReport()
	Compare(a, b, forward)
	backward := schema.NewReport()
	Compare(b, a, backward)

	keyKinds := func(diffs []schema.ParameterDifference) map[string]schema.DifferenceKind {
		m := make(map[string]schema.DifferenceKind)
		for _, d := range diffs {
			m[d.Key] = d.Kind
		}
		return m
	}
	fwd := keyKinds(forward.Differences())
	bwd := keyKinds(backward.Differences())

	require.Equal(t, len(fwd), len(bwd))
	for key, kind := range fwd {
		switch kind {
		case schema.DiffAdded:
			assert.Equal(t, schema.DiffRemoved, bwd[key], key)
		case schema.DiffRemoved:
			assert.Equal(t, schema.DiffAdded, bwd[key], key)
		case schema.DiffChanged:
			assert.Equal(t, schema.DiffChanged, bwd[key], key)
		}
	}

	// Changed direction negates: project/default values swap.
	var fwdChanged, bwdChanged schema.ParameterDifference
	for _, d := range forward.Differences() {
		if d.Kind == schema.DiffChanged {
			fwdChanged = d
		}
	}
	for _, d := range backward.Differences() {
		if d.Kind == schema.DiffChanged {
			bwdChanged = d
		}
	}
	assert.Equal(t, fwdChanged.ProjectValue, bwdChanged.DefaultValue)
	assert.Equal(t, fwdChanged.DefaultValue, bwdChanged.ProjectValue)
}

func TestCompare_MissingReferenceTableSkipped(t *testing.T) {
	project := &Snapshot{Tables: []TableSnapshot{
		{Name: schema.TableSpecies, Entries: []Entry{{Key: Key("Spruce")}}},
	}}
	reference := &Snapshot{}
	rep := schema.NewReport()

	Compare(project, reference, rep)

	assert.Empty(t, rep.Differences())
	issues := rep.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, schema.CategoryMissingReferenceTable, issues[0].Category)
	assert.Equal(t, schema.TableSpecies, issues[0].Table)
}

func TestValue_ExactNumericEquality(t *testing.T) {
	assert.True(t, Float(0.1).Equal(Float(0.1)))
	assert.False(t, Float(0.1).Equal(Float(0.1000001)))
	assert.True(t, Int(5).Equal(Float(5)))
	assert.False(t, Int(5).Equal(Text("5")))
	assert.False(t, Text("Spruce").Equal(Text("spruce"))) // case-sensitive
}

func TestKey_NormalizesUnicode(t *testing.T) {
	// "é" composed vs decomposed must key identically.
	composed := "Forêt boréale"
	decomposed := "Forêt boréale"
	assert.Equal(t, Key(composed), Key(decomposed))
	assert.Equal(t, "a/b", Key("a", "b"))
}

func TestProjectSnapshot_SpatialUnitsKeyedByBoundaryNames(t *testing.T) {
	ds := schema.NewDataset()
	admin := ds.AdminBoundaries.Append(schema.AdminBoundary{SourceID: 1, Name: "Alberta"})
	eco := ds.EcoBoundaries.Append(schema.EcoBoundary{SourceID: 2, Name: "Boreal Plains"})
	ds.SpatialUnits.Append(schema.SpatialUnit{SourceID: 21, AdminBoundaryID: admin, EcoBoundaryID: eco})

	snap := ProjectSnapshot(ds)
	spus, ok := snap.table(schema.TableSpatialUnits)
	require.True(t, ok)
	require.Len(t, spus.Entries, 1)
	assert.Equal(t, "Alberta/Boreal Plains", spus.Entries[0].Key)
}
