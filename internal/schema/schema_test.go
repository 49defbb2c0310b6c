package schema

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AppendAssignsSequentialIDs(t *testing.T) {
	ds := NewDataset()

	first := ds.Classifiers.Append(Classifier{Name: "species"})
	second := ds.Classifiers.Append(Classifier{Name: "management"})

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	row, ok := ds.Classifiers.Get(2)
	require.True(t, ok)
	assert.Equal(t, "management", row.Name)
	assert.Equal(t, int64(2), row.ID)
}

func TestTable_GetOutOfRange(t *testing.T) {
	ds := NewDataset()
	_, ok := ds.Inventory.Get(1)
	assert.False(t, ok)
	_, ok = ds.Inventory.Get(0)
	assert.False(t, ok)
}

func TestTable_Mutate(t *testing.T) {
	ds := NewDataset()
	id := ds.Inventory.Append(Inventory{Age: 10})

	ok := ds.Inventory.Mutate(id, func(r *Inventory) { r.Dims.PSPUID = ID(42) })
	require.True(t, ok)

	row, _ := ds.Inventory.Get(id)
	require.NotNil(t, row.Dims.PSPUID)
	assert.Equal(t, int64(42), *row.Dims.PSPUID)

	assert.False(t, ds.Inventory.Mutate(99, func(r *Inventory) {}))
}

func TestDimensions_Specificity(t *testing.T) {
	var d Dimensions
	assert.Zero(t, d.Specificity())

	d.SPUID = ID(5)
	d.ClassifierSetID = ID(2)
	assert.Equal(t, 2, d.Specificity())
}

func TestDimensions_ColumnsFixedOrder(t *testing.T) {
	d := Dimensions{
		DefaultSPUID:            ID(1),
		PSPUID:                  ID(2),
		SPUID:                   ID(3),
		FireSpugroupID:          ID(4),
		HarvestSpugroupID:       ID(5),
		DeforestationSpugroupID: ID(6),
		InsectSpugroupID:        ID(7),
		ClassifierSetID:         ID(8),
	}
	cols := d.Columns()
	for i, col := range cols {
		require.NotNil(t, col, DimensionNames[i])
		assert.Equal(t, int64(i+1), *col, DimensionNames[i])
	}
}

func TestReport_ConcurrentAppend(t *testing.T) {
	rep := NewReport()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				rep.Issue(SeverityWarning, CategoryRange, TableInventory, 1, "out of range")
			}
		}()
	}
	wg.Wait()

	issues := rep.Issues()
	require.Len(t, issues, 800)
	// Ids are dense and unique regardless of interleaving.
	seen := make(map[int64]bool, len(issues))
	for _, issue := range issues {
		assert.False(t, seen[issue.ID])
		seen[issue.ID] = true
	}
	assert.Equal(t, map[Severity]int{SeverityWarning: 800}, rep.CountBySeverity())
}

func TestReference_Has(t *testing.T) {
	var nilRef *Reference
	assert.False(t, nilRef.Has(TableSpecies))

	ref := &Reference{Loaded: map[string]bool{TableSpecies: true}}
	assert.True(t, ref.Has(TableSpecies))
	assert.False(t, ref.Has(TableAdminBoundaries))
}
