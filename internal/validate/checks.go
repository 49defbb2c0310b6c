package validate

import (
	"fmt"
	"strings"

	"github.com/silvics/cbmconv/internal/eligibility"
	"github.com/silvics/cbmconv/internal/schema"
)

// rangeCheck verifies that numeric columns stay inside their documented
// domains.
type rangeCheck struct{}

func (rangeCheck) Name() string { return "value ranges" }

func (rangeCheck) Run(ds *schema.Dataset, _ *schema.Reference) []schema.ValidationIssue {
	var issues []schema.ValidationIssue
	bad := func(table string, rowID int64, format string, args ...any) {
		issues = append(issues, schema.ValidationIssue{
			Severity: schema.SeverityError,
			Category: schema.CategoryRange,
			Table:    table,
			RowID:    rowID,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	for _, row := range ds.Inventory.Rows() {
		if row.Age < 0 {
			bad(schema.TableInventory, row.ID, "age %d is negative", row.Age)
		}
		if row.Area < 0 {
			bad(schema.TableInventory, row.ID, "area %g is negative", row.Area)
		}
		if row.Delay < 0 {
			bad(schema.TableInventory, row.ID, "delay %d is negative", row.Delay)
		}
	}

	for _, row := range ds.DisturbanceEvents.Rows() {
		if row.Efficiency <= 0 || row.Efficiency > 1 {
			bad(schema.TableDisturbanceEvents, row.ID, "efficiency %g outside (0, 1]", row.Efficiency)
		}
		if row.TargetMagnitude < 0 {
			bad(schema.TableDisturbanceEvents, row.ID, "target magnitude %g is negative", row.TargetMagnitude)
		}
		if row.Timestep < 0 {
			bad(schema.TableDisturbanceEvents, row.ID, "timestep %d is negative", row.Timestep)
		}
		switch row.TargetType {
		case schema.TargetArea, schema.TargetMerchVol, schema.TargetProportion:
		default:
			bad(schema.TableDisturbanceEvents, row.ID, "unknown target type %q", row.TargetType)
		}
	}

	for _, row := range ds.MerchVolumeComponents.Rows() {
		if row.Age < 0 {
			bad(schema.TableMerchVolumeComponents, row.ID, "age %d is negative", row.Age)
		}
		if row.Volume < 0 {
			bad(schema.TableMerchVolumeComponents, row.ID, "volume %g is negative", row.Volume)
		}
	}

	return issues
}

// uniquenessCheck verifies that growth-curve points are unique per
// (merch volume group, species, age).
type uniquenessCheck struct{}

func (uniquenessCheck) Name() string { return "curve point uniqueness" }

func (uniquenessCheck) Run(ds *schema.Dataset, _ *schema.Reference) []schema.ValidationIssue {
	type point struct {
		group, species, age int64
	}
	seen := make(map[point]int64, ds.MerchVolumeComponents.Len())

	var issues []schema.ValidationIssue
	for _, row := range ds.MerchVolumeComponents.Rows() {
		p := point{group: row.MerchVolumeID, species: row.SpeciesID, age: row.Age}
		if first, ok := seen[p]; ok {
			issues = append(issues, schema.ValidationIssue{
				Severity: schema.SeverityError,
				Category: schema.CategoryUniqueness,
				Table:    schema.TableMerchVolumeComponents,
				RowID:    row.ID,
				Message: fmt.Sprintf("duplicate curve point for merch volume %d, species %d, age %d (first at row %d)",
					row.MerchVolumeID, row.SpeciesID, row.Age, first),
			})
			continue
		}
		seen[p] = row.ID
	}
	return issues
}

// coverageCheck verifies that every classifier set binds exactly one value
// for every classifier.
type coverageCheck struct{}

func (coverageCheck) Name() string { return "classifier set coverage" }

func (coverageCheck) Run(ds *schema.Dataset, _ *schema.Reference) []schema.ValidationIssue {
	counts := make(map[int64]map[int64]int, ds.ClassifierSets.Len())
	for _, row := range ds.ClassifierSetValues.Rows() {
		perSet := counts[row.ClassifierSetID]
		if perSet == nil {
			perSet = make(map[int64]int)
			counts[row.ClassifierSetID] = perSet
		}
		perSet[row.ClassifierID]++
	}

	var issues []schema.ValidationIssue
	for _, set := range ds.ClassifierSets.Rows() {
		perSet := counts[set.ID]
		for _, classifier := range ds.Classifiers.Rows() {
			switch n := perSet[classifier.ID]; {
			case n == 0:
				issues = append(issues, schema.ValidationIssue{
					Severity: schema.SeverityError,
					Category: schema.CategoryCoverage,
					Table:    schema.TableClassifierSets,
					RowID:    set.ID,
					Message:  fmt.Sprintf("no value bound for classifier %q", classifier.Name),
				})
			case n > 1:
				issues = append(issues, schema.ValidationIssue{
					Severity: schema.SeverityError,
					Category: schema.CategoryCoverage,
					Table:    schema.TableClassifierSets,
					RowID:    set.ID,
					Message:  fmt.Sprintf("%d values bound for classifier %q, want exactly one", n, classifier.Name),
				})
			}
		}
	}
	return issues
}

// dimensionConsistencyCheck verifies that each dimensioned table populates
// one consistent set of dimension columns across all of its rows. A project
// stratified by spatial unit on one row and by spugroup on the next is
// almost certainly a conversion mistake, but it is reported as a warning
// because mixed profiles are still well-defined for the matcher.
type dimensionConsistencyCheck struct{}

func (dimensionConsistencyCheck) Name() string { return "dimension consistency" }

func (dimensionConsistencyCheck) Run(ds *schema.Dataset, _ *schema.Reference) []schema.ValidationIssue {
	var issues []schema.ValidationIssue
	check := func(table string, masks []uint8) {
		seen := make(map[uint8]int)
		var order []uint8
		for _, m := range masks {
			if seen[m] == 0 {
				order = append(order, m)
			}
			seen[m]++
		}
		if len(order) <= 1 {
			return
		}
		profiles := make([]string, len(order))
		for i, m := range order {
			profiles[i] = fmt.Sprintf("%s (%d rows)", maskColumns(m), seen[m])
		}
		issues = append(issues, schema.ValidationIssue{
			Severity: schema.SeverityWarning,
			Category: schema.CategoryDimensionConsistency,
			Table:    table,
			Message: fmt.Sprintf("rows populate %d distinct dimension-column profiles: %s",
				len(order), strings.Join(profiles, "; ")),
		})
	}

	inventoryMasks := make([]uint8, 0, ds.Inventory.Len())
	for _, row := range ds.Inventory.Rows() {
		inventoryMasks = append(inventoryMasks, row.Dims.PopulatedMask())
	}
	check(schema.TableInventory, inventoryMasks)

	eventMasks := make([]uint8, 0, ds.DisturbanceEvents.Len())
	for _, row := range ds.DisturbanceEvents.Rows() {
		eventMasks = append(eventMasks, row.Dims.PopulatedMask())
	}
	check(schema.TableDisturbanceEvents, eventMasks)

	merchMasks := make([]uint8, 0, ds.MerchVolumes.Len())
	for _, row := range ds.MerchVolumes.Rows() {
		merchMasks = append(merchMasks, row.Dims.PopulatedMask())
	}
	check(schema.TableMerchVolumes, merchMasks)

	return issues
}

// maskColumns renders a populated-column bitmask as the column names it
// covers, in canonical dimension order.
func maskColumns(mask uint8) string {
	if mask == 0 {
		return "(none)"
	}
	var names []string
	for i, name := range schema.DimensionNames {
		if mask&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}

// yieldCompletenessCheck verifies that every inventory row received a merch
// volume assignment, and surfaces assignments the matcher flagged as
// ambiguous.
type yieldCompletenessCheck struct{}

func (yieldCompletenessCheck) Name() string { return "yield completeness" }

func (yieldCompletenessCheck) Run(ds *schema.Dataset, _ *schema.Reference) []schema.ValidationIssue {
	assigned := make(map[int64]bool, ds.YieldAssignments.Len())
	var issues []schema.ValidationIssue

	for _, row := range ds.YieldAssignments.Rows() {
		assigned[row.InventoryID] = true
		if row.Ambiguous {
			issues = append(issues, schema.ValidationIssue{
				Severity: schema.SeverityWarning,
				Category: schema.CategoryAmbiguousMatch,
				Table:    schema.TableYieldAssignments,
				RowID:    row.ID,
				Message: fmt.Sprintf("inventory %d matched several merch volume groups at specificity %d; kept first-constructed group %d",
					row.InventoryID, row.Specificity, row.MerchVolumeID),
			})
		}
	}

	for _, row := range ds.Inventory.Rows() {
		if !assigned[row.ID] {
			issues = append(issues, schema.ValidationIssue{
				Severity: schema.SeverityError,
				Category: schema.CategoryUnmatchedYield,
				Table:    schema.TableInventory,
				RowID:    row.ID,
				Message:  "no merch volume group matches this inventory record",
			})
		}
	}
	return issues
}

// eligibilitySyntaxCheck parses the filter expressions of every eligibility
// referenced by a disturbance event.
type eligibilitySyntaxCheck struct{}

func (eligibilitySyntaxCheck) Name() string { return "eligibility syntax" }

func (eligibilitySyntaxCheck) Run(ds *schema.Dataset, _ *schema.Reference) []schema.ValidationIssue {
	referenced := make(map[int64]bool)
	for _, row := range ds.DisturbanceEvents.Rows() {
		if row.EligibilityID != nil {
			referenced[*row.EligibilityID] = true
		}
	}

	var issues []schema.ValidationIssue
	malformed := func(rowID int64, which string, err error) {
		issues = append(issues, schema.ValidationIssue{
			Severity: schema.SeverityError,
			Category: schema.CategoryEligibilitySyntax,
			Table:    schema.TableEligibilities,
			RowID:    rowID,
			Message:  fmt.Sprintf("%s filter is malformed: %v", which, err),
		})
	}
	for _, row := range ds.Eligibilities.Rows() {
		if !referenced[row.ID] {
			continue
		}
		if err := eligibility.Validate(row.PoolFilterExpression); err != nil {
			malformed(row.ID, "pool", err)
		}
		if err := eligibility.Validate(row.StateFilterExpression); err != nil {
			malformed(row.ID, "state", err)
		}
	}
	return issues
}
