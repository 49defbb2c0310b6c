package validate

import (
	"fmt"

	"github.com/silvics/cbmconv/internal/schema"
)

// referentialCheck verifies that every cross-table reference resolves.
type referentialCheck struct{}

func (referentialCheck) Name() string { return "referential integrity" }

func (referentialCheck) Run(ds *schema.Dataset, ref *schema.Reference) []schema.ValidationIssue {
	var issues []schema.ValidationIssue
	broken := func(table string, rowID int64, format string, args ...any) {
		issues = append(issues, schema.ValidationIssue{
			Severity: schema.SeverityError,
			Category: schema.CategoryUnresolvedReference,
			Table:    table,
			RowID:    rowID,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	resolves := func(id *int64, n int) bool {
		return id == nil || (*id >= 1 && *id <= int64(n))
	}

	// Default spatial unit ids resolve against the reference, when loaded.
	defaultSPUs := make(map[int64]bool)
	if ref != nil {
		for _, spu := range ref.SpatialUnits {
			defaultSPUs[spu.SourceID] = true
		}
	}
	checkDims := func(table string, rowID int64, dims schema.Dimensions) {
		if !resolves(dims.ClassifierSetID, ds.ClassifierSets.Len()) {
			broken(table, rowID, "classifier_set_id %d does not resolve", *dims.ClassifierSetID)
		}
		if !resolves(dims.SPUID, ds.SpatialUnits.Len()) {
			broken(table, rowID, "spuid %d does not resolve", *dims.SPUID)
		}
		if dims.DefaultSPUID != nil && ref.Has(schema.TableSpatialUnits) && !defaultSPUs[*dims.DefaultSPUID] {
			broken(table, rowID, "default_spuid %d not present in the default-parameters reference", *dims.DefaultSPUID)
		}
	}

	for _, row := range ds.SpatialUnits.Rows() {
		if row.AdminBoundaryID < 1 || row.AdminBoundaryID > int64(ds.AdminBoundaries.Len()) {
			broken(schema.TableSpatialUnits, row.ID, "admin_boundary_id %d does not resolve", row.AdminBoundaryID)
		}
		if row.EcoBoundaryID < 1 || row.EcoBoundaryID > int64(ds.EcoBoundaries.Len()) {
			broken(schema.TableSpatialUnits, row.ID, "eco_boundary_id %d does not resolve", row.EcoBoundaryID)
		}
	}

	for _, row := range ds.ClassifierSetValues.Rows() {
		if row.ClassifierSetID < 1 || row.ClassifierSetID > int64(ds.ClassifierSets.Len()) {
			broken(schema.TableClassifierSetValues, row.ID, "classifier_set_id %d does not resolve", row.ClassifierSetID)
		}
		if row.ClassifierID < 1 || row.ClassifierID > int64(ds.Classifiers.Len()) {
			broken(schema.TableClassifierSetValues, row.ID, "classifier_id %d does not resolve", row.ClassifierID)
			continue
		}
		value, ok := ds.ClassifierValues.Get(row.ClassifierValueID)
		if !ok {
			broken(schema.TableClassifierSetValues, row.ID, "classifier_value_id %d does not resolve", row.ClassifierValueID)
		} else if value.ClassifierID != row.ClassifierID {
			broken(schema.TableClassifierSetValues, row.ID,
				"classifier value %q belongs to classifier %d, not %d", value.Value, value.ClassifierID, row.ClassifierID)
		}
	}

	for _, row := range ds.Inventory.Rows() {
		checkDims(schema.TableInventory, row.ID, row.Dims)
		if !resolves(row.HistoricDisturbanceTypeID, ds.DisturbanceTypes.Len()) {
			broken(schema.TableInventory, row.ID, "historic disturbance type %d does not resolve", *row.HistoricDisturbanceTypeID)
		}
		if !resolves(row.LastPassDisturbanceTypeID, ds.DisturbanceTypes.Len()) {
			broken(schema.TableInventory, row.ID, "last-pass disturbance type %d does not resolve", *row.LastPassDisturbanceTypeID)
		}
	}

	for _, row := range ds.DisturbanceEvents.Rows() {
		checkDims(schema.TableDisturbanceEvents, row.ID, row.Dims)
		if !resolves(row.DisturbanceTypeID, ds.DisturbanceTypes.Len()) {
			broken(schema.TableDisturbanceEvents, row.ID, "disturbance_type_id %d does not resolve", *row.DisturbanceTypeID)
		}
		if !resolves(row.EligibilityID, ds.Eligibilities.Len()) {
			broken(schema.TableDisturbanceEvents, row.ID, "eligibility id %d does not resolve", *row.EligibilityID)
		}
	}

	for _, row := range ds.MerchVolumes.Rows() {
		checkDims(schema.TableMerchVolumes, row.ID, row.Dims)
	}
	for _, row := range ds.MerchVolumeComponents.Rows() {
		if row.MerchVolumeID < 1 || row.MerchVolumeID > int64(ds.MerchVolumes.Len()) {
			broken(schema.TableMerchVolumeComponents, row.ID, "merch_volume_id %d does not resolve", row.MerchVolumeID)
		}
		if row.SpeciesID < 1 || row.SpeciesID > int64(ds.Species.Len()) {
			broken(schema.TableMerchVolumeComponents, row.ID, "species_id %d does not resolve", row.SpeciesID)
		}
	}

	for _, row := range ds.DisturbanceRules.Rows() {
		if row.RuleTypeID < 1 || row.RuleTypeID > int64(ds.DisturbanceRuleTypes.Len()) {
			broken(schema.TableDisturbanceRules, row.ID, "rule_type_id %d does not resolve", row.RuleTypeID)
		}
		if row.TrackingTypeID < 1 || row.TrackingTypeID > int64(ds.DisturbanceRuleTrackingTypes.Len()) {
			broken(schema.TableDisturbanceRules, row.ID, "tracking_type_id %d does not resolve", row.TrackingTypeID)
		}
		if row.SPUID < 1 || row.SPUID > int64(ds.SpatialUnits.Len()) {
			broken(schema.TableDisturbanceRules, row.ID, "spuid %d does not resolve", row.SPUID)
		}
	}

	return issues
}
