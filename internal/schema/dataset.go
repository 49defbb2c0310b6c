package schema

// Dataset is the full canonical table set produced by one conversion run.
// Tables are populated in strict dependency order; each is owned by exactly
// one producing component and read-only afterwards.
type Dataset struct {
	Classifiers         *Table[Classifier]
	ClassifierValues    *Table[ClassifierValue]
	ClassifierSets      *Table[ClassifierSet]
	ClassifierSetValues *Table[ClassifierSetValue]

	AdminBoundaries  *Table[AdminBoundary]
	EcoBoundaries    *Table[EcoBoundary]
	SpatialUnits     *Table[SpatialUnit]
	Species          *Table[Species]
	DisturbanceTypes *Table[DisturbanceType]

	Inventory         *Table[Inventory]
	DisturbanceEvents *Table[DisturbanceEvent]
	Eligibilities     *Table[DisturbanceEligibility]

	MerchVolumes          *Table[MerchVolume]
	MerchVolumeComponents *Table[MerchVolumeComponent]

	DisturbanceRules             *Table[DisturbanceRule]
	DisturbanceRuleTypes         *Table[DisturbanceRuleType]
	DisturbanceRuleTrackingTypes *Table[DisturbanceRuleTrackingType]

	YieldAssignments *Table[YieldAssignment]
}

// Canonical table names. These appear in validation issues, parameter
// differences and the export schema.
const (
	TableClassifiers         = "classifier"
	TableClassifierValues    = "classifier_value"
	TableClassifierSets      = "classifier_set"
	TableClassifierSetValues = "classifier_set_value"

	TableAdminBoundaries  = "admin_boundary"
	TableEcoBoundaries    = "eco_boundary"
	TableSpatialUnits     = "spatial_unit"
	TableSpecies          = "species"
	TableDisturbanceTypes = "disturbance_type"

	TableInventory         = "inventory"
	TableDisturbanceEvents = "disturbance_event"
	TableEligibilities     = "disturbance_event_eligibility"

	TableMerchVolumes          = "merch_volume"
	TableMerchVolumeComponents = "merch_volume_component"

	TableDisturbanceRules             = "disturbance_rules"
	TableDisturbanceRuleTypes         = "disturbance_rule_type"
	TableDisturbanceRuleTrackingTypes = "disturbance_rule_tracking_type"

	TableYieldAssignments = "yield_assignment"

	TableParameterDifferences = "parameter_difference"
	TableValidationIssues     = "validation_issue"
)

// NewDataset creates an empty canonical table set.
func NewDataset() *Dataset {
	return &Dataset{
		Classifiers:         NewTable(TableClassifiers, func(r *Classifier, id int64) { r.ID = id }),
		ClassifierValues:    NewTable(TableClassifierValues, func(r *ClassifierValue, id int64) { r.ID = id }),
		ClassifierSets:      NewTable(TableClassifierSets, func(r *ClassifierSet, id int64) { r.ID = id }),
		ClassifierSetValues: NewTable(TableClassifierSetValues, func(r *ClassifierSetValue, id int64) { r.ID = id }),

		AdminBoundaries:  NewTable(TableAdminBoundaries, func(r *AdminBoundary, id int64) { r.ID = id }),
		EcoBoundaries:    NewTable(TableEcoBoundaries, func(r *EcoBoundary, id int64) { r.ID = id }),
		SpatialUnits:     NewTable(TableSpatialUnits, func(r *SpatialUnit, id int64) { r.ID = id }),
		Species:          NewTable(TableSpecies, func(r *Species, id int64) { r.ID = id }),
		DisturbanceTypes: NewTable(TableDisturbanceTypes, func(r *DisturbanceType, id int64) { r.ID = id }),

		Inventory:         NewTable(TableInventory, func(r *Inventory, id int64) { r.ID = id }),
		DisturbanceEvents: NewTable(TableDisturbanceEvents, func(r *DisturbanceEvent, id int64) { r.ID = id }),
		Eligibilities:     NewTable(TableEligibilities, func(r *DisturbanceEligibility, id int64) { r.ID = id }),

		MerchVolumes:          NewTable(TableMerchVolumes, func(r *MerchVolume, id int64) { r.ID = id }),
		MerchVolumeComponents: NewTable(TableMerchVolumeComponents, func(r *MerchVolumeComponent, id int64) { r.ID = id }),

		DisturbanceRules:             NewTable(TableDisturbanceRules, func(r *DisturbanceRule, id int64) { r.ID = id }),
		DisturbanceRuleTypes:         NewTable(TableDisturbanceRuleTypes, func(r *DisturbanceRuleType, id int64) { r.ID = id }),
		DisturbanceRuleTrackingTypes: NewTable(TableDisturbanceRuleTrackingTypes, func(r *DisturbanceRuleTrackingType, id int64) { r.ID = id }),

		YieldAssignments: NewTable(TableYieldAssignments, func(r *YieldAssignment, id int64) { r.ID = id }),
	}
}

// Reference is the typed default-parameters table set, keyed by stable
// natural identity (names/codes) rather than surrogate ids. Loaded records
// which tables the adapter actually found; the parameter reconciler skips
// absent tables with a validation issue instead of failing.
type Reference struct {
	AdminBoundaries              []AdminBoundary
	EcoBoundaries                []EcoBoundary
	SpatialUnits                 []SpatialUnit
	Species                      []Species
	DisturbanceTypes             []DisturbanceType
	DisturbanceRuleTypes         []DisturbanceRuleType
	DisturbanceRuleTrackingTypes []DisturbanceRuleTrackingType

	Loaded map[string]bool
}

// Has reports whether the named table was present in the reference source.
func (r *Reference) Has(table string) bool {
	if r == nil || r.Loaded == nil {
		return false
	}
	return r.Loaded[table]
}
