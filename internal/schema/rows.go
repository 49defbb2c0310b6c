package schema

// Classifier is a project-level categorical dimension (species group,
// management unit, and so on).
type Classifier struct {
	ID   int64
	Name string
}

// ClassifierValue is one allowed value of a classifier.
type ClassifierValue struct {
	ID           int64
	ClassifierID int64
	Value        string
	Description  string
}

// ClassifierSet is an ordered tuple of one value per classifier, referenced
// by id from inventory, disturbance events and merch volume groups.
type ClassifierSet struct {
	ID   int64
	Name string
}

// ClassifierSetValue binds one classifier value into a classifier set.
// For a well-formed set there is exactly one row per classifier.
type ClassifierSetValue struct {
	ID                int64
	ClassifierSetID   int64
	ClassifierID      int64
	ClassifierValueID int64
}

// AdminBoundary is a flat administrative-boundary reference row. SourceID
// preserves the source database identity for diffing; ID is the surrogate
// key used everywhere else.
type AdminBoundary struct {
	ID       int64
	SourceID int64
	Name     string
}

// EcoBoundary is a flat ecological-boundary reference row.
type EcoBoundary struct {
	ID       int64
	SourceID int64
	Name     string
}

// SpatialUnit stratifies the project spatially as an (admin, eco) boundary
// pair.
type SpatialUnit struct {
	ID              int64
	SourceID        int64
	AdminBoundaryID int64
	EcoBoundaryID   int64
}

// Species is a species or species-group reference row.
type Species struct {
	ID         int64
	SourceID   int64
	Name       string
	Genus      string
	ForestType string
}

// DisturbanceType is a disturbance-type reference row.
type DisturbanceType struct {
	ID          int64
	SourceID    int64
	Name        string
	Description string
}

// Inventory is one stand/polygon record. All dimension columns except the
// classifier set may be nil; which ones a project populates is a
// cross-row consistency concern checked by the validator, not enforced
// here.
type Inventory struct {
	ID                        int64
	Dims                      Dimensions
	Age                       int64
	Area                      float64
	Delay                     int64
	Landclass                 int64
	HistoricDisturbanceTypeID *int64
	LastPassDisturbanceTypeID *int64
}

// DisturbanceEvent is one scheduled disturbance. Its dimension columns are
// nullable filters: nil matches any stand, non-nil must equal the stand's
// value.
type DisturbanceEvent struct {
	ID                int64
	Dims              Dimensions
	EligibilityID     *int64
	Efficiency        float64
	SortType          int64
	TargetType        string
	TargetMagnitude   float64
	DisturbanceTypeID *int64
	Timestep          int64
}

// Disturbance event target type codes.
const (
	TargetArea       = "A"
	TargetMerchVol   = "M"
	TargetProportion = "P"
)

// DisturbanceEligibility is a named pair of filter expressions over
// simulation variables. The expressions are opaque beyond syntactic
// validation; evaluating them against live carbon-pool state is a runner
// concern.
type DisturbanceEligibility struct {
	ID                    int64
	Name                  string
	PoolFilterExpression  string
	StateFilterExpression string
}

// MerchVolume is one merchantable-volume group: the dimension filters that
// select which stands it applies to, with its curve points stored as
// MerchVolumeComponent rows.
type MerchVolume struct {
	ID   int64
	Dims Dimensions
}

// MerchVolumeComponent is one (species, age, volume) growth-curve point.
// Within one MerchVolume group, (SpeciesID, Age) pairs are unique.
type MerchVolumeComponent struct {
	ID            int64
	MerchVolumeID int64
	SpeciesID     int64
	Age           int64
	Volume        float64
}

// DisturbanceRule is a per-disturbance-class behavioral parameter keyed by
// (disturbance class, spatial unit). RuleValue's unit is determined by the
// rule type.
type DisturbanceRule struct {
	ID                 int64
	DisturbanceClassID int64
	SPUID              int64
	RuleTypeID         int64
	TrackingTypeID     int64
	RuleValue          float64
}

// DisturbanceRuleType names the unit/meaning of a rule value.
type DisturbanceRuleType struct {
	ID       int64
	SourceID int64
	Name     string
}

// DisturbanceRuleTrackingType names how a rule's target is tracked.
type DisturbanceRuleTrackingType struct {
	ID       int64
	SourceID int64
	Name     string
}

// YieldAssignment records the specificity matcher's winning merch volume
// group for one inventory row, so downstream runners need not re-run the
// matcher. Ambiguous is set when the winning rank held more than one
// candidate with an identical dimension tuple; the first-constructed row is
// still recorded.
type YieldAssignment struct {
	ID            int64
	InventoryID   int64
	MerchVolumeID int64
	Specificity   int
	Ambiguous     bool
}

// DifferenceKind classifies a parameter difference row.
type DifferenceKind string

const (
	DiffAdded   DifferenceKind = "added"   // key present only in the project
	DiffRemoved DifferenceKind = "removed" // key present only in the reference
	DiffChanged DifferenceKind = "changed" // key on both sides, field differs
)

// ParameterDifference is one detected discrepancy between a project table
// and the default-parameters reference.
type ParameterDifference struct {
	ID           int64
	Table        string
	Key          string
	Field        string
	ProjectValue string
	DefaultValue string
	Kind         DifferenceKind
}

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Validation issue categories.
const (
	CategoryUnresolvedReference    = "unresolved reference"
	CategoryRange                  = "range"
	CategoryUnmatchedYield         = "unmatched yield"
	CategoryAmbiguousMatch         = "ambiguous match"
	CategoryUniqueness             = "uniqueness"
	CategoryCoverage               = "coverage"
	CategoryDimensionConsistency   = "dimension consistency"
	CategoryEligibilitySyntax      = "eligibility syntax"
	CategoryMissingReferenceTable  = "missing reference table"
)

// ValidationIssue is one detected structural or semantic problem. RowID is
// 0 for table-level issues.
type ValidationIssue struct {
	ID       int64
	Severity Severity
	Category string
	Table    string
	RowID    int64
	Message  string
}
