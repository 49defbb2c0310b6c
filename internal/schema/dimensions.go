package schema

// DimensionCount is the number of matching-dimension columns.
const DimensionCount = 8

// DimensionNames lists the dimension columns in their fixed comparison
// order. This order is authoritative: the specificity matcher's tie-break
// compares dimension tuples column by column in exactly this sequence.
var DimensionNames = [DimensionCount]string{
	"default_spuid",
	"pspuid",
	"spuid",
	"fire_spugroup_id",
	"harvest_spugroup_id",
	"deforestation_spugroup_id",
	"insect_spugroup_id",
	"classifier_set_id",
}

// Dimensions carries the nullable matching-dimension columns shared by
// inventory, disturbance events, eligibility candidates and merch volume
// groups.
//
// A nil column means "unset". On a candidate row unset means wildcard (any
// context value matches); on a context row unset means the value is unknown
// and can never satisfy a non-nil candidate filter. Pointers are used
// instead of zero sentinels because 0 is a legitimate legacy id.
type Dimensions struct {
	DefaultSPUID            *int64
	PSPUID                  *int64
	SPUID                   *int64
	FireSpugroupID          *int64
	HarvestSpugroupID       *int64
	DeforestationSpugroupID *int64
	InsectSpugroupID        *int64
	ClassifierSetID         *int64
}

// Columns returns the dimension values in fixed comparison order.
func (d Dimensions) Columns() [DimensionCount]*int64 {
	return [DimensionCount]*int64{
		d.DefaultSPUID,
		d.PSPUID,
		d.SPUID,
		d.FireSpugroupID,
		d.HarvestSpugroupID,
		d.DeforestationSpugroupID,
		d.InsectSpugroupID,
		d.ClassifierSetID,
	}
}

// Specificity returns the count of non-nil dimension columns.
func (d Dimensions) Specificity() int {
	n := 0
	for _, c := range d.Columns() {
		if c != nil {
			n++
		}
	}
	return n
}

// PopulatedMask returns a bitmask of which dimension columns are set, in
// fixed column order (bit 0 = default_spuid). Used by the cross-row
// dimension consistency check.
func (d Dimensions) PopulatedMask() uint8 {
	var mask uint8
	for i, c := range d.Columns() {
		if c != nil {
			mask |= 1 << i
		}
	}
	return mask
}

// ID returns a pointer to an int64, for building dimension literals.
func ID(v int64) *int64 { return &v }
