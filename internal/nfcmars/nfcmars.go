// Package nfcmars layers the NFCMars spatial framework onto a canonical
// dataset: polygon-level spatial identifiers (pspuid) joined onto inventory
// rows, and per-disturbance-class spu-group ids derived from the project's
// class-membership tables.
//
// Both enrichments feed the specificity matcher: they populate dimension
// columns that are otherwise null, letting disturbance events, eligibilities
// and merch volume groups filter on them.
package nfcmars

import (
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/silvics/cbmconv/internal/schema"
)

// DisturbanceClass names one of the four spu-grouped disturbance classes.
type DisturbanceClass string

const (
	ClassFire          DisturbanceClass = "fire"
	ClassHarvest       DisturbanceClass = "harvest"
	ClassDeforestation DisturbanceClass = "deforestation"
	ClassInsect        DisturbanceClass = "insect"
)

// classOrder fixes the derivation order so group ids are reproducible.
var classOrder = [4]DisturbanceClass{ClassFire, ClassHarvest, ClassDeforestation, ClassInsect}

// Membership is one row of a project class-membership table: spatial unit
// SPUID belongs to membership category MembershipID for disturbance class
// Class. An SPU may carry any number of memberships per class.
type Membership struct {
	SPUID        int64
	Class        DisturbanceClass
	MembershipID int64
}

// Extension carries the NFCMars inputs for one conversion run.
type Extension struct {
	// PSPUBySPU maps canonical spatial unit ids to the polygon-level
	// identifier of the NFCMars spatial framework. SPUs absent from the map
	// simply keep a null pspuid.
	PSPUBySPU map[int64]int64

	// Memberships are the project's class-membership rows.
	Memberships []Membership
}

// Apply joins pspuid onto inventory rows and populates the four
// *_spugroup_id dimension columns on every table the specificity matcher
// reads. Membership rows referencing unknown spatial units or disturbance
// classes are reported and skipped.
func (x *Extension) Apply(ds *schema.Dataset, rep *schema.Report) {
	if x == nil {
		return
	}

	for _, row := range ds.Inventory.Rows() {
		if row.Dims.SPUID == nil {
			continue
		}
		pspu, ok := x.PSPUBySPU[*row.Dims.SPUID]
		if !ok {
			continue
		}
		ds.Inventory.Mutate(row.ID, func(r *schema.Inventory) {
			r.Dims.PSPUID = schema.ID(pspu)
		})
	}

	groups := x.deriveGroups(ds, rep)
	if len(groups) == 0 {
		return
	}

	for _, row := range ds.Inventory.Rows() {
		if dims, changed := withGroups(row.Dims, groups); changed {
			ds.Inventory.Mutate(row.ID, func(r *schema.Inventory) { r.Dims = dims })
		}
	}
	for _, row := range ds.DisturbanceEvents.Rows() {
		if dims, changed := withGroups(row.Dims, groups); changed {
			ds.DisturbanceEvents.Mutate(row.ID, func(r *schema.DisturbanceEvent) { r.Dims = dims })
		}
	}
	for _, row := range ds.MerchVolumes.Rows() {
		if dims, changed := withGroups(row.Dims, groups); changed {
			ds.MerchVolumes.Mutate(row.ID, func(r *schema.MerchVolume) { r.Dims = dims })
		}
	}
}

// deriveGroups partitions spatial units by their membership set, per class.
// Two SPUs with the same membership set share a group id; ids are assigned
// from 1 in ascending-SPU first-seen order, so derivation is reproducible
// regardless of membership row order.
func (x *Extension) deriveGroups(ds *schema.Dataset, rep *schema.Report) map[DisturbanceClass]map[int64]int64 {
	known := make(map[DisturbanceClass]bool, len(classOrder))
	for _, class := range classOrder {
		known[class] = true
	}

	memberSets := make(map[DisturbanceClass]map[int64]mapset.Set[int64])
	for _, m := range x.Memberships {
		if !known[m.Class] {
			rep.Issue(schema.SeverityError, schema.CategoryUnresolvedReference,
				schema.TableSpatialUnits, 0,
				fmt.Sprintf("membership row for spu %d names unknown disturbance class %q", m.SPUID, m.Class))
			continue
		}
		if _, ok := ds.SpatialUnits.Get(m.SPUID); !ok {
			rep.Issue(schema.SeverityError, schema.CategoryUnresolvedReference,
				schema.TableSpatialUnits, 0,
				fmt.Sprintf("%s membership row references unknown spu %d", m.Class, m.SPUID))
			continue
		}
		perClass := memberSets[m.Class]
		if perClass == nil {
			perClass = make(map[int64]mapset.Set[int64])
			memberSets[m.Class] = perClass
		}
		set := perClass[m.SPUID]
		if set == nil {
			set = mapset.NewSet[int64]()
			perClass[m.SPUID] = set
		}
		set.Add(m.MembershipID)
	}

	groups := make(map[DisturbanceClass]map[int64]int64, len(memberSets))
	for _, class := range classOrder {
		perClass := memberSets[class]
		if len(perClass) == 0 {
			continue
		}
		spus := make([]int64, 0, len(perClass))
		for spu := range perClass {
			spus = append(spus, spu)
		}
		sort.Slice(spus, func(i, j int) bool { return spus[i] < spus[j] })

		byMembership := make(map[string]int64)
		bySPU := make(map[int64]int64, len(spus))
		var next int64
		for _, spu := range spus {
			sig := setSignature(perClass[spu])
			gid, ok := byMembership[sig]
			if !ok {
				next++
				gid = next
				byMembership[sig] = gid
			}
			bySPU[spu] = gid
		}
		groups[class] = bySPU
	}
	return groups
}

// setSignature renders a membership set as a canonical string so equal sets
// compare equal.
func setSignature(set mapset.Set[int64]) string {
	ids := set.ToSlice()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

// withGroups fills the four spugroup columns of dims from the derived
// groups, keyed by the row's spuid. Columns already set are left alone.
func withGroups(dims schema.Dimensions, groups map[DisturbanceClass]map[int64]int64) (schema.Dimensions, bool) {
	if dims.SPUID == nil {
		return dims, false
	}
	changed := false
	assign := func(col **int64, class DisturbanceClass) {
		if *col != nil {
			return
		}
		if gid, ok := groups[class][*dims.SPUID]; ok {
			*col = schema.ID(gid)
			changed = true
		}
	}
	assign(&dims.FireSpugroupID, ClassFire)
	assign(&dims.HarvestSpugroupID, ClassHarvest)
	assign(&dims.DeforestationSpugroupID, ClassDeforestation)
	assign(&dims.InsectSpugroupID, ClassInsect)
	return dims, changed
}
