package convert

import (
	"fmt"

	"github.com/silvics/cbmconv/internal/events"
	"github.com/silvics/cbmconv/internal/nfcmars"
	"github.com/silvics/cbmconv/internal/schema"
	"github.com/silvics/cbmconv/internal/source"
)

// normalized is the outcome of raw-to-canonical normalization: the dataset
// with every id-carrying table populated, plus the derived inputs the later
// pipeline stages consume.
type normalized struct {
	ds             *schema.Dataset
	relational     []events.RelationalRow
	eligCandidates []events.EligibilityCandidate
	framework      map[int64]int64 // canonical spuid -> pspuid
	memberships    []nfcmars.Membership
	spuIDs         map[int64]int64 // source spuid -> canonical spuid
}

// normalizer maps source-database ids to canonical surrogate ids. Surrogates
// are assigned in source row order, so normalization is deterministic.
type normalizer struct {
	rep *schema.Report

	classifierIDs      map[int64]int64
	classifierValueIDs map[int64]int64
	classifierSetIDs   map[int64]int64
	adminIDs           map[int64]int64
	ecoIDs             map[int64]int64
	spuIDs             map[int64]int64
	speciesIDs         map[int64]int64
	disturbanceTypes   map[int64]int64  // source id -> canonical id
	typeNames          map[int64]string // source id -> name
	eligibilityIDs     map[int64]int64
	ruleTypeIDs        map[int64]int64
	trackingTypeIDs    map[int64]int64
	defaultSPUBySPU    map[int64]*int64 // canonical spuid -> default spuid
}

func normalize(p *source.ProjectData, rep *schema.Report) *normalized {
	n := &normalizer{
		rep:                rep,
		classifierIDs:      make(map[int64]int64),
		classifierValueIDs: make(map[int64]int64),
		classifierSetIDs:   make(map[int64]int64),
		adminIDs:           make(map[int64]int64),
		ecoIDs:             make(map[int64]int64),
		spuIDs:             make(map[int64]int64),
		speciesIDs:         make(map[int64]int64),
		disturbanceTypes:   make(map[int64]int64),
		typeNames:          make(map[int64]string),
		eligibilityIDs:     make(map[int64]int64),
		ruleTypeIDs:        make(map[int64]int64),
		trackingTypeIDs:    make(map[int64]int64),
		defaultSPUBySPU:    make(map[int64]*int64),
	}

	out := &normalized{ds: schema.NewDataset()}
	ds := out.ds

	n.classifiers(ds, p)
	n.metadata(ds, p)
	n.eligibilities(ds, p)
	n.inventory(ds, p)
	n.merchVolumes(ds, p)
	n.rules(ds, p)

	out.relational = n.relationalEvents(p)
	out.eligCandidates = n.eligibilityCandidates(p)
	out.framework, out.memberships = n.nfcmarsInputs(p)
	out.spuIDs = n.spuIDs
	return out
}

// remapExtract translates the source spatial unit ids of flat extract rows
// to canonical surrogates. Default-parameters spatial ids pass through
// unchanged; an unknown project spatial id is reported and nulled.
func (o *normalized) remapExtract(rows []events.ExtractRow, rep *schema.Report) []events.ExtractRow {
	out := make([]events.ExtractRow, len(rows))
	for i, row := range rows {
		if row.SPUID != nil {
			if id, ok := o.spuIDs[*row.SPUID]; ok {
				row.SPUID = &id
			} else {
				rep.Issue(schema.SeverityError, schema.CategoryUnresolvedReference,
					schema.TableDisturbanceEvents, 0,
					fmt.Sprintf("extract row references unknown spatial unit %d", *row.SPUID))
				row.SPUID = nil
			}
		}
		out[i] = row
	}
	return out
}

// unresolved reports a source row referencing an id absent from its lookup
// table. Normalization keeps going; nullable references become nil and rows
// missing a mandatory reference are dropped.
func (n *normalizer) unresolved(table string, format string, args ...any) {
	n.rep.Issue(schema.SeverityError, schema.CategoryUnresolvedReference,
		table, 0, fmt.Sprintf(format, args...))
}

// remap translates an optional source reference through an id map.
func (n *normalizer) remap(ref *int64, ids map[int64]int64, table, what string) *int64 {
	if ref == nil {
		return nil
	}
	id, ok := ids[*ref]
	if !ok {
		n.unresolved(table, "%s %d not found in project metadata", what, *ref)
		return nil
	}
	return &id
}

func (n *normalizer) classifiers(ds *schema.Dataset, p *source.ProjectData) {
	for _, r := range p.Classifiers {
		n.classifierIDs[r.ID] = ds.Classifiers.Append(schema.Classifier{Name: r.Name})
	}
	for _, r := range p.ClassifierValues {
		cid, ok := n.classifierIDs[r.ClassifierID]
		if !ok {
			n.unresolved(schema.TableClassifierValues, "classifier %d not found in project metadata", r.ClassifierID)
			continue
		}
		n.classifierValueIDs[r.ID] = ds.ClassifierValues.Append(schema.ClassifierValue{
			ClassifierID: cid,
			Value:        r.Value,
			Description:  r.Description,
		})
	}
	for _, r := range p.ClassifierSets {
		n.classifierSetIDs[r.ID] = ds.ClassifierSets.Append(schema.ClassifierSet{Name: r.Name})
	}
	for _, r := range p.ClassifierSetValues {
		setID, ok := n.classifierSetIDs[r.SetID]
		if !ok {
			n.unresolved(schema.TableClassifierSetValues, "classifier set %d not found in project metadata", r.SetID)
			continue
		}
		cid, ok := n.classifierIDs[r.ClassifierID]
		if !ok {
			n.unresolved(schema.TableClassifierSetValues, "classifier %d not found in project metadata", r.ClassifierID)
			continue
		}
		vid, ok := n.classifierValueIDs[r.ValueID]
		if !ok {
			n.unresolved(schema.TableClassifierSetValues, "classifier value %d not found in project metadata", r.ValueID)
			continue
		}
		ds.ClassifierSetValues.Append(schema.ClassifierSetValue{
			ClassifierSetID:   setID,
			ClassifierID:      cid,
			ClassifierValueID: vid,
		})
	}
}

func (n *normalizer) metadata(ds *schema.Dataset, p *source.ProjectData) {
	for _, r := range p.AdminBoundaries {
		n.adminIDs[r.ID] = ds.AdminBoundaries.Append(schema.AdminBoundary{SourceID: r.ID, Name: r.Name})
	}
	for _, r := range p.EcoBoundaries {
		n.ecoIDs[r.ID] = ds.EcoBoundaries.Append(schema.EcoBoundary{SourceID: r.ID, Name: r.Name})
	}
	for _, r := range p.SpatialUnits {
		adminID, ok := n.adminIDs[r.AdminBoundaryID]
		if !ok {
			n.unresolved(schema.TableSpatialUnits, "admin boundary %d not found in project metadata", r.AdminBoundaryID)
			continue
		}
		ecoID, ok := n.ecoIDs[r.EcoBoundaryID]
		if !ok {
			n.unresolved(schema.TableSpatialUnits, "eco boundary %d not found in project metadata", r.EcoBoundaryID)
			continue
		}
		id := ds.SpatialUnits.Append(schema.SpatialUnit{
			SourceID:        r.ID,
			AdminBoundaryID: adminID,
			EcoBoundaryID:   ecoID,
		})
		n.spuIDs[r.ID] = id
		n.defaultSPUBySPU[id] = r.DefaultSPUID
	}
	for _, r := range p.Species {
		n.speciesIDs[r.ID] = ds.Species.Append(schema.Species{
			SourceID:   r.ID,
			Name:       r.Name,
			Genus:      r.Genus,
			ForestType: r.ForestType,
		})
	}
	for _, r := range p.DisturbanceTypes {
		n.disturbanceTypes[r.ID] = ds.DisturbanceTypes.Append(schema.DisturbanceType{
			SourceID:    r.ID,
			Name:        r.Name,
			Description: r.Description,
		})
		n.typeNames[r.ID] = r.Name
	}
}

func (n *normalizer) eligibilities(ds *schema.Dataset, p *source.ProjectData) {
	for _, r := range p.Eligibilities {
		n.eligibilityIDs[r.ID] = ds.Eligibilities.Append(schema.DisturbanceEligibility{
			Name:                  r.Name,
			PoolFilterExpression:  r.PoolFilter,
			StateFilterExpression: r.StateFilter,
		})
	}
}

// dims builds the dimension columns expressible by the relational project
// format: spuid, its default-parameters counterpart, and the classifier set.
func (n *normalizer) dims(table string, spuID, setID *int64) schema.Dimensions {
	d := schema.Dimensions{
		SPUID:           n.remap(spuID, n.spuIDs, table, "spatial unit"),
		ClassifierSetID: n.remap(setID, n.classifierSetIDs, table, "classifier set"),
	}
	if d.SPUID != nil {
		d.DefaultSPUID = n.defaultSPUBySPU[*d.SPUID]
	}
	return d
}

func (n *normalizer) inventory(ds *schema.Dataset, p *source.ProjectData) {
	for _, r := range p.Inventory {
		setID := r.ClassifierSetID
		ds.Inventory.Append(schema.Inventory{
			Dims:                      n.dims(schema.TableInventory, r.SPUID, &setID),
			Age:                       r.Age,
			Area:                      r.Area,
			Delay:                     r.Delay,
			Landclass:                 r.Landclass,
			HistoricDisturbanceTypeID: n.remap(r.HistoricDisturbanceTypeID, n.disturbanceTypes, schema.TableInventory, "disturbance type"),
			LastPassDisturbanceTypeID: n.remap(r.LastPassDisturbanceTypeID, n.disturbanceTypes, schema.TableInventory, "disturbance type"),
		})
	}
}

func (n *normalizer) merchVolumes(ds *schema.Dataset, p *source.ProjectData) {
	merchIDs := make(map[int64]int64, len(p.MerchVolumes))
	for _, r := range p.MerchVolumes {
		merchIDs[r.ID] = ds.MerchVolumes.Append(schema.MerchVolume{
			Dims: n.dims(schema.TableMerchVolumes, r.SPUID, r.ClassifierSetID),
		})
	}
	for _, r := range p.MerchVolumeComponents {
		merchID, ok := merchIDs[r.MerchVolumeID]
		if !ok {
			n.unresolved(schema.TableMerchVolumeComponents, "merch volume %d not found in project metadata", r.MerchVolumeID)
			continue
		}
		speciesID, ok := n.speciesIDs[r.SpeciesID]
		if !ok {
			n.unresolved(schema.TableMerchVolumeComponents, "species %d not found in project metadata", r.SpeciesID)
			continue
		}
		ds.MerchVolumeComponents.Append(schema.MerchVolumeComponent{
			MerchVolumeID: merchID,
			SpeciesID:     speciesID,
			Age:           r.Age,
			Volume:        r.Volume,
		})
	}
}

func (n *normalizer) rules(ds *schema.Dataset, p *source.ProjectData) {
	for _, r := range p.RuleTypes {
		n.ruleTypeIDs[r.ID] = ds.DisturbanceRuleTypes.Append(schema.DisturbanceRuleType{SourceID: r.ID, Name: r.Name})
	}
	for _, r := range p.TrackingTypes {
		n.trackingTypeIDs[r.ID] = ds.DisturbanceRuleTrackingTypes.Append(schema.DisturbanceRuleTrackingType{SourceID: r.ID, Name: r.Name})
	}
	for _, r := range p.DisturbanceRules {
		spuID, ok := n.spuIDs[r.SPUID]
		if !ok {
			n.unresolved(schema.TableDisturbanceRules, "spatial unit %d not found in project metadata", r.SPUID)
			continue
		}
		ruleTypeID, ok := n.ruleTypeIDs[r.RuleTypeID]
		if !ok {
			n.unresolved(schema.TableDisturbanceRules, "rule type %d not found in project metadata", r.RuleTypeID)
			continue
		}
		trackingTypeID, ok := n.trackingTypeIDs[r.TrackingTypeID]
		if !ok {
			n.unresolved(schema.TableDisturbanceRules, "tracking type %d not found in project metadata", r.TrackingTypeID)
			continue
		}
		ds.DisturbanceRules.Append(schema.DisturbanceRule{
			DisturbanceClassID: r.DisturbanceClassID,
			SPUID:              spuID,
			RuleTypeID:         ruleTypeID,
			TrackingTypeID:     trackingTypeID,
			RuleValue:          r.RuleValue,
		})
	}
}

func (n *normalizer) relationalEvents(p *source.ProjectData) []events.RelationalRow {
	rows := make([]events.RelationalRow, 0, len(p.DisturbanceEvents))
	for _, r := range p.DisturbanceEvents {
		row := events.RelationalRow{
			Dims:            n.dims(schema.TableDisturbanceEvents, r.SPUID, r.ClassifierSetID),
			EligibilityID:   n.remap(r.EligibilityID, n.eligibilityIDs, schema.TableDisturbanceEvents, "eligibility"),
			Efficiency:      r.Efficiency,
			SortType:        r.SortType,
			TargetType:      r.TargetType,
			TargetMagnitude: r.TargetMagnitude,
			Timestep:        r.Timestep,
		}
		if r.DisturbanceTypeID != nil {
			if name, ok := n.typeNames[*r.DisturbanceTypeID]; ok {
				row.DisturbanceType = name
			} else {
				// An unknown name cannot resolve downstream; render the raw
				// id so the reconciler's issue names the culprit.
				row.DisturbanceType = fmt.Sprintf("type#%d", *r.DisturbanceTypeID)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (n *normalizer) eligibilityCandidates(p *source.ProjectData) []events.EligibilityCandidate {
	var out []events.EligibilityCandidate
	for _, r := range p.EligibilityAssignments {
		id, ok := n.eligibilityIDs[r.EligibilityID]
		if !ok {
			n.unresolved(schema.TableEligibilities, "eligibility %d not found in project metadata", r.EligibilityID)
			continue
		}
		out = append(out, events.EligibilityCandidate{
			Dims:          n.dims(schema.TableEligibilities, r.SPUID, r.ClassifierSetID),
			EligibilityID: id,
		})
	}
	return out
}

func (n *normalizer) nfcmarsInputs(p *source.ProjectData) (map[int64]int64, []nfcmars.Membership) {
	framework := make(map[int64]int64, len(p.SpatialFramework))
	for _, r := range p.SpatialFramework {
		spuID, ok := n.spuIDs[r.SPUID]
		if !ok {
			n.unresolved(schema.TableSpatialUnits, "spatial framework references unknown spatial unit %d", r.SPUID)
			continue
		}
		framework[spuID] = r.PSPUID
	}

	var memberships []nfcmars.Membership
	for _, r := range p.ClassMemberships {
		spuID, ok := n.spuIDs[r.SPUID]
		if !ok {
			n.unresolved(schema.TableSpatialUnits, "class membership references unknown spatial unit %d", r.SPUID)
			continue
		}
		memberships = append(memberships, nfcmars.Membership{
			SPUID:        spuID,
			Class:        nfcmars.DisturbanceClass(r.Class),
			MembershipID: r.MembershipID,
		})
	}
	return framework, memberships
}
