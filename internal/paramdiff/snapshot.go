package paramdiff

import (
	"github.com/silvics/cbmconv/internal/schema"
)

// ProjectSnapshot builds the comparable form of the project-derived
// canonical metadata tables.
func ProjectSnapshot(ds *schema.Dataset) *Snapshot {
	admins := make(map[int64]string, ds.AdminBoundaries.Len())
	for _, b := range ds.AdminBoundaries.Rows() {
		admins[b.ID] = b.Name
	}
	ecos := make(map[int64]string, ds.EcoBoundaries.Len())
	for _, b := range ds.EcoBoundaries.Rows() {
		ecos[b.ID] = b.Name
	}

	snap := &Snapshot{}
	snap.Tables = append(snap.Tables,
		adminBoundaryTable(ds.AdminBoundaries.Rows()),
		ecoBoundaryTable(ds.EcoBoundaries.Rows()),
		spatialUnitTable(ds.SpatialUnits.Rows(), admins, ecos),
		speciesTable(ds.Species.Rows()),
		disturbanceTypeTable(ds.DisturbanceTypes.Rows()),
		ruleTypeTable(ds.DisturbanceRuleTypes.Rows()),
		trackingTypeTable(ds.DisturbanceRuleTrackingTypes.Rows()),
	)
	return snap
}

// ReferenceSnapshot builds the comparable form of the default-parameters
// reference, including only the tables the adapter actually loaded.
func ReferenceSnapshot(ref *schema.Reference) *Snapshot {
	admins := make(map[int64]string, len(ref.AdminBoundaries))
	for _, b := range ref.AdminBoundaries {
		admins[b.ID] = b.Name
	}
	ecos := make(map[int64]string, len(ref.EcoBoundaries))
	for _, b := range ref.EcoBoundaries {
		ecos[b.ID] = b.Name
	}

	snap := &Snapshot{}
	add := func(name string, table TableSnapshot) {
		if ref.Has(name) {
			snap.Tables = append(snap.Tables, table)
		}
	}
	add(schema.TableAdminBoundaries, adminBoundaryTable(ref.AdminBoundaries))
	add(schema.TableEcoBoundaries, ecoBoundaryTable(ref.EcoBoundaries))
	add(schema.TableSpatialUnits, spatialUnitTable(ref.SpatialUnits, admins, ecos))
	add(schema.TableSpecies, speciesTable(ref.Species))
	add(schema.TableDisturbanceTypes, disturbanceTypeTable(ref.DisturbanceTypes))
	add(schema.TableDisturbanceRuleTypes, ruleTypeTable(ref.DisturbanceRuleTypes))
	add(schema.TableDisturbanceRuleTrackingTypes, trackingTypeTable(ref.DisturbanceRuleTrackingTypes))
	return snap
}

func adminBoundaryTable(rows []schema.AdminBoundary) TableSnapshot {
	t := TableSnapshot{Name: schema.TableAdminBoundaries}
	for _, r := range rows {
		t.Entries = append(t.Entries, Entry{
			Key:    Key(r.Name),
			Fields: []Field{{Name: "source_id", Value: Int(r.SourceID)}},
		})
	}
	return t
}

func ecoBoundaryTable(rows []schema.EcoBoundary) TableSnapshot {
	t := TableSnapshot{Name: schema.TableEcoBoundaries}
	for _, r := range rows {
		t.Entries = append(t.Entries, Entry{
			Key:    Key(r.Name),
			Fields: []Field{{Name: "source_id", Value: Int(r.SourceID)}},
		})
	}
	return t
}

func spatialUnitTable(rows []schema.SpatialUnit, admins, ecos map[int64]string) TableSnapshot {
	t := TableSnapshot{Name: schema.TableSpatialUnits}
	for _, r := range rows {
		t.Entries = append(t.Entries, Entry{
			Key:    Key(admins[r.AdminBoundaryID], ecos[r.EcoBoundaryID]),
			Fields: []Field{{Name: "source_id", Value: Int(r.SourceID)}},
		})
	}
	return t
}

func speciesTable(rows []schema.Species) TableSnapshot {
	t := TableSnapshot{Name: schema.TableSpecies}
	for _, r := range rows {
		t.Entries = append(t.Entries, Entry{
			Key: Key(r.Name),
			Fields: []Field{
				{Name: "source_id", Value: Int(r.SourceID)},
				{Name: "genus", Value: Text(r.Genus)},
				{Name: "forest_type", Value: Text(r.ForestType)},
			},
		})
	}
	return t
}

func disturbanceTypeTable(rows []schema.DisturbanceType) TableSnapshot {
	t := TableSnapshot{Name: schema.TableDisturbanceTypes}
	for _, r := range rows {
		t.Entries = append(t.Entries, Entry{
			Key: Key(r.Name),
			Fields: []Field{
				{Name: "source_id", Value: Int(r.SourceID)},
				{Name: "description", Value: Text(r.Description)},
			},
		})
	}
	return t
}

func ruleTypeTable(rows []schema.DisturbanceRuleType) TableSnapshot {
	t := TableSnapshot{Name: schema.TableDisturbanceRuleTypes}
	for _, r := range rows {
		t.Entries = append(t.Entries, Entry{
			Key:    Key(r.Name),
			Fields: []Field{{Name: "source_id", Value: Int(r.SourceID)}},
		})
	}
	return t
}

func trackingTypeTable(rows []schema.DisturbanceRuleTrackingType) TableSnapshot {
	t := TableSnapshot{Name: schema.TableDisturbanceRuleTrackingTypes}
	for _, r := range rows {
		t.Entries = append(t.Entries, Entry{
			Key:    Key(r.Name),
			Fields: []Field{{Name: "source_id", Value: Int(r.SourceID)}},
		})
	}
	return t
}
