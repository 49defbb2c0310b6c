package source

import (
	"context"
	"database/sql"
	"fmt"
)

// Raw project rows. All ids are source-database ids; the orchestrator maps
// them to canonical surrogates during normalization.
type (
	// RawClassifier is one project classifier.
	RawClassifier struct {
		ID   int64
		Name string
	}

	// RawClassifierValue is one allowed value of a project classifier.
	RawClassifierValue struct {
		ID           int64
		ClassifierID int64
		Value        string
		Description  string
	}

	// RawClassifierSet is one project classifier set.
	RawClassifierSet struct {
		ID   int64
		Name string
	}

	// RawClassifierSetValue binds one value into a project classifier set.
	RawClassifierSetValue struct {
		SetID        int64
		ClassifierID int64
		ValueID      int64
	}

	// RawNamed is a flat (id, name) lookup row shared by the boundary and
	// rule lookup tables.
	RawNamed struct {
		ID   int64
		Name string
	}

	// RawSpatialUnit is one project spatial unit. DefaultSPUID links it to
	// the default-parameters stratification when the project records one.
	RawSpatialUnit struct {
		ID              int64
		AdminBoundaryID int64
		EcoBoundaryID   int64
		DefaultSPUID    *int64
	}

	// RawSpecies is one project species row.
	RawSpecies struct {
		ID         int64
		Name       string
		Genus      string
		ForestType string
	}

	// RawDisturbanceType is one project disturbance type.
	RawDisturbanceType struct {
		ID          int64
		Name        string
		Description string
	}

	// RawInventory is one stand record.
	RawInventory struct {
		SPUID                     *int64
		ClassifierSetID           int64
		Age                       int64
		Area                      float64
		Delay                     int64
		Landclass                 int64
		HistoricDisturbanceTypeID *int64
		LastPassDisturbanceTypeID *int64
	}

	// RawDisturbanceEvent is one relational event row.
	RawDisturbanceEvent struct {
		ClassifierSetID   *int64
		SPUID             *int64
		EligibilityID     *int64
		Efficiency        float64
		SortType          int64
		TargetType        string
		TargetMagnitude   float64
		DisturbanceTypeID *int64
		Timestep          int64
	}

	// RawEligibility is one named filter-expression pair.
	RawEligibility struct {
		ID          int64
		Name        string
		PoolFilter  string
		StateFilter string
	}

	// RawMerchVolume is one growth-curve group header.
	RawMerchVolume struct {
		ID              int64
		SPUID           *int64
		ClassifierSetID *int64
	}

	// RawMerchVolumeComponent is one growth-curve point.
	RawMerchVolumeComponent struct {
		MerchVolumeID int64
		SpeciesID     int64
		Age           int64
		Volume        float64
	}

	// RawRule is one per-disturbance-class behavioral parameter.
	RawRule struct {
		DisturbanceClassID int64
		SPUID              int64
		RuleTypeID         int64
		TrackingTypeID     int64
		RuleValue          float64
	}

	// RawEligibilityAssignment is one dimension-qualified eligibility
	// declaration: events matching the dimensions and carrying no explicit
	// eligibility reference receive this eligibility via the specificity
	// matcher.
	RawEligibilityAssignment struct {
		SPUID           *int64
		ClassifierSetID *int64
		EligibilityID   int64
	}

	// RawFrameworkRow maps a project spatial unit to its polygon-level
	// identifier in the NFCMars spatial framework.
	RawFrameworkRow struct {
		SPUID  int64
		PSPUID int64
	}

	// RawMembership is one class-membership row for spu-group derivation.
	RawMembership struct {
		SPUID        int64
		Class        string
		MembershipID int64
	}
)

// ProjectData is everything read from one project database.
type ProjectData struct {
	Classifiers         []RawClassifier
	ClassifierValues    []RawClassifierValue
	ClassifierSets      []RawClassifierSet
	ClassifierSetValues []RawClassifierSetValue

	AdminBoundaries  []RawNamed
	EcoBoundaries    []RawNamed
	SpatialUnits     []RawSpatialUnit
	Species          []RawSpecies
	DisturbanceTypes []RawDisturbanceType

	Inventory              []RawInventory
	DisturbanceEvents      []RawDisturbanceEvent
	Eligibilities          []RawEligibility
	EligibilityAssignments []RawEligibilityAssignment

	MerchVolumes          []RawMerchVolume
	MerchVolumeComponents []RawMerchVolumeComponent

	DisturbanceRules []RawRule
	RuleTypes        []RawNamed
	TrackingTypes    []RawNamed

	SpatialFramework []RawFrameworkRow
	ClassMemberships []RawMembership
}

// Tables every project database must carry. The event, eligibility, rule
// and framework tables are optional: which ones a run needs depends on its
// selectors, and the orchestrator enforces that.
var requiredProjectTables = []string{
	"classifier",
	"classifier_value",
	"classifier_set",
	"classifier_set_value",
	"admin_boundary",
	"eco_boundary",
	"spatial_unit",
	"species",
	"disturbance_type",
	"inventory",
	"merch_volume",
	"merch_volume_component",
}

// LoadProject reads the full project database. Required tables missing from
// the file produce a MissingTableError; optional tables that are absent
// simply load as empty.
func (d *DB) LoadProject(ctx context.Context) (*ProjectData, error) {
	for _, table := range requiredProjectTables {
		if err := d.requireTable(table); err != nil {
			return nil, err
		}
	}

	p := &ProjectData{}
	loaders := []func(context.Context, *ProjectData) error{
		d.loadClassifiers,
		d.loadMetadata,
		d.loadInventory,
		d.loadEvents,
		d.loadEligibilities,
		d.loadMerchVolumes,
		d.loadRules,
		d.loadFramework,
	}
	for _, load := range loaders {
		if err := load(ctx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (d *DB) loadClassifiers(ctx context.Context, p *ProjectData) error {
	err := d.scan(ctx, `SELECT id, name FROM classifier ORDER BY id`,
		func(rows *sql.Rows) error {
			var r RawClassifier
			if err := rows.Scan(&r.ID, &r.Name); err != nil {
				return err
			}
			p.Classifiers = append(p.Classifiers, r)
			return nil
		})
	if err != nil {
		return fmt.Errorf("load classifiers: %w", err)
	}

	err = d.scan(ctx, `SELECT id, classifier_id, value, description FROM classifier_value ORDER BY id`,
		func(rows *sql.Rows) error {
			var r RawClassifierValue
			if err := rows.Scan(&r.ID, &r.ClassifierID, &r.Value, &r.Description); err != nil {
				return err
			}
			p.ClassifierValues = append(p.ClassifierValues, r)
			return nil
		})
	if err != nil {
		return fmt.Errorf("load classifier values: %w", err)
	}

	err = d.scan(ctx, `SELECT id, name FROM classifier_set ORDER BY id`,
		func(rows *sql.Rows) error {
			var r RawClassifierSet
			if err := rows.Scan(&r.ID, &r.Name); err != nil {
				return err
			}
			p.ClassifierSets = append(p.ClassifierSets, r)
			return nil
		})
	if err != nil {
		return fmt.Errorf("load classifier sets: %w", err)
	}

	err = d.scan(ctx, `SELECT classifier_set_id, classifier_id, classifier_value_id FROM classifier_set_value ORDER BY rowid`,
		func(rows *sql.Rows) error {
			var r RawClassifierSetValue
			if err := rows.Scan(&r.SetID, &r.ClassifierID, &r.ValueID); err != nil {
				return err
			}
			p.ClassifierSetValues = append(p.ClassifierSetValues, r)
			return nil
		})
	if err != nil {
		return fmt.Errorf("load classifier set values: %w", err)
	}
	return nil
}

func (d *DB) loadMetadata(ctx context.Context, p *ProjectData) error {
	var err error
	if p.AdminBoundaries, err = d.scanNamed(ctx, "admin_boundary"); err != nil {
		return err
	}
	if p.EcoBoundaries, err = d.scanNamed(ctx, "eco_boundary"); err != nil {
		return err
	}

	err = d.scan(ctx, `SELECT id, admin_boundary_id, eco_boundary_id, default_spuid FROM spatial_unit ORDER BY id`,
		func(rows *sql.Rows) error {
			var r RawSpatialUnit
			var defaultSPU sql.NullInt64
			if err := rows.Scan(&r.ID, &r.AdminBoundaryID, &r.EcoBoundaryID, &defaultSPU); err != nil {
				return err
			}
			r.DefaultSPUID = nullID(defaultSPU)
			p.SpatialUnits = append(p.SpatialUnits, r)
			return nil
		})
	if err != nil {
		return fmt.Errorf("load spatial units: %w", err)
	}

	err = d.scan(ctx, `SELECT id, name, genus, forest_type FROM species ORDER BY id`,
		func(rows *sql.Rows) error {
			var r RawSpecies
			if err := rows.Scan(&r.ID, &r.Name, &r.Genus, &r.ForestType); err != nil {
				return err
			}
			p.Species = append(p.Species, r)
			return nil
		})
	if err != nil {
		return fmt.Errorf("load species: %w", err)
	}

	err = d.scan(ctx, `SELECT id, name, description FROM disturbance_type ORDER BY id`,
		func(rows *sql.Rows) error {
			var r RawDisturbanceType
			if err := rows.Scan(&r.ID, &r.Name, &r.Description); err != nil {
				return err
			}
			p.DisturbanceTypes = append(p.DisturbanceTypes, r)
			return nil
		})
	if err != nil {
		return fmt.Errorf("load disturbance types: %w", err)
	}
	return nil
}

func (d *DB) loadInventory(ctx context.Context, p *ProjectData) error {
	err := d.scan(ctx, `
		SELECT spuid, classifier_set_id, age, area, delay, landclass,
		       historic_disturbance_type_id, last_pass_disturbance_type_id
		FROM inventory ORDER BY rowid
	`, func(rows *sql.Rows) error {
		var r RawInventory
		var spu, historic, lastPass sql.NullInt64
		if err := rows.Scan(&spu, &r.ClassifierSetID, &r.Age, &r.Area, &r.Delay,
			&r.Landclass, &historic, &lastPass); err != nil {
			return err
		}
		r.SPUID = nullID(spu)
		r.HistoricDisturbanceTypeID = nullID(historic)
		r.LastPassDisturbanceTypeID = nullID(lastPass)
		p.Inventory = append(p.Inventory, r)
		return nil
	})
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}
	return nil
}

func (d *DB) loadEvents(ctx context.Context, p *ProjectData) error {
	ok, err := d.hasTable("disturbance_event")
	if err != nil || !ok {
		return err
	}
	err = d.scan(ctx, `
		SELECT classifier_set_id, spuid, eligibility_id, efficiency, sort_type,
		       target_type, target_magnitude, disturbance_type_id, timestep
		FROM disturbance_event ORDER BY rowid
	`, func(rows *sql.Rows) error {
		var r RawDisturbanceEvent
		var set, spu, elig, dt sql.NullInt64
		if err := rows.Scan(&set, &spu, &elig, &r.Efficiency, &r.SortType,
			&r.TargetType, &r.TargetMagnitude, &dt, &r.Timestep); err != nil {
			return err
		}
		r.ClassifierSetID = nullID(set)
		r.SPUID = nullID(spu)
		r.EligibilityID = nullID(elig)
		r.DisturbanceTypeID = nullID(dt)
		p.DisturbanceEvents = append(p.DisturbanceEvents, r)
		return nil
	})
	if err != nil {
		return fmt.Errorf("load disturbance events: %w", err)
	}
	return nil
}

func (d *DB) loadEligibilities(ctx context.Context, p *ProjectData) error {
	ok, err := d.hasTable("disturbance_event_eligibility")
	if err != nil || !ok {
		return err
	}
	err = d.scan(ctx, `SELECT id, name, pool_filter, state_filter FROM disturbance_event_eligibility ORDER BY id`,
		func(rows *sql.Rows) error {
			var r RawEligibility
			if err := rows.Scan(&r.ID, &r.Name, &r.PoolFilter, &r.StateFilter); err != nil {
				return err
			}
			p.Eligibilities = append(p.Eligibilities, r)
			return nil
		})
	if err != nil {
		return fmt.Errorf("load eligibilities: %w", err)
	}

	ok, err = d.hasTable("eligibility_assignment")
	if err != nil || !ok {
		return err
	}
	err = d.scan(ctx, `SELECT spuid, classifier_set_id, eligibility_id FROM eligibility_assignment ORDER BY rowid`,
		func(rows *sql.Rows) error {
			var r RawEligibilityAssignment
			var spu, set sql.NullInt64
			if err := rows.Scan(&spu, &set, &r.EligibilityID); err != nil {
				return err
			}
			r.SPUID = nullID(spu)
			r.ClassifierSetID = nullID(set)
			p.EligibilityAssignments = append(p.EligibilityAssignments, r)
			return nil
		})
	if err != nil {
		return fmt.Errorf("load eligibility assignments: %w", err)
	}
	return nil
}

func (d *DB) loadMerchVolumes(ctx context.Context, p *ProjectData) error {
	err := d.scan(ctx, `SELECT id, spuid, classifier_set_id FROM merch_volume ORDER BY id`,
		func(rows *sql.Rows) error {
			var r RawMerchVolume
			var spu, set sql.NullInt64
			if err := rows.Scan(&r.ID, &spu, &set); err != nil {
				return err
			}
			r.SPUID = nullID(spu)
			r.ClassifierSetID = nullID(set)
			p.MerchVolumes = append(p.MerchVolumes, r)
			return nil
		})
	if err != nil {
		return fmt.Errorf("load merch volumes: %w", err)
	}

	err = d.scan(ctx, `SELECT merch_volume_id, species_id, age, volume FROM merch_volume_component ORDER BY rowid`,
		func(rows *sql.Rows) error {
			var r RawMerchVolumeComponent
			if err := rows.Scan(&r.MerchVolumeID, &r.SpeciesID, &r.Age, &r.Volume); err != nil {
				return err
			}
			p.MerchVolumeComponents = append(p.MerchVolumeComponents, r)
			return nil
		})
	if err != nil {
		return fmt.Errorf("load merch volume components: %w", err)
	}
	return nil
}

func (d *DB) loadRules(ctx context.Context, p *ProjectData) error {
	ok, err := d.hasTable("disturbance_rules")
	if err != nil || !ok {
		return err
	}
	err = d.scan(ctx, `
		SELECT disturbance_class_id, spuid, rule_type_id, tracking_type_id, rule_value
		FROM disturbance_rules ORDER BY rowid
	`, func(rows *sql.Rows) error {
		var r RawRule
		if err := rows.Scan(&r.DisturbanceClassID, &r.SPUID, &r.RuleTypeID,
			&r.TrackingTypeID, &r.RuleValue); err != nil {
			return err
		}
		p.DisturbanceRules = append(p.DisturbanceRules, r)
		return nil
	})
	if err != nil {
		return fmt.Errorf("load disturbance rules: %w", err)
	}

	if p.RuleTypes, err = d.scanNamedIfPresent(ctx, "disturbance_rule_type"); err != nil {
		return err
	}
	if p.TrackingTypes, err = d.scanNamedIfPresent(ctx, "disturbance_rule_tracking_type"); err != nil {
		return err
	}
	return nil
}

func (d *DB) loadFramework(ctx context.Context, p *ProjectData) error {
	ok, err := d.hasTable("spatial_framework")
	if err != nil {
		return err
	}
	if ok {
		err = d.scan(ctx, `SELECT spuid, pspuid FROM spatial_framework ORDER BY rowid`,
			func(rows *sql.Rows) error {
				var r RawFrameworkRow
				if err := rows.Scan(&r.SPUID, &r.PSPUID); err != nil {
					return err
				}
				p.SpatialFramework = append(p.SpatialFramework, r)
				return nil
			})
		if err != nil {
			return fmt.Errorf("load spatial framework: %w", err)
		}
	}

	ok, err = d.hasTable("class_membership")
	if err != nil || !ok {
		return err
	}
	err = d.scan(ctx, `SELECT spuid, disturbance_class, membership_id FROM class_membership ORDER BY rowid`,
		func(rows *sql.Rows) error {
			var r RawMembership
			if err := rows.Scan(&r.SPUID, &r.Class, &r.MembershipID); err != nil {
				return err
			}
			p.ClassMemberships = append(p.ClassMemberships, r)
			return nil
		})
	if err != nil {
		return fmt.Errorf("load class memberships: %w", err)
	}
	return nil
}

// scan runs a query and applies fn to every row.
func (d *DB) scan(ctx context.Context, query string, fn func(*sql.Rows) error) error {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// scanNamed reads a flat (id, name) lookup table.
func (d *DB) scanNamed(ctx context.Context, table string) ([]RawNamed, error) {
	var out []RawNamed
	err := d.scan(ctx, fmt.Sprintf(`SELECT id, name FROM %s ORDER BY id`, table),
		func(rows *sql.Rows) error {
			var r RawNamed
			if err := rows.Scan(&r.ID, &r.Name); err != nil {
				return err
			}
			out = append(out, r)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	return out, nil
}

// scanNamedIfPresent is scanNamed for optional tables.
func (d *DB) scanNamedIfPresent(ctx context.Context, table string) ([]RawNamed, error) {
	ok, err := d.hasTable(table)
	if err != nil || !ok {
		return nil, err
	}
	return d.scanNamed(ctx, table)
}
