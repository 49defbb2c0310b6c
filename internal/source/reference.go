package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/silvics/cbmconv/internal/schema"
)

// LoadReference reads the default-parameters database. Every table is
// optional: absent tables are recorded in Reference.Loaded so the parameter
// reconciler can skip them with an issue instead of failing.
//
// Reference rows keep their source ids as both ID and SourceID; the
// defaults database is authoritative, so no surrogate remapping happens.
func (d *DB) LoadReference(ctx context.Context) (*schema.Reference, error) {
	ref := &schema.Reference{Loaded: make(map[string]bool)}

	load := func(table string, fn func(context.Context) error) error {
		ok, err := d.hasTable(table)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(ctx); err != nil {
			return err
		}
		ref.Loaded[table] = true
		return nil
	}

	steps := []struct {
		table string
		fn    func(context.Context) error
	}{
		{schema.TableAdminBoundaries, func(ctx context.Context) error {
			return d.scan(ctx, `SELECT id, name FROM admin_boundary ORDER BY id`,
				func(rows *sql.Rows) error {
					var r schema.AdminBoundary
					if err := rows.Scan(&r.ID, &r.Name); err != nil {
						return err
					}
					r.SourceID = r.ID
					ref.AdminBoundaries = append(ref.AdminBoundaries, r)
					return nil
				})
		}},
		{schema.TableEcoBoundaries, func(ctx context.Context) error {
			return d.scan(ctx, `SELECT id, name FROM eco_boundary ORDER BY id`,
				func(rows *sql.Rows) error {
					var r schema.EcoBoundary
					if err := rows.Scan(&r.ID, &r.Name); err != nil {
						return err
					}
					r.SourceID = r.ID
					ref.EcoBoundaries = append(ref.EcoBoundaries, r)
					return nil
				})
		}},
		{schema.TableSpatialUnits, func(ctx context.Context) error {
			return d.scan(ctx, `SELECT id, admin_boundary_id, eco_boundary_id FROM spatial_unit ORDER BY id`,
				func(rows *sql.Rows) error {
					var r schema.SpatialUnit
					if err := rows.Scan(&r.ID, &r.AdminBoundaryID, &r.EcoBoundaryID); err != nil {
						return err
					}
					r.SourceID = r.ID
					ref.SpatialUnits = append(ref.SpatialUnits, r)
					return nil
				})
		}},
		{schema.TableSpecies, func(ctx context.Context) error {
			return d.scan(ctx, `SELECT id, name, genus, forest_type FROM species ORDER BY id`,
				func(rows *sql.Rows) error {
					var r schema.Species
					if err := rows.Scan(&r.ID, &r.Name, &r.Genus, &r.ForestType); err != nil {
						return err
					}
					r.SourceID = r.ID
					ref.Species = append(ref.Species, r)
					return nil
				})
		}},
		{schema.TableDisturbanceTypes, func(ctx context.Context) error {
			return d.scan(ctx, `SELECT id, name, description FROM disturbance_type ORDER BY id`,
				func(rows *sql.Rows) error {
					var r schema.DisturbanceType
					if err := rows.Scan(&r.ID, &r.Name, &r.Description); err != nil {
						return err
					}
					r.SourceID = r.ID
					ref.DisturbanceTypes = append(ref.DisturbanceTypes, r)
					return nil
				})
		}},
		{schema.TableDisturbanceRuleTypes, func(ctx context.Context) error {
			return d.scan(ctx, `SELECT id, name FROM disturbance_rule_type ORDER BY id`,
				func(rows *sql.Rows) error {
					var r schema.DisturbanceRuleType
					if err := rows.Scan(&r.ID, &r.Name); err != nil {
						return err
					}
					r.SourceID = r.ID
					ref.DisturbanceRuleTypes = append(ref.DisturbanceRuleTypes, r)
					return nil
				})
		}},
		{schema.TableDisturbanceRuleTrackingTypes, func(ctx context.Context) error {
			return d.scan(ctx, `SELECT id, name FROM disturbance_rule_tracking_type ORDER BY id`,
				func(rows *sql.Rows) error {
					var r schema.DisturbanceRuleTrackingType
					if err := rows.Scan(&r.ID, &r.Name); err != nil {
						return err
					}
					r.SourceID = r.ID
					ref.DisturbanceRuleTrackingTypes = append(ref.DisturbanceRuleTrackingTypes, r)
					return nil
				})
		}},
	}

	for _, step := range steps {
		if err := load(step.table, step.fn); err != nil {
			return nil, fmt.Errorf("load reference %s: %w", step.table, err)
		}
	}
	return ref, nil
}
