// Package export writes the canonical table set and the two report tables
// of a conversion run to a SQLite output database.
package export

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/silvics/cbmconv/internal/schema"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial canonical output schema
const currentSchemaVersion = 1

// Store is a writable handle on one output database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the output database at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Write persists one complete run in a single transaction: the run id, the
// full canonical table set and both report tables. A failed write leaves
// the output database untouched.
func (s *Store) Write(ctx context.Context, runID string, ds *schema.Dataset, rep *schema.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO run (run_id) VALUES (?)`, runID); err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	writers := []func(context.Context, *sql.Tx, *schema.Dataset) error{
		writeClassifiers,
		writeMetadata,
		writeEligibilities,
		writeInventory,
		writeEvents,
		writeMerchVolumes,
		writeRules,
		writeYieldAssignments,
	}
	for _, write := range writers {
		if err := write(ctx, tx, ds); err != nil {
			return fmt.Errorf("write run: %w", err)
		}
	}
	if err := writeReports(ctx, tx, rep); err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func writeClassifiers(ctx context.Context, tx *sql.Tx, ds *schema.Dataset) error {
	for _, r := range ds.Classifiers.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO classifier (id, name) VALUES (?, ?)`, r.ID, r.Name); err != nil {
			return fmt.Errorf("classifier %d: %w", r.ID, err)
		}
	}
	for _, r := range ds.ClassifierValues.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO classifier_value (id, classifier_id, value, description) VALUES (?, ?, ?, ?)`,
			r.ID, r.ClassifierID, r.Value, r.Description); err != nil {
			return fmt.Errorf("classifier_value %d: %w", r.ID, err)
		}
	}
	for _, r := range ds.ClassifierSets.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO classifier_set (id, name) VALUES (?, ?)`, r.ID, r.Name); err != nil {
			return fmt.Errorf("classifier_set %d: %w", r.ID, err)
		}
	}
	for _, r := range ds.ClassifierSetValues.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO classifier_set_value (id, classifier_set_id, classifier_id, classifier_value_id) VALUES (?, ?, ?, ?)`,
			r.ID, r.ClassifierSetID, r.ClassifierID, r.ClassifierValueID); err != nil {
			return fmt.Errorf("classifier_set_value %d: %w", r.ID, err)
		}
	}
	return nil
}

func writeMetadata(ctx context.Context, tx *sql.Tx, ds *schema.Dataset) error {
	for _, r := range ds.AdminBoundaries.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO admin_boundary (id, source_id, name) VALUES (?, ?, ?)`,
			r.ID, r.SourceID, r.Name); err != nil {
			return fmt.Errorf("admin_boundary %d: %w", r.ID, err)
		}
	}
	for _, r := range ds.EcoBoundaries.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO eco_boundary (id, source_id, name) VALUES (?, ?, ?)`,
			r.ID, r.SourceID, r.Name); err != nil {
			return fmt.Errorf("eco_boundary %d: %w", r.ID, err)
		}
	}
	for _, r := range ds.SpatialUnits.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO spatial_unit (id, source_id, admin_boundary_id, eco_boundary_id) VALUES (?, ?, ?, ?)`,
			r.ID, r.SourceID, r.AdminBoundaryID, r.EcoBoundaryID); err != nil {
			return fmt.Errorf("spatial_unit %d: %w", r.ID, err)
		}
	}
	for _, r := range ds.Species.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO species (id, source_id, name, genus, forest_type) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.SourceID, r.Name, r.Genus, r.ForestType); err != nil {
			return fmt.Errorf("species %d: %w", r.ID, err)
		}
	}
	for _, r := range ds.DisturbanceTypes.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO disturbance_type (id, source_id, name, description) VALUES (?, ?, ?, ?)`,
			r.ID, r.SourceID, r.Name, r.Description); err != nil {
			return fmt.Errorf("disturbance_type %d: %w", r.ID, err)
		}
	}
	return nil
}

func writeEligibilities(ctx context.Context, tx *sql.Tx, ds *schema.Dataset) error {
	for _, r := range ds.Eligibilities.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO disturbance_event_eligibility (id, name, pool_filter, state_filter) VALUES (?, ?, ?, ?)`,
			r.ID, r.Name, r.PoolFilterExpression, r.StateFilterExpression); err != nil {
			return fmt.Errorf("disturbance_event_eligibility %d: %w", r.ID, err)
		}
	}
	return nil
}

func writeInventory(ctx context.Context, tx *sql.Tx, ds *schema.Dataset) error {
	for _, r := range ds.Inventory.Rows() {
		d := r.Dims
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inventory
			(id, default_spuid, pspuid, spuid, fire_spugroup_id, harvest_spugroup_id,
			 deforestation_spugroup_id, insect_spugroup_id, classifier_set_id,
			 age, area, delay, landclass, historic_disturbance_type_id, last_pass_disturbance_type_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.ID, d.DefaultSPUID, d.PSPUID, d.SPUID, d.FireSpugroupID, d.HarvestSpugroupID,
			d.DeforestationSpugroupID, d.InsectSpugroupID, d.ClassifierSetID,
			r.Age, r.Area, r.Delay, r.Landclass, r.HistoricDisturbanceTypeID, r.LastPassDisturbanceTypeID,
		); err != nil {
			return fmt.Errorf("inventory %d: %w", r.ID, err)
		}
	}
	return nil
}

func writeEvents(ctx context.Context, tx *sql.Tx, ds *schema.Dataset) error {
	for _, r := range ds.DisturbanceEvents.Rows() {
		d := r.Dims
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO disturbance_event
			(id, default_spuid, pspuid, spuid, fire_spugroup_id, harvest_spugroup_id,
			 deforestation_spugroup_id, insect_spugroup_id, classifier_set_id,
			 eligibility_id, efficiency, sort_type, target_type, target_magnitude,
			 disturbance_type_id, timestep)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.ID, d.DefaultSPUID, d.PSPUID, d.SPUID, d.FireSpugroupID, d.HarvestSpugroupID,
			d.DeforestationSpugroupID, d.InsectSpugroupID, d.ClassifierSetID,
			r.EligibilityID, r.Efficiency, r.SortType, r.TargetType, r.TargetMagnitude,
			r.DisturbanceTypeID, r.Timestep,
		); err != nil {
			return fmt.Errorf("disturbance_event %d: %w", r.ID, err)
		}
	}
	return nil
}

func writeMerchVolumes(ctx context.Context, tx *sql.Tx, ds *schema.Dataset) error {
	for _, r := range ds.MerchVolumes.Rows() {
		d := r.Dims
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO merch_volume
			(id, default_spuid, pspuid, spuid, fire_spugroup_id, harvest_spugroup_id,
			 deforestation_spugroup_id, insect_spugroup_id, classifier_set_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.ID, d.DefaultSPUID, d.PSPUID, d.SPUID, d.FireSpugroupID, d.HarvestSpugroupID,
			d.DeforestationSpugroupID, d.InsectSpugroupID, d.ClassifierSetID,
		); err != nil {
			return fmt.Errorf("merch_volume %d: %w", r.ID, err)
		}
	}
	for _, r := range ds.MerchVolumeComponents.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO merch_volume_component (id, merch_volume_id, species_id, age, volume) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.MerchVolumeID, r.SpeciesID, r.Age, r.Volume); err != nil {
			return fmt.Errorf("merch_volume_component %d: %w", r.ID, err)
		}
	}
	return nil
}

func writeRules(ctx context.Context, tx *sql.Tx, ds *schema.Dataset) error {
	for _, r := range ds.DisturbanceRuleTypes.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO disturbance_rule_type (id, source_id, name) VALUES (?, ?, ?)`,
			r.ID, r.SourceID, r.Name); err != nil {
			return fmt.Errorf("disturbance_rule_type %d: %w", r.ID, err)
		}
	}
	for _, r := range ds.DisturbanceRuleTrackingTypes.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO disturbance_rule_tracking_type (id, source_id, name) VALUES (?, ?, ?)`,
			r.ID, r.SourceID, r.Name); err != nil {
			return fmt.Errorf("disturbance_rule_tracking_type %d: %w", r.ID, err)
		}
	}
	for _, r := range ds.DisturbanceRules.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO disturbance_rules (id, disturbance_class_id, spuid, rule_type_id, tracking_type_id, rule_value) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.DisturbanceClassID, r.SPUID, r.RuleTypeID, r.TrackingTypeID, r.RuleValue); err != nil {
			return fmt.Errorf("disturbance_rules %d: %w", r.ID, err)
		}
	}
	return nil
}

func writeYieldAssignments(ctx context.Context, tx *sql.Tx, ds *schema.Dataset) error {
	for _, r := range ds.YieldAssignments.Rows() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO yield_assignment (id, inventory_id, merch_volume_id, specificity, ambiguous) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.InventoryID, r.MerchVolumeID, r.Specificity, r.Ambiguous); err != nil {
			return fmt.Errorf("yield_assignment %d: %w", r.ID, err)
		}
	}
	return nil
}

func writeReports(ctx context.Context, tx *sql.Tx, rep *schema.Report) error {
	for _, r := range rep.Differences() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO parameter_difference (id, table_name, key, field, project_value, default_value, kind) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Table, r.Key, r.Field, r.ProjectValue, r.DefaultValue, string(r.Kind)); err != nil {
			return fmt.Errorf("parameter_difference %d: %w", r.ID, err)
		}
	}
	for _, r := range rep.Issues() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO validation_issue (id, severity, category, table_name, row_id, message) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, string(r.Severity), r.Category, r.Table, r.RowID, r.Message); err != nil {
			return fmt.Errorf("validation_issue %d: %w", r.ID, err)
		}
	}
	return nil
}
