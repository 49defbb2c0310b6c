// Package source reads conversion inputs: the legacy project database and
// the default-parameters database (both SQLite), and the optional flat
// disturbance extract (CSV).
//
// The readers produce typed raw rows still carrying source-database ids;
// mapping those to canonical surrogate ids is the orchestrator's job.
package source

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// MissingTableError reports a required table absent from an input database.
// Missing required tables are fatal: the run produces no output.
type MissingTableError struct {
	Path  string
	Table string
}

func (e *MissingTableError) Error() string {
	return fmt.Sprintf("%s: required table %q not found", e.Path, e.Table)
}

// DB is a read-only handle on one input database.
type DB struct {
	path string
	db   *sql.DB
}

// Open opens a SQLite input database read-only.
//
// The connection is configured with:
//   - query_only mode (inputs are never written)
//   - 5-second busy timeout for lock contention
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA query_only = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return &DB{path: path, db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// hasTable reports whether the named table exists.
func (d *DB) hasTable(table string) (bool, error) {
	var count int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		table,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %q: %w", table, err)
	}
	return count > 0, nil
}

// requireTable returns a MissingTableError if the named table is absent.
func (d *DB) requireTable(table string) error {
	ok, err := d.hasTable(table)
	if err != nil {
		return err
	}
	if !ok {
		return &MissingTableError{Path: d.path, Table: table}
	}
	return nil
}

// nullID converts a scanned nullable integer column.
func nullID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
