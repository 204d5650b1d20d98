package persistence

import (
	"database/sql"
	"errors"
	"fmt"
)

// CurrentSchemaVersion defines the current schema version for migration
// support. Any schema change must increment this and add a migration.
const CurrentSchemaVersion = 1

// initializeSchemaWithMigrations ensures the schema is at the current
// version, creating it fresh on an empty database.
func initializeSchemaWithMigrations(db *sql.DB) error {
	currentVersion, err := getSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	if currentVersion == 0 {
		return createSchema(db)
	}
	if currentVersion == CurrentSchemaVersion {
		return nil
	}
	return runMigrations(db, currentVersion, CurrentSchemaVersion)
}

func runMigrations(db *sql.DB, fromVersion, toVersion int) error {
	for version := fromVersion + 1; version <= toVersion; version++ {
		if err := runMigration(db, version); err != nil {
			return fmt.Errorf("migration to version %d failed: %w", version, err)
		}
		if err := setSchemaVersion(db, version); err != nil {
			return fmt.Errorf("failed to update schema version to %d: %w", version, err)
		}
	}
	return nil
}

func runMigration(_ *sql.DB, version int) error {
	// Version 1 is the initial schema, created by createSchema.
	return fmt.Errorf("unknown migration version: %d", version)
}

// createSchema creates all required tables and indices.
func createSchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	tables := []string{
		// Schema version tracking
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,

		// Stage catalog: seeded by an administrator, read-only at runtime.
		// Criteria are stored as a JSON array of strings in catalog order.
		`CREATE TABLE IF NOT EXISTS stages (
			number INTEGER PRIMARY KEY CHECK (number >= 0),
			name TEXT NOT NULL UNIQUE,
			objective TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			criteria TEXT NOT NULL DEFAULT '[]'
		)`,

		// Buyers: current_stage is mutated only through the progression
		// engine's commit path.
		`CREATE TABLE IF NOT EXISTS buyers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			current_stage INTEGER NOT NULL DEFAULT 0 CHECK (current_stage >= 0),
			created_at DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			updated_at DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,

		// Completion records: one row per toggled criterion cell.
		// Rows outlive stage moves so earlier stages stay reviewable;
		// rows with stale indices are orphaned, never an error.
		`CREATE TABLE IF NOT EXISTS completion_records (
			buyer_id TEXT NOT NULL REFERENCES buyers(id),
			stage_number INTEGER NOT NULL,
			criterion_index INTEGER NOT NULL CHECK (criterion_index >= 0),
			completed INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			PRIMARY KEY (buyer_id, stage_number, criterion_index)
		)`,

		// Artifacts: stage_number is nullable; unscoped artifacts are
		// always visible to the journey view. Blocks are a JSON array of
		// tagged variants decoded at the ingestion boundary.
		`CREATE TABLE IF NOT EXISTS artifacts (
			id TEXT PRIMARY KEY,
			buyer_id TEXT NOT NULL REFERENCES buyers(id),
			title TEXT NOT NULL DEFAULT '',
			stage_number INTEGER,
			visibility TEXT NOT NULL DEFAULT 'internal' CHECK (visibility IN ('internal','shared')),
			blocks TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_completion_buyer_stage ON completion_records(buyer_id, stage_number)",
		"CREATE INDEX IF NOT EXISTS idx_artifacts_buyer ON artifacts(buyer_id)",
		"CREATE INDEX IF NOT EXISTS idx_artifacts_buyer_stage ON artifacts(buyer_id, stage_number)",
	}
	for _, index := range indices {
		if _, err := db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return setSchemaVersion(db, CurrentSchemaVersion)
}

// getSchemaVersion returns the current schema version, 0 for an empty
// database.
func getSchemaVersion(db *sql.DB) (int, error) {
	var version sql.NullInt64
	err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		// Table doesn't exist yet: fresh database.
		return 0, nil //nolint:nilerr // missing table means version 0
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

func setSchemaVersion(db *sql.DB, version int) error {
	_, err := db.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", version)
	if err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}
