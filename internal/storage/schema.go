package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// migration upgrades the ledger to version by running stmts in order.
type migration struct {
	version int
	stmts   []string
}

// migrations are applied in order; a fresh ledger runs all of them.
var migrations = []migration{
	{version: 1, stmts: []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS translations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			strategy TEXT NOT NULL,
			alias TEXT NOT NULL,
			source TEXT NOT NULL,
			coverage REAL NOT NULL,
			confidence REAL NOT NULL,
			unknown_count INTEGER NOT NULL DEFAULT 0,
			guard_total INTEGER NOT NULL DEFAULT 0,
			guard_kept INTEGER NOT NULL DEFAULT 0,
			guard_dropped INTEGER NOT NULL DEFAULT 0,
			oracle_calls INTEGER NOT NULL DEFAULT 0,
			oracle_error TEXT,
			cached INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_translations_recorded_at ON translations(recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_translations_run_id ON translations(run_id)`,
		// Drop reason counts per translation.
		`CREATE TABLE IF NOT EXISTS guard_reasons (
			translation_id INTEGER NOT NULL REFERENCES translations(id) ON DELETE CASCADE,
			reason TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (translation_id, reason)
		)`,
	}},
	{version: 2, stmts: []string{
		`CREATE TABLE IF NOT EXISTS learned_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			key TEXT NOT NULL,
			alias TEXT NOT NULL,
			confidence REAL NOT NULL,
			phrase INTEGER NOT NULL DEFAULT 0,
			path TEXT NOT NULL,
			learned_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_learned_entries_key ON learned_entries(key)`,
	}},
}

// currentSchemaVersion is the version of the last migration.
var currentSchemaVersion = migrations[len(migrations)-1].version

// initializeSchema creates every table of a new ledger.
func (db *DB) initializeSchema() error {
	return db.migrateFrom(0)
}

// runMigrations brings an existing ledger up to currentSchemaVersion.
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}
	switch {
	case version == currentSchemaVersion:
		return nil
	case version > currentSchemaVersion:
		return fmt.Errorf("ledger schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Migrating usage ledger", "from", version, "to", currentSchemaVersion)
	return db.migrateFrom(version)
}

func (db *DB) migrateFrom(version int) error {
	return db.WithTx(func(tx *sql.Tx) error {
		for _, m := range migrations {
			if m.version <= version {
				continue
			}
			for _, stmt := range m.stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d: %w", m.version, err)
				}
			}
		}
		if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
			return err
		}
		_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion)
		return err
	})
}

// getSchemaVersion returns 0 for a ledger without a schema_version row.
func (db *DB) getSchemaVersion() (int, error) {
	var n int
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&n); err != nil || n == 0 {
		return 0, err
	}

	var version int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return version, err
}
