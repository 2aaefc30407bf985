// Package storage keeps the usage ledger: one SQLite row per translation,
// the guard drop reasons behind it and every entry learned from the oracle.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"namelens/internal/paths"
)

// ledgerPragmas are set by the driver on every new connection. The file
// may be shared by several CLI processes.
var ledgerPragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// ledgerDSN appends ledgerPragmas to path as modernc _pragma parameters.
func ledgerDSN(path string) string {
	q := make(url.Values)
	for _, p := range ledgerPragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// DB is an open ledger. The embedded *sql.DB serves ad-hoc queries.
type DB struct {
	*sql.DB
	path   string
	logger *slog.Logger
}

// Open opens or creates the usage ledger at <root>/.namelens/ledger.db
func Open(root string, logger *slog.Logger) (*DB, error) {
	if _, err := paths.EnsureProjectDir(root); err != nil {
		return nil, err
	}
	return OpenPath(paths.LedgerPath(root), logger)
}

// OpenPath opens the ledger at path, creating the file and its tables or
// migrating an older schema as needed.
func OpenPath(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	conn, err := sql.Open("sqlite", ledgerDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	// Batch workers write concurrently; one connection serializes them
	// in-process while busy_timeout covers other processes.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	db := &DB{DB: conn, path: path, logger: logger}
	if fresh {
		logger.Info("Creating usage ledger", "path", path)
		err = db.initializeSchema()
	} else {
		err = db.runMigrations()
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("prepare ledger schema: %w", err)
	}
	return db, nil
}

// Path returns the ledger file.
func (db *DB) Path() string {
	return db.path
}

// WithTx runs fn in a transaction, committing only when fn succeeds.
func (db *DB) WithTx(fn func(*sql.Tx) error) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Warn("Ledger rollback failed", "error", err, "rollbackError", rbErr)
		}
		return err
	}
	return tx.Commit()
}
