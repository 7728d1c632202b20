// Package database opens request-scoped handles to the embedded SQLite
// store. There is no shared pool and no cross-request connection reuse:
// every request opens, uses and releases its own handle, which keeps schema
// reads fresh after concurrent uploads and deletes.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

// Open opens the SQLite store at path, creating the parent directory on
// first use. Failures map to the store-unavailable error kind so callers in
// the safe-execution layer see a classified error rather than a raw driver
// diagnostic.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, sqlsafe.NewError(sqlsafe.KindStoreUnavailable,
				"the store directory cannot be created", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, sqlsafe.NewError(sqlsafe.KindStoreUnavailable,
			"the store cannot be opened", err)
	}

	// One connection per handle: SQLite serializes writers anyway, and a
	// second pooled connection only manufactures SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)

	// database/sql defers the actual open; ping so unavailability surfaces
	// here instead of on the first statement.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, sqlsafe.NewError(sqlsafe.KindStoreUnavailable,
			"the store cannot be opened", err)
	}

	return db, nil
}

// WithDB brackets fn between Open and Close, guaranteeing release on every
// exit path including validation failures and execution errors.
func WithDB(path string, fn func(db *sql.DB) error) error {
	db, err := Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	if err := fn(db); err != nil {
		return fmt.Errorf("database operation: %w", err)
	}
	return nil
}
