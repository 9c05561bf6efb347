// Package store is the SQLite-backed live data store: products, sales,
// stock movements and the audit trail all live in one database file,
// which is what the backup subsystem snapshots.
package store

import (
	"database/sql"
	"fmt"

	"aurum/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store wraps the live database connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the live data store at path and configures the
// connection. path can be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the
// PRAGMAs the live store needs. Exported for the verifier and tests.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Foreign keys default to OFF in SQLite for backward compatibility.
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("configuring connection (%s): %w", p, err)
		}
	}
	return db, nil
}

// Path returns the file path this store was opened with.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying connection for migrations and tests.
func (s *Store) DB() *sql.DB { return s.db }

// CheckMigrations verifies the schema is at the latest version.
func (s *Store) CheckMigrations() error {
	return migrations.Status(s.db)
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate() error {
	return migrations.Up(s.db)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
