// Package migrations manages the live data store's schema using embedded
// SQL migration files.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// Status verifies that the database schema is at the latest version.
// A non-nil error describes the mismatch (no version, dirty state, or a
// version behind/ahead of the binary).
func Status(db *sql.DB) error {
	m, src, err := newMigrate(db)
	if err != nil {
		return err
	}
	// m is not closed: closing it would close the caller-owned db.
	defer src.Close()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("database has no schema version (needs migration)")
		}
		return fmt.Errorf("reading schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database schema is dirty at version %d (a migration failed previously)", version)
	}

	latest, err := latestVersion(src)
	if err != nil {
		return fmt.Errorf("determining latest schema version: %w", err)
	}
	switch {
	case version < latest:
		return fmt.Errorf("database schema is at version %d, latest is %d: run migrate", version, latest)
	case version > latest:
		return fmt.Errorf("database schema version %d is ahead of this binary's %d", version, latest)
	}
	return nil
}

// Up applies all pending migrations. Already being at the latest version
// is not an error.
func Up(db *sql.DB) error {
	m, src, err := newMigrate(db)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, source.Driver, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, nil, fmt.Errorf("reading embedded migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("creating sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	return m, src, nil
}

// latestVersion walks the source driver to the highest available version.
func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			// Next errors once the last migration is reached.
			return version, nil
		}
		version = next
	}
}
