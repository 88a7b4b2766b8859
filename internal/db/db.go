// Package db opens the planbak SQLite database and manages its schema.
package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
	path string
}

// DSN returns the go-sqlite3 connection string for path. Pragmas are passed
// as DSN parameters so every pooled connection gets them, and write
// transactions take the database lock when they begin.
func DSN(path string) string {
	params := url.Values{}
	params.Set("_foreign_keys", "1")
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_txlock", "immediate")
	return "file:" + path + "?" + params.Encode()
}

// Open opens a SQLite database at the given path
func Open(path string) (*DB, error) {
	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if fk != 1 {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys on %s", path)
	}

	return &DB{DB: db, path: path}, nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Migrate runs all pending migrations. It reports whether anything was applied.
func (db *DB) Migrate() (bool, error) {
	m, src, err := db.newMigrate()
	if err != nil {
		return false, err
	}
	// m is not closed: closing it closes the shared *sql.DB.
	defer src.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("migration failed: %w", err)
	}

	return true, nil
}

// MigrationStatus describes the schema version of the database.
type MigrationStatus struct {
	Version uint `json:"version"`
	Latest  uint `json:"latest"`
	Dirty   bool `json:"dirty"`
}

// Pending returns the number of migrations not yet applied.
func (s MigrationStatus) Pending() uint {
	if s.Version >= s.Latest {
		return 0
	}
	return s.Latest - s.Version
}

// Status returns the current and latest schema versions. A database that was
// never migrated reports version 0.
func (db *DB) Status() (MigrationStatus, error) {
	m, src, err := db.newMigrate()
	if err != nil {
		return MigrationStatus{}, err
	}
	defer src.Close()

	var status MigrationStatus
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return MigrationStatus{}, fmt.Errorf("failed to get database version: %w", err)
	default:
		status.Version = version
		status.Dirty = dirty
	}

	status.Latest, err = latestVersion(src)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to determine latest version: %w", err)
	}

	return status, nil
}

// RequiresMigrationError returns a descriptive error when the schema is not
// at the latest version, and nil otherwise.
func (db *DB) RequiresMigrationError() error {
	status, err := db.Status()
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}

	if status.Dirty {
		return fmt.Errorf("database at %s is in dirty state at version %d (migration failed previously)",
			db.path, status.Version)
	}
	if status.Version > status.Latest {
		return fmt.Errorf("database at %s (version: %d) is ahead of this binary (version: %d)",
			db.path, status.Version, status.Latest)
	}
	if status.Pending() == 0 {
		return nil
	}

	return fmt.Errorf("database at %s (version: %d) requires migration: %d pending migration(s). Run 'planbak migrate' to update",
		db.path, status.Version, status.Pending())
}

// openSource returns the embedded migration files.
var openSource = func() (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations")
}

// newMigrate builds a migrator over the shared connection. The caller closes
// the returned source when done.
func (db *DB) newMigrate() (*migrate.Migrate, source.Driver, error) {
	src, err := openSource()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, src, nil
}

// latestVersion returns the highest version available in src.
func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}

	for {
		next, err := src.Next(version)
		if err != nil {
			// os.ErrNotExist marks the end of the list
			break
		}
		version = next
	}

	return version, nil
}
