// Package persistence provides SQLite-based storage for projects, tasks,
// documents, requirements, milestones, users, and the activity log.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when an operation targets a row that does not
// exist and the operation requires it to.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// InitializeDatabase creates and initializes the SQLite database with the
// required schema. This function is idempotent and safe to call multiple
// times. The returned handle is owned by the caller and must be closed
// during shutdown.
func InitializeDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection with a simple ping
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize schema with migrations
	if err := initializeSchemaWithMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite supports a single writer; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return db, nil
}

// Store provides methods for all database operations. A single Store is
// constructed at startup and handed to the resource layer; there is no
// process-wide singleton.
type Store struct {
	db *sql.DB

	// ReplaceUpdates switches document and milestone updates back to the
	// legacy overwrite-supplied-columns behavior. The default is a uniform
	// read-merge-write for every entity.
	ReplaceUpdates bool
}

// NewStore creates a new Store on an initialized database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}
