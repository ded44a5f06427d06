// Package store provides SQLite-based persistence for revtrack.
// It manages revisions, tracked object state, and repository metadata.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Sentinel errors for expected store conditions.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateRevision is returned when an insert loses the race for a
	// revision number to a concurrent writer.
	ErrDuplicateRevision = errors.New("duplicate revision number")

	// ErrRevisionConflictExhausted is returned when the bounded numbering
	// retry gives up. It implies an unresolved numbering race or a stuck
	// sequence and is fatal to the triggering operation.
	ErrRevisionConflictExhausted = errors.New("revision numbering conflict not resolved")
)

// maxNumberingAttempts bounds the optimistic numbering retry loop.
const maxNumberingAttempts = 20

// currentSchemaVersion is bumped whenever the schema changes shape. The
// persisted version lives in the kv table under schemaVersionKey.
const (
	currentSchemaVersion = 1
	schemaVersionKey     = "schema_version"
)

// Store represents the SQLite database store.
type Store struct {
	db *sql.DB
}

// New creates a new store connection.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize creates the database schema.
func (s *Store) Initialize() error {
	schema := `
	-- Revision history (append-only except the reverted flag)
	CREATE TABLE IF NOT EXISTS revisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_type TEXT NOT NULL,
		object_id TEXT NOT NULL,
		revision INTEGER NOT NULL,
		reverted BOOLEAN NOT NULL DEFAULT FALSE,
		sha1 TEXT NOT NULL,
		delta TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		comment TEXT NOT NULL DEFAULT '',
		editor TEXT,
		editor_ip TEXT,
		UNIQUE(entity_type, object_id, revision)
	);

	-- Live state of tracked objects (text field representations as JSON)
	CREATE TABLE IF NOT EXISTS objects (
		entity_type TEXT NOT NULL,
		object_id TEXT NOT NULL,
		data JSON NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (entity_type, object_id)
	);

	-- Repository metadata, including the schema version pointer
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_revisions_ref ON revisions(entity_type, object_id);
	CREATE INDEX IF NOT EXISTS idx_revisions_reverted ON revisions(reverted);
	CREATE INDEX IF NOT EXISTS idx_revisions_created ON revisions(created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	ctx := context.Background()
	if v, err := s.GetValue(ctx, schemaVersionKey); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	} else if v != "" && v != strconv.Itoa(currentSchemaVersion) {
		return fmt.Errorf("unsupported schema version %s (this build expects %d)", v, currentSchemaVersion)
	}

	if err := s.SetValue(ctx, schemaVersionKey, strconv.Itoa(currentSchemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	return nil
}

// DB returns the underlying database connection for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// GetValue gets a value from the key-value store.
func (s *Store) GetValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetValue sets a value in the key-value store.
func (s *Store) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?",
		key, value, value,
	)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so revision helpers can run
// standalone or inside the revert transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isUniqueConstraint reports whether err is a SQLite unique or primary key
// constraint violation.
func isUniqueConstraint(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT ||
		code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// parseTimestamp parses a timestamp string from SQLite in various formats.
func parseTimestamp(s string) time.Time {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999+07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
