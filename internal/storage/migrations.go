package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.0.0"

	versionKey = "version"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

const migrationV1Up = `
-- Key/value store metadata, holds the schema version row
CREATE TABLE IF NOT EXISTS db_info (
    key TEXT PRIMARY KEY,
    value TEXT
);

-- Indexed top-level directories
CREATE TABLE IF NOT EXISTS roots (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    volume_name TEXT,
    file_count INTEGER DEFAULT 0,
    dir_count INTEGER DEFAULT 0,
    last_indexed INTEGER
);

-- One row per filesystem object under a root
CREATE TABLE IF NOT EXISTS files (
    id INTEGER PRIMARY KEY,
    root_id INTEGER NOT NULL REFERENCES roots(id),
    parent_id INTEGER REFERENCES files(id),
    name TEXT NOT NULL,
    name_lower TEXT NOT NULL,
    path TEXT NOT NULL,
    is_directory INTEGER NOT NULL DEFAULT 0,
    size INTEGER,
    extension TEXT,
    modified_at INTEGER,
    created_at INTEGER,
    accessed_at INTEGER,
    attributes INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_files_parent ON files(parent_id);
CREATE INDEX IF NOT EXISTS idx_files_root ON files(root_id);
CREATE INDEX IF NOT EXISTS idx_files_extension ON files(extension);
CREATE INDEX IF NOT EXISTS idx_files_modified ON files(modified_at);
CREATE INDEX IF NOT EXISTS idx_files_size ON files(size);
CREATE INDEX IF NOT EXISTS idx_files_name_lower ON files(name_lower);

-- Full-text search on file names
CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
    name,
    content='files',
    content_rowid='id',
    tokenize='unicode61'
);

-- Triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS files_ai AFTER INSERT ON files BEGIN
    INSERT INTO files_fts(rowid, name) VALUES (new.id, new.name);
END;

CREATE TRIGGER IF NOT EXISTS files_ad AFTER DELETE ON files BEGIN
    INSERT INTO files_fts(files_fts, rowid, name) VALUES ('delete', old.id, old.name);
END;

CREATE TRIGGER IF NOT EXISTS files_au AFTER UPDATE OF name ON files BEGIN
    INSERT INTO files_fts(files_fts, rowid, name) VALUES ('delete', old.id, old.name);
    INSERT INTO files_fts(rowid, name) VALUES (new.id, new.name);
END;
`

const migrationV1Down = `
DROP TRIGGER IF EXISTS files_au;
DROP TRIGGER IF EXISTS files_ad;
DROP TRIGGER IF EXISTS files_ai;

DROP TABLE IF EXISTS files_fts;
DROP TABLE IF EXISTS files;
DROP TABLE IF EXISTS roots;
DROP TABLE IF EXISTS db_info;
`

// ApplyMigrations brings the schema to CurrentSchemaVersion. It must run
// inside the caller's exclusive transaction so that a failure leaves the
// store at its pre-migration state.
func ApplyMigrations(ctx context.Context, q Querier) error {
	target := semver.MustParse(CurrentSchemaVersion)

	currentVersion, err := readSchemaVersion(ctx, q)
	if err != nil {
		return err
	}
	if currentVersion.GreaterThan(target) {
		return fmt.Errorf("store schema %s is newer than supported %s", currentVersion, target)
	}

	// Run migrations in order
	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err := q.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		currentVersion = migrationVersion
	}

	return ensureVersion(ctx, q)
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, q Querier) error {
	currentVersion, err := readSchemaVersion(ctx, q)
	if err != nil {
		return err
	}

	var migration *Migration
	for i := range AllMigrations {
		v, err := semver.NewVersion(AllMigrations[i].Version)
		if err == nil && v.Equal(currentVersion) {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", currentVersion)
	}

	if _, err := q.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}
	return nil
}

// readSchemaVersion returns the recorded schema version, 0.0.0 when the
// db_info table or its version row is absent.
func readSchemaVersion(ctx context.Context, q Querier) (*semver.Version, error) {
	var tableName string
	err := q.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='db_info'").Scan(&tableName)
	if errors.Is(err, sql.ErrNoRows) {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check db_info table: %w", err)
	}

	var value sql.NullString
	err = q.QueryRowContext(ctx, "SELECT value FROM db_info WHERE key = ?", versionKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !value.Valid) {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}

	v, err := semver.NewVersion(value.String)
	if err != nil {
		// Stale or foreign marker, treat as unversioned so it gets rewritten
		return semver.MustParse("0.0.0"), nil
	}
	return v, nil
}

// ensureVersion upserts the version row when it is absent or stale
func ensureVersion(ctx context.Context, q Querier) error {
	var value sql.NullString
	err := q.QueryRowContext(ctx, "SELECT value FROM db_info WHERE key = ?", versionKey).Scan(&value)
	if err == nil && value.Valid && value.String == CurrentSchemaVersion {
		return nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO db_info(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		versionKey, CurrentSchemaVersion)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}
