package storage

import (
	"context"
	"database/sql"
)

// Capabilities describes the linked SQLite engine
type Capabilities struct {
	Version string
	HasFTS5 bool
}

// Verify opens a throwaway in-memory database and reports the engine
// version and whether FTS5 virtual tables can be created.
func Verify(ctx context.Context) (Capabilities, error) {
	var caps Capabilities

	db, err := sql.Open(DriverName, ":memory:")
	if err != nil {
		return caps, wrapErr("verify", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&caps.Version); err != nil {
		return caps, wrapErr("verify", err)
	}

	_, err = db.ExecContext(ctx, "CREATE VIRTUAL TABLE fts_probe USING fts5(content)")
	caps.HasFTS5 = err == nil
	return caps, nil
}
