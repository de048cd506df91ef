// Package storage provides SQLite-based persistence for the file index.
//
// The storage layer manages:
//   - Indexed roots and their last rebuild statistics
//   - One row per file or directory under a root
//   - An FTS5 index over file names, kept in sync by triggers
//   - The schema version marker
//
// # Database Schema
//
// Tables:
//   - db_info: key/value metadata, holds the "version" row
//   - roots: indexed directories (path, volume label, counts, last rebuild time)
//   - files: filesystem entries with parent links and optional metadata
//   - files_fts: external-content FTS5 table over files.name
//
// # Basic Usage
//
//	store, err := storage.Open("~/.locate/locate.sqlite")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	rootID, err := store.AddOrUpdateRoot(ctx, "/Users/dev/Documents", nil)
//	parents := storage.ParentIndex{}
//	err = store.InsertBatch(ctx, entries, parents)
//
// # Transactions
//
// All writes run inside BEGIN IMMEDIATE transactions on a single
// connection. WithTransaction exposes the same mechanism:
//
//	err := store.WithTransaction(ctx, func(q storage.Querier) error {
//	    _, err := q.ExecContext(ctx, "DELETE FROM files WHERE root_id = ?", id)
//	    return err
//	})
//
// # Build Tags
//
// Pure Go build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build
//
// CGO build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires the sqlite_fts5 tag so that FTS5 is compiled in
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo sqlite_fts5"
package storage
