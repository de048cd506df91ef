package storage

import (
	"context"
	"database/sql"
)

// Storage defines the interface for persisting and querying the file index
type Storage interface {
	// Root operations
	AddOrUpdateRoot(ctx context.Context, path string, volumeName *string) (int64, error)
	GetRoot(ctx context.Context, path string) (*Root, error)
	FetchRoots(ctx context.Context) ([]Root, error)
	UpdateRootStats(ctx context.Context, id, fileCount, dirCount, lastIndexed int64) error

	// File operations
	DeleteFilesByRoot(ctx context.Context, rootID int64) (int64, error)
	InsertFiles(ctx context.Context, entries []IndexedEntry) error
	InsertBatch(ctx context.Context, entries []IndexedEntry, parents ParentIndex) error
	CountFiles(ctx context.Context, rootID int64) (int64, error)

	// Read path
	QueryFiles(ctx context.Context, query string, args ...any) ([]FileRecord, error)
	SearchByName(ctx context.Context, query string, limit int) ([]FileRecord, error)

	// Status operations
	GetStatus(ctx context.Context, rootPath string) (*RootStatus, error)

	// Database operations
	Path() string
	LockPath() string
	Close() error
}

// Querier is implemented by *sql.DB, *sql.Tx and *sql.Conn
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Root is an indexed top-level directory
type Root struct {
	ID          int64
	Path        string
	VolumeName  *string
	FileCount   int64
	DirCount    int64
	LastIndexed *int64 // epoch seconds, nil until the first successful rebuild
}

// IndexedEntry is one filesystem object as produced by the scanner.
// Optional columns are pointers so that absence is stored as NULL.
type IndexedEntry struct {
	RootID      int64
	ParentID    *int64
	Name        string
	NameLower   string
	Path        string
	IsDirectory bool
	Size        *int64 // nil for directories
	Extension   *string
	ModifiedAt  *int64
	CreatedAt   *int64
	AccessedAt  *int64
	Attributes  int64
}

// FileRecord is an IndexedEntry read back from the store
type FileRecord struct {
	ID int64
	IndexedEntry
}

// ParentIndex maps directory paths to their row ids within one rebuild.
// InsertBatch consults it to fill ParentID and records every directory it inserts.
type ParentIndex map[string]int64

// RootStatus contains statistics about an indexed root
type RootStatus struct {
	Root        *Root
	FilesCount  int64 // committed non-directory rows
	DirsCount   int64 // committed directory rows
	IndexSizeMB float64
}
