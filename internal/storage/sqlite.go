package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// SQLiteStorage implements the Storage interface using SQLite.
// Every statement goes through mu, so at most one transaction or query is
// in flight on the handle at any time.
type SQLiteStorage struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection keeps connection-scoped pragmas and :memory: stores consistent
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return db, nil
}

// Open opens (creating if needed) the store at dbPath and migrates it to the
// current schema. A migration failure is fatal to the handle.
func Open(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, wrapErr("open", err)
	}

	s := &SQLiteStorage{db: db, path: dbPath}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

// Migrate brings the store to the current schema in one exclusive transaction
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	return s.WithTransaction(ctx, func(q Querier) error {
		return ApplyMigrations(ctx, q)
	})
}

// Path returns the store file location
func (s *SQLiteStorage) Path() string {
	return s.path
}

// LockPath returns the file used for cross-process writer locking, or ""
// for stores that have no file on disk.
func (s *SQLiteStorage) LockPath() string {
	if s.path == "" || s.path == ":memory:" {
		return ""
	}
	return filepath.Clean(s.path) + ".lock"
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// WithTransaction runs fn inside an exclusive (BEGIN IMMEDIATE) transaction.
// The transaction commits when fn returns nil and rolls back otherwise,
// including when fn panics.
func (s *SQLiteStorage) WithTransaction(ctx context.Context, fn func(q Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.withTransactionLocked(ctx, fn)
}

func (s *SQLiteStorage) withTransactionLocked(ctx context.Context, fn func(q Querier) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return wrapErr("acquire connection", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return wrapErr("begin transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Rollback must run even when ctx is already cancelled
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(conn); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return wrapErr("commit transaction", err)
	}
	committed = true
	return nil
}

// Exec runs a single statement outside of an explicit transaction
func (s *SQLiteStorage) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	return res, wrapErr("exec", err)
}

// SchemaVersion returns the version recorded in db_info
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	var version string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM db_info WHERE key = ?", versionKey).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return version, wrapErr("read schema version", err)
}

// Root operations

func (s *SQLiteStorage) AddOrUpdateRoot(ctx context.Context, path string, volumeName *string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	query := `
		INSERT INTO roots (path, volume_name) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET volume_name = COALESCE(excluded.volume_name, roots.volume_name)
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query, path, nullString(volumeName)).Scan(&id)
	if err != nil {
		return 0, wrapErr("upsert root", err)
	}
	return id, nil
}

func (s *SQLiteStorage) GetRoot(ctx context.Context, path string) (*Root, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return getRootWithQuerier(ctx, s.db, "WHERE path = ?", path)
}

func getRootWithQuerier(ctx context.Context, q Querier, where string, arg any) (*Root, error) {
	query := `SELECT id, path, volume_name, file_count, dir_count, last_indexed FROM roots ` + where
	root, err := scanRoot(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get root", err)
	}
	return root, nil
}

func (s *SQLiteStorage) FetchRoots(ctx context.Context) ([]Root, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, volume_name, file_count, dir_count, last_indexed FROM roots ORDER BY path`)
	if err != nil {
		return nil, wrapErr("fetch roots", err)
	}
	defer func() { _ = rows.Close() }()

	roots := make([]Root, 0)
	for rows.Next() {
		root, err := scanRoot(rows)
		if err != nil {
			return nil, wrapErr("fetch roots", err)
		}
		roots = append(roots, *root)
	}
	return roots, wrapErr("fetch roots", rows.Err())
}

func (s *SQLiteStorage) UpdateRootStats(ctx context.Context, id, fileCount, dirCount, lastIndexed int64) error {
	return s.WithTransaction(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx,
			`UPDATE roots SET file_count = ?, dir_count = ?, last_indexed = ? WHERE id = ?`,
			fileCount, dirCount, lastIndexed, id)
		if err != nil {
			return wrapErr("update root stats", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// File operations

func (s *SQLiteStorage) DeleteFilesByRoot(ctx context.Context, rootID int64) (int64, error) {
	var deleted int64
	err := s.WithTransaction(ctx, func(q Querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM files WHERE root_id = ?`, rootID)
		if err != nil {
			return wrapErr("delete files", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

// InsertFiles inserts entries as given, in one transaction
func (s *SQLiteStorage) InsertFiles(ctx context.Context, entries []IndexedEntry) error {
	return s.InsertBatch(ctx, entries, nil)
}

// InsertBatch inserts entries in order inside one transaction. When parents
// is non-nil, entries without a ParentID get the id of their containing
// directory if that directory was inserted earlier in the same rebuild.
func (s *SQLiteStorage) InsertBatch(ctx context.Context, entries []IndexedEntry, parents ParentIndex) error {
	if len(entries) == 0 {
		return nil
	}
	return s.WithTransaction(ctx, func(q Querier) error {
		return insertFilesWithQuerier(ctx, q, entries, parents)
	})
}

const insertFileSQL = `
	INSERT INTO files (
		root_id, parent_id, name, name_lower, path, is_directory, size,
		extension, modified_at, created_at, accessed_at, attributes
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func insertFilesWithQuerier(ctx context.Context, q Querier, entries []IndexedEntry, parents ParentIndex) error {
	stmt, err := q.PrepareContext(ctx, insertFileSQL)
	if err != nil {
		return wrapErr("prepare insert", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range entries {
		e := &entries[i]
		parentID := e.ParentID
		if parentID == nil && parents != nil {
			if id, ok := parents[filepath.Dir(e.Path)]; ok {
				parentID = &id
			}
		}

		res, err := stmt.ExecContext(ctx,
			e.RootID, nullInt64(parentID), e.Name, e.NameLower, e.Path, e.IsDirectory,
			nullInt64(e.Size), nullString(e.Extension), nullInt64(e.ModifiedAt),
			nullInt64(e.CreatedAt), nullInt64(e.AccessedAt), e.Attributes)
		if err != nil {
			return wrapErr(fmt.Sprintf("insert %s", e.Path), err)
		}

		if parents != nil && e.IsDirectory {
			id, err := res.LastInsertId()
			if err != nil {
				return wrapErr("read inserted id", err)
			}
			parents[e.Path] = id
		}
	}
	return nil
}

func (s *SQLiteStorage) CountFiles(ctx context.Context, rootID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE root_id = ?`, rootID).Scan(&n)
	return n, wrapErr("count files", err)
}

// Read path

// FileColumns is the column list QueryFiles expects, qualified by the "f" alias
const FileColumns = `f.id, f.root_id, f.parent_id, f.name, f.name_lower, f.path, f.is_directory,
	f.size, f.extension, f.modified_at, f.created_at, f.accessed_at, f.attributes`

// QueryFiles runs a SELECT whose leading columns are FileColumns and
// materialises every row before releasing the handle.
func (s *SQLiteStorage) QueryFiles(ctx context.Context, query string, args ...any) ([]FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query files", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]FileRecord, 0)
	for rows.Next() {
		rec, err := scanFileRecord(rows)
		if err != nil {
			return nil, wrapErr("scan file", err)
		}
		records = append(records, rec)
	}
	return records, wrapErr("query files", rows.Err())
}

// SearchByName returns entries whose name has a token starting with each
// word of query, best match first. A blank query yields no rows.
func (s *SQLiteStorage) SearchByName(ctx context.Context, query string, limit int) ([]FileRecord, error) {
	words := strings.Fields(query)
	if len(words) == 0 {
		return []FileRecord{}, nil
	}
	for i, w := range words {
		words[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"*`
	}
	return s.QueryFiles(ctx, `SELECT `+FileColumns+`
		FROM files_fts JOIN files f ON f.id = files_fts.rowid
		WHERE files_fts MATCH ?
		ORDER BY bm25(files_fts), f.name
		LIMIT ?`, strings.Join(words, " "), limit)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context, rootPath string) (*RootStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	root, err := getRootWithQuerier(ctx, s.db, "WHERE path = ?", rootPath)
	if err != nil {
		return nil, err
	}

	status := &RootStatus{Root: root}
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN is_directory = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_directory = 1 THEN 1 ELSE 0 END), 0)
		FROM files WHERE root_id = ?
	`, root.ID).Scan(&status.FilesCount, &status.DirsCount)
	if err != nil {
		return nil, wrapErr("count files", err)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

// Row scanning and NULL binding helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoot(row rowScanner) (*Root, error) {
	var (
		root        Root
		volumeName  sql.NullString
		lastIndexed sql.NullInt64
	)
	if err := row.Scan(&root.ID, &root.Path, &volumeName, &root.FileCount, &root.DirCount, &lastIndexed); err != nil {
		return nil, err
	}
	root.VolumeName = stringPtr(volumeName)
	root.LastIndexed = int64Ptr(lastIndexed)
	return &root, nil
}

func scanFileRecord(row rowScanner) (FileRecord, error) {
	var (
		rec                               FileRecord
		parentID, size                    sql.NullInt64
		modifiedAt, createdAt, accessedAt sql.NullInt64
		extension                         sql.NullString
	)
	err := row.Scan(
		&rec.ID, &rec.RootID, &parentID, &rec.Name, &rec.NameLower, &rec.Path, &rec.IsDirectory,
		&size, &extension, &modifiedAt, &createdAt, &accessedAt, &rec.Attributes,
	)
	if err != nil {
		return FileRecord{}, err
	}
	rec.ParentID = int64Ptr(parentID)
	rec.Size = int64Ptr(size)
	rec.Extension = stringPtr(extension)
	rec.ModifiedAt = int64Ptr(modifiedAt)
	rec.CreatedAt = int64Ptr(createdAt)
	rec.AccessedAt = int64Ptr(accessedAt)
	return rec, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
