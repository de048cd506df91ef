package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	store, err := Open(":memory:")
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ptr[T any](v T) *T { return &v }

func fileEntry(rootID int64, path string, size int64) IndexedEntry {
	name := filepath.Base(path)
	return IndexedEntry{
		RootID:    rootID,
		Name:      name,
		NameLower: name,
		Path:      path,
		Size:      ptr(size),
	}
}

func dirEntry(rootID int64, path string) IndexedEntry {
	name := filepath.Base(path)
	return IndexedEntry{
		RootID:      rootID,
		Name:        name,
		NameLower:   name,
		Path:        path,
		IsDirectory: true,
	}
}

func TestOpen(t *testing.T) {
	store := setupTestDB(t)

	assert.NotNil(t, store.db)
	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestOpen_Idempotent(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.sqlite")

	store, err := Open(dbPath)
	require.NoError(t, err)
	rootID, err := store.AddOrUpdateRoot(ctx, "/data", nil)
	require.NoError(t, err)
	require.NoError(t, store.InsertFiles(ctx, []IndexedEntry{fileEntry(rootID, "/data/a.txt", 1)}))
	require.NoError(t, store.Close())

	// Reopening must not alter data or bump the version
	for i := 0; i < 2; i++ {
		store, err = Open(dbPath)
		require.NoError(t, err)

		version, err := store.SchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, CurrentSchemaVersion, version)

		n, err := store.CountFiles(ctx, rootID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		var rows int
		_, err = store.Exec(ctx, "SELECT 1")
		require.NoError(t, err)
		require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM db_info").Scan(&rows))
		assert.Equal(t, 1, rows)

		require.NoError(t, store.Close())
	}
}

func TestOpen_NewerSchemaRejected(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.sqlite")

	store, err := Open(dbPath)
	require.NoError(t, err)
	_, err = store.Exec(ctx, "UPDATE db_info SET value = '9.0.0' WHERE key = 'version'")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = Open(dbPath)
	assert.Error(t, err)
}

func TestOpen_UnversionedStoreGetsMarker(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.sqlite")

	store, err := Open(dbPath)
	require.NoError(t, err)
	_, err = store.Exec(ctx, "DELETE FROM db_info")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestClose(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())

	_, err = store.FetchRoots(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLockPath(t *testing.T) {
	store := setupTestDB(t)
	assert.Empty(t, store.LockPath())

	dbPath := filepath.Join(t.TempDir(), "index.sqlite")
	fileStore, err := Open(dbPath)
	require.NoError(t, err)
	defer fileStore.Close()
	assert.Equal(t, dbPath+".lock", fileStore.LockPath())
}

func TestAddOrUpdateRoot(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	id, err := store.AddOrUpdateRoot(ctx, "/Volumes/Data", ptr("Data"))
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	// Same path returns the same id
	again, err := store.AddOrUpdateRoot(ctx, "/Volumes/Data", nil)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	// A nil label keeps the recorded one
	root, err := store.GetRoot(ctx, "/Volumes/Data")
	require.NoError(t, err)
	require.NotNil(t, root.VolumeName)
	assert.Equal(t, "Data", *root.VolumeName)
	assert.Nil(t, root.LastIndexed)

	_, err = store.AddOrUpdateRoot(ctx, "/Volumes/Data", ptr("Backup"))
	require.NoError(t, err)
	root, err = store.GetRoot(ctx, "/Volumes/Data")
	require.NoError(t, err)
	assert.Equal(t, "Backup", *root.VolumeName)
}

func TestGetRoot_NotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.GetRoot(context.Background(), "/nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchRoots(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	roots, err := store.FetchRoots(ctx)
	require.NoError(t, err)
	assert.Empty(t, roots)

	for _, p := range []string{"/b", "/a", "/c"} {
		_, err := store.AddOrUpdateRoot(ctx, p, nil)
		require.NoError(t, err)
	}

	roots, err = store.FetchRoots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 3)
	assert.Equal(t, "/a", roots[0].Path)
	assert.Equal(t, "/b", roots[1].Path)
	assert.Equal(t, "/c", roots[2].Path)
}

func TestUpdateRootStats(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	id, err := store.AddOrUpdateRoot(ctx, "/data", nil)
	require.NoError(t, err)

	require.NoError(t, store.UpdateRootStats(ctx, id, 10, 3, 1700000000))

	root, err := store.GetRoot(ctx, "/data")
	require.NoError(t, err)
	assert.Equal(t, int64(10), root.FileCount)
	assert.Equal(t, int64(3), root.DirCount)
	require.NotNil(t, root.LastIndexed)
	assert.Equal(t, int64(1700000000), *root.LastIndexed)

	err = store.UpdateRootStats(ctx, id+100, 1, 1, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertFiles_NullRoundTrip(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	rootID, err := store.AddOrUpdateRoot(ctx, "/data", nil)
	require.NoError(t, err)

	full := IndexedEntry{
		RootID:     rootID,
		Name:       "Report.PDF",
		NameLower:  "report.pdf",
		Path:       "/data/Report.PDF",
		Size:       ptr(int64(0)),
		Extension:  ptr("pdf"),
		ModifiedAt: ptr(int64(0)),
		CreatedAt:  ptr(int64(1600000000)),
		AccessedAt: ptr(int64(1600000001)),
		Attributes: 4,
	}
	bare := dirEntry(rootID, "/data/docs")

	require.NoError(t, store.InsertFiles(ctx, []IndexedEntry{full, bare}))

	records, err := store.QueryFiles(ctx,
		"SELECT "+FileColumns+" FROM files f WHERE f.root_id = ? ORDER BY f.name", rootID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	got := records[0]
	assert.Equal(t, "Report.PDF", got.Name)
	assert.Equal(t, "report.pdf", got.NameLower)
	require.NotNil(t, got.Size)
	assert.Equal(t, int64(0), *got.Size)
	require.NotNil(t, got.ModifiedAt)
	assert.Equal(t, int64(0), *got.ModifiedAt)
	assert.Equal(t, "pdf", *got.Extension)
	assert.Equal(t, int64(1600000000), *got.CreatedAt)
	assert.Equal(t, int64(1600000001), *got.AccessedAt)
	assert.Equal(t, int64(4), got.Attributes)
	assert.False(t, got.IsDirectory)

	dir := records[1]
	assert.True(t, dir.IsDirectory)
	assert.Nil(t, dir.Size)
	assert.Nil(t, dir.Extension)
	assert.Nil(t, dir.ModifiedAt)
	assert.Nil(t, dir.CreatedAt)
	assert.Nil(t, dir.AccessedAt)
	assert.Nil(t, dir.ParentID)
}

func TestInsertBatch_ResolvesParents(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	rootID, err := store.AddOrUpdateRoot(ctx, "/data", nil)
	require.NoError(t, err)

	parents := ParentIndex{}
	require.NoError(t, store.InsertBatch(ctx, []IndexedEntry{
		fileEntry(rootID, "/data/top.txt", 1),
		dirEntry(rootID, "/data/sub"),
	}, parents))
	// Second batch sees directories recorded by the first
	require.NoError(t, store.InsertBatch(ctx, []IndexedEntry{
		fileEntry(rootID, "/data/sub/inner.txt", 2),
		dirEntry(rootID, "/data/sub/deeper"),
		fileEntry(rootID, "/data/sub/deeper/leaf.txt", 3),
	}, parents))

	assert.Len(t, parents, 2)

	records, err := store.QueryFiles(ctx, "SELECT "+FileColumns+" FROM files f ORDER BY f.path")
	require.NoError(t, err)
	require.Len(t, records, 5)

	byPath := make(map[string]FileRecord)
	for _, r := range records {
		byPath[r.Path] = r
	}

	assert.Nil(t, byPath["/data/top.txt"].ParentID)
	assert.Nil(t, byPath["/data/sub"].ParentID)
	require.NotNil(t, byPath["/data/sub/inner.txt"].ParentID)
	assert.Equal(t, byPath["/data/sub"].ID, *byPath["/data/sub/inner.txt"].ParentID)
	require.NotNil(t, byPath["/data/sub/deeper/leaf.txt"].ParentID)
	assert.Equal(t, byPath["/data/sub/deeper"].ID, *byPath["/data/sub/deeper/leaf.txt"].ParentID)
}

func TestInsertBatch_EmptyIsNoop(t *testing.T) {
	store := setupTestDB(t)
	assert.NoError(t, store.InsertBatch(context.Background(), nil, ParentIndex{}))
}

func TestInsertBatch_FailureRollsBack(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	rootID, err := store.AddOrUpdateRoot(ctx, "/data", nil)
	require.NoError(t, err)

	// The second row violates the root foreign key
	err = store.InsertFiles(ctx, []IndexedEntry{
		fileEntry(rootID, "/data/ok.txt", 1),
		fileEntry(rootID+42, "/data/bad.txt", 1),
	})
	require.Error(t, err)

	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.NotZero(t, se.Code)
	assert.Equal(t, 19, se.Code&0xff) // SQLITE_CONSTRAINT
	assert.NotEmpty(t, se.Message)

	n, err := store.CountFiles(ctx, rootID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteFilesByRoot(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	a, err := store.AddOrUpdateRoot(ctx, "/a", nil)
	require.NoError(t, err)
	b, err := store.AddOrUpdateRoot(ctx, "/b", nil)
	require.NoError(t, err)

	require.NoError(t, store.InsertFiles(ctx, []IndexedEntry{
		fileEntry(a, "/a/1.txt", 1),
		fileEntry(a, "/a/2.txt", 1),
		fileEntry(b, "/b/1.txt", 1),
	}))

	deleted, err := store.DeleteFilesByRoot(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	n, err := store.CountFiles(ctx, a)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = store.CountFiles(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFTSTracksFiles(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	rootID, err := store.AddOrUpdateRoot(ctx, "/data", nil)
	require.NoError(t, err)
	require.NoError(t, store.InsertFiles(ctx, []IndexedEntry{
		fileEntry(rootID, "/data/quarterly report.txt", 1),
		fileEntry(rootID, "/data/notes.md", 1),
	}))

	match := func(expr string) []FileRecord {
		recs, err := store.QueryFiles(ctx, "SELECT "+FileColumns+
			" FROM files_fts JOIN files f ON f.id = files_fts.rowid WHERE files_fts MATCH ?", expr)
		require.NoError(t, err)
		return recs
	}

	recs := match(`"quart"*`)
	require.Len(t, recs, 1)
	assert.Equal(t, "quarterly report.txt", recs[0].Name)

	_, err = store.Exec(ctx, "UPDATE files SET name = 'summary.txt' WHERE name = 'notes.md'")
	require.NoError(t, err)
	assert.Empty(t, match(`"notes"*`))
	assert.Len(t, match(`"summary"*`), 1)

	_, err = store.DeleteFilesByRoot(ctx, rootID)
	require.NoError(t, err)
	assert.Empty(t, match(`"quart"*`))
}

func TestGetStatus(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.GetStatus(ctx, "/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	rootID, err := store.AddOrUpdateRoot(ctx, "/data", nil)
	require.NoError(t, err)
	require.NoError(t, store.InsertFiles(ctx, []IndexedEntry{
		dirEntry(rootID, "/data/sub"),
		fileEntry(rootID, "/data/a.txt", 1),
		fileEntry(rootID, "/data/sub/b.txt", 1),
	}))

	status, err := store.GetStatus(ctx, "/data")
	require.NoError(t, err)
	assert.Equal(t, rootID, status.Root.ID)
	assert.Equal(t, int64(2), status.FilesCount)
	assert.Equal(t, int64(1), status.DirsCount)
	assert.Greater(t, status.IndexSizeMB, 0.0)
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTransaction(ctx, func(q Querier) error {
		if _, err := q.ExecContext(ctx, "INSERT INTO roots (path) VALUES ('/tx')"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetRoot(ctx, "/tx")
	assert.ErrorIs(t, err, ErrNotFound)

	// The handle stays usable after a rollback
	_, err = store.AddOrUpdateRoot(ctx, "/tx", nil)
	assert.NoError(t, err)
}

func TestVerify(t *testing.T) {
	caps, err := Verify(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, caps.Version)
	assert.True(t, caps.HasFTS5)
}

func TestSearchByName(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	rootID, err := store.AddOrUpdateRoot(ctx, "/data", nil)
	require.NoError(t, err)
	require.NoError(t, store.InsertFiles(ctx, []IndexedEntry{
		fileEntry(rootID, "/data/budget 2024.xlsx", 1),
		fileEntry(rootID, "/data/budget notes.txt", 1),
		fileEntry(rootID, "/data/holiday.jpg", 1),
	}))

	recs, err := store.SearchByName(ctx, "budg", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = store.SearchByName(ctx, "budget not", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "budget notes.txt", recs[0].Name)

	recs, err = store.SearchByName(ctx, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)

	// Embedded quotes must not break the match expression
	recs, err = store.SearchByName(ctx, `say "hi`, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
