package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/locate/internal/query"
	"github.com/dshills/locate/internal/searcher"
	"github.com/dshills/locate/internal/storage"
)

func setupStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "index.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// tempRoot returns a temporary directory with symlinks resolved, matching
// the form the scanner reports paths in
func tempRoot(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

// createTree makes files (with content) and directories (trailing slash) under root
func createTree(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if p[len(p)-1] == '/' {
			require.NoError(t, os.MkdirAll(full, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(p), 0o644))
	}
}

func allRecords(t *testing.T, store storage.Storage, rootID int64) map[string]storage.FileRecord {
	t.Helper()
	recs, err := store.QueryFiles(context.Background(),
		"SELECT "+storage.FileColumns+" FROM files f WHERE f.root_id = ?", rootID)
	require.NoError(t, err)
	out := make(map[string]storage.FileRecord, len(recs))
	for _, r := range recs {
		out[r.Path] = r
	}
	return out
}

func TestRebuildIndex_ProgressAccounting(t *testing.T) {
	store := setupStore(t)
	root := tempRoot(t)
	createTree(t, root, "a.txt", "sub/b.txt")

	var events []Progress
	stats, err := New(store).RebuildIndex(context.Background(), root, nil, func(p Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, ProgressCompleted, last.Kind)
	assert.Equal(t, int64(2), last.TotalFiles)
	assert.Equal(t, int64(1), last.TotalDirs)

	assert.Equal(t, int64(2), stats.FilesIndexed)
	assert.Equal(t, int64(1), stats.DirsIndexed)

	n, err := store.CountFiles(context.Background(), stats.RootID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	root1, err := store.GetRoot(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, int64(2), root1.FileCount)
	assert.Equal(t, int64(1), root1.DirCount)
	assert.NotNil(t, root1.LastIndexed)
}

func TestRebuildIndex_Batches(t *testing.T) {
	store := setupStore(t)
	root := tempRoot(t)
	createTree(t, root, "1.txt", "2.txt", "3.txt", "4.txt", "5.txt")

	var events []Progress
	stats, err := New(store).RebuildIndex(context.Background(), root, &Config{BatchSize: 2}, func(p Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Batches)

	require.Len(t, events, 4)
	assert.Equal(t, []int{2, 2, 1, 0}, []int{events[0].Count, events[1].Count, events[2].Count, events[3].Count})
	for i, want := range []int64{2, 4, 5, 5} {
		assert.Equal(t, want, events[i].TotalFiles)
	}
	for _, e := range events[:3] {
		assert.Equal(t, ProgressBatchInserted, e.Kind)
	}
	assert.Equal(t, ProgressCompleted, events[3].Kind)
}

func TestRebuildIndex_FullReplace(t *testing.T) {
	store := setupStore(t)
	root := tempRoot(t)
	createTree(t, root, "a.txt", "b.txt", "c.txt", "d/e.txt")
	idx := New(store)
	ctx := context.Background()

	first, err := idx.RebuildIndex(ctx, root, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), first.FilesIndexed)

	require.NoError(t, os.Remove(filepath.Join(root, "b.txt")))

	second, err := idx.RebuildIndex(ctx, root, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, first.RootID, second.RootID)
	assert.Equal(t, int64(5), second.FilesRemoved)
	assert.Equal(t, int64(3), second.FilesIndexed)

	recs := allRecords(t, store, second.RootID)
	assert.Len(t, recs, 4)
	assert.NotContains(t, recs, filepath.Join(root, "b.txt"))

	r, err := store.GetRoot(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.FileCount)
	assert.Equal(t, int64(1), r.DirCount)
}

func TestRebuildIndex_Exclusions(t *testing.T) {
	store := setupStore(t)
	root := tempRoot(t)
	createTree(t, root,
		"node_modules/pkg/index.js",
		"web/node_modules/lib/main.js",
		".git/HEAD",
		"Library/prefs.plist",
		"web/app.js",
	)

	stats, err := New(store).RebuildIndex(context.Background(), root, nil, nil)
	require.NoError(t, err)

	recs := allRecords(t, store, stats.RootID)
	for path := range recs {
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		assert.NotRegexp(t, `^(node_modules|\.git|Library)`, filepath.ToSlash(rel))
	}
	assert.Contains(t, recs, filepath.Join(root, "web", "node_modules", "lib", "main.js"))
	assert.Contains(t, recs, filepath.Join(root, "web", "app.js"))
}

func TestRebuildIndex_CustomExclusions(t *testing.T) {
	store := setupStore(t)
	root := tempRoot(t)
	createTree(t, root, "node_modules/x.js", "build/out.bin", ".env")

	stats, err := New(store).RebuildIndex(context.Background(), root, &Config{
		Exclusions:    []string{"build"},
		IncludeHidden: true,
	}, nil)
	require.NoError(t, err)

	recs := allRecords(t, store, stats.RootID)
	assert.Contains(t, recs, filepath.Join(root, "node_modules", "x.js"))
	assert.Contains(t, recs, filepath.Join(root, ".env"))
	assert.NotContains(t, recs, filepath.Join(root, "build"))
}

func TestRebuildIndex_ParentIDs(t *testing.T) {
	store := setupStore(t)
	root := tempRoot(t)
	createTree(t, root, "top.txt", "a/b/c.txt")

	stats, err := New(store).RebuildIndex(context.Background(), root, &Config{BatchSize: 1}, nil)
	require.NoError(t, err)

	recs := allRecords(t, store, stats.RootID)
	dirA := recs[filepath.Join(root, "a")]
	dirB := recs[filepath.Join(root, "a", "b")]
	file := recs[filepath.Join(root, "a", "b", "c.txt")]

	assert.Nil(t, recs[filepath.Join(root, "top.txt")].ParentID)
	assert.Nil(t, dirA.ParentID)
	require.NotNil(t, dirB.ParentID)
	assert.Equal(t, dirA.ID, *dirB.ParentID)
	require.NotNil(t, file.ParentID)
	assert.Equal(t, dirB.ID, *file.ParentID)
}

func TestRebuildIndex_InvalidRoot(t *testing.T) {
	store := setupStore(t)
	idx := New(store)
	ctx := context.Background()

	_, err := idx.RebuildIndex(ctx, "", nil, nil)
	assert.ErrorIs(t, err, ErrRootRequired)

	_, err = idx.RebuildIndex(ctx, filepath.Join(tempRoot(t), "missing"), nil, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(tempRoot(t), "plain.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = idx.RebuildIndex(ctx, file, nil, nil)
	assert.ErrorIs(t, err, ErrNotDirectory)

	roots, err := store.FetchRoots(ctx)
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestRebuildIndex_SymlinkRoot(t *testing.T) {
	store := setupStore(t)
	target := tempRoot(t)
	createTree(t, target, "a.txt", "Folder/b.txt")

	link := filepath.Join(tempRoot(t), "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	stats, err := New(store).RebuildIndex(context.Background(), link, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, target, stats.RootPath)
	assert.Equal(t, int64(2), stats.FilesIndexed)
	assert.Equal(t, int64(1), stats.DirsIndexed)

	recs := allRecords(t, store, stats.RootID)
	assert.Contains(t, recs, filepath.Join(target, "Folder", "b.txt"))

	roots, err := store.FetchRoots(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, target, roots[0].Path)
}

func TestRebuildIndex_InProgress(t *testing.T) {
	store := setupStore(t)
	root := tempRoot(t)
	idx := New(store)

	require.True(t, idx.lock.TryAcquire())
	_, err := idx.RebuildIndex(context.Background(), root, nil, nil)
	assert.ErrorIs(t, err, ErrIndexInProgress)
	idx.lock.Release()

	// Another process holding the store lock file
	other := flock.New(store.LockPath())
	ok, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, ok)

	_, err = idx.RebuildIndex(context.Background(), root, nil, nil)
	assert.ErrorIs(t, err, ErrIndexInProgress)

	require.NoError(t, other.Unlock())
	_, err = idx.RebuildIndex(context.Background(), root, nil, nil)
	assert.NoError(t, err)
}

// failingStore fails InsertBatch once a number of batches have been committed
type failingStore struct {
	*storage.SQLiteStorage
	allowed int
	calls   int
}

func (f *failingStore) InsertBatch(ctx context.Context, entries []storage.IndexedEntry, parents storage.ParentIndex) error {
	f.calls++
	if f.calls > f.allowed {
		return errors.New("disk full")
	}
	return f.SQLiteStorage.InsertBatch(ctx, entries, parents)
}

func TestRebuildIndex_WriteFailureLeavesPartialRoot(t *testing.T) {
	base := setupStore(t)
	store := &failingStore{SQLiteStorage: base, allowed: 1}
	root := tempRoot(t)
	createTree(t, root, "1.txt", "2.txt", "3.txt", "4.txt")

	var events []Progress
	_, err := New(store).RebuildIndex(context.Background(), root, &Config{BatchSize: 2}, func(p Progress) {
		events = append(events, p)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	// The first batch stays committed; the root stats were never written
	r, err := base.GetRoot(context.Background(), root)
	require.NoError(t, err)
	assert.Nil(t, r.LastIndexed)
	assert.Zero(t, r.FileCount)

	n, err := base.CountFiles(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, events, 1)
	assert.Equal(t, ProgressBatchInserted, events[0].Kind)

	// A later successful rebuild repairs the root
	store.allowed = 100
	stats, err := New(store).RebuildIndex(context.Background(), root, &Config{BatchSize: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.FilesIndexed)
}

func TestRebuildIndex_FailureInvalidatesCache(t *testing.T) {
	base := setupStore(t)
	store := &failingStore{SQLiteStorage: base, allowed: 0}
	root := tempRoot(t)
	createTree(t, root, "a.txt")

	inv := &countingInvalidator{}
	_, err := New(store, WithCacheInvalidator(inv)).RebuildIndex(context.Background(), root, nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), inv.calls.Load())

	// Failures before the root's rows are touched leave the cache alone
	_, err = New(store, WithCacheInvalidator(inv)).RebuildIndex(context.Background(), filepath.Join(root, "missing"), nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), inv.calls.Load())
}

func TestRebuildIndex_FailedRebuildNotServedFromCache(t *testing.T) {
	base := setupStore(t)
	store := &failingStore{SQLiteStorage: base, allowed: 100}
	root := tempRoot(t)
	createTree(t, root, "alpha.txt")

	s, err := searcher.New(base, searcher.Options{})
	require.NoError(t, err)
	idx := New(store, WithCacheInvalidator(s))
	ctx := context.Background()

	_, err = idx.RebuildIndex(ctx, root, nil, nil)
	require.NoError(t, err)

	resp, err := s.Search(ctx, searcher.SearchRequest{Query: "alpha"}, 10)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	resp, err = s.Search(ctx, searcher.SearchRequest{Query: "alpha"}, 10)
	require.NoError(t, err)
	require.True(t, resp.CacheHit)

	require.NoError(t, os.Remove(filepath.Join(root, "alpha.txt")))
	createTree(t, root, "other.txt")
	store.allowed = store.calls
	_, err = idx.RebuildIndex(ctx, root, nil, nil)
	require.Error(t, err)

	resp, err = s.Search(ctx, searcher.SearchRequest{Query: "alpha"}, 10)
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
	assert.Empty(t, resp.Results)
}

func TestRebuildIndex_Cancelled(t *testing.T) {
	store := setupStore(t)
	root := tempRoot(t)
	createTree(t, root, "a.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(store).RebuildIndex(ctx, root, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type countingInvalidator struct{ calls atomic.Int32 }

func (c *countingInvalidator) InvalidateCache(context.Context) error {
	c.calls.Add(1)
	return nil
}

func TestRebuildIndex_ClockAndInvalidation(t *testing.T) {
	store := setupStore(t)
	root := tempRoot(t)
	createTree(t, root, "a.txt")

	inv := &countingInvalidator{}
	fixed := time.Unix(1700000000, 0)
	idx := New(store, WithClock(func() time.Time { return fixed }), WithCacheInvalidator(inv))

	_, err := idx.RebuildIndex(context.Background(), root, nil, nil)
	require.NoError(t, err)

	r, err := store.GetRoot(context.Background(), root)
	require.NoError(t, err)
	require.NotNil(t, r.LastIndexed)
	assert.Equal(t, fixed.Unix(), *r.LastIndexed)
	assert.Equal(t, int32(1), inv.calls.Load())
}

func TestRebuildAll(t *testing.T) {
	store := setupStore(t)
	rootA := tempRoot(t)
	rootB := tempRoot(t)
	createTree(t, rootA, "a.txt")
	createTree(t, rootB, "b1.txt", "b2.txt")

	idx := New(store)
	ctx := context.Background()
	_, err := idx.RebuildIndex(ctx, rootA, nil, nil)
	require.NoError(t, err)
	_, err = idx.RebuildIndex(ctx, rootB, nil, nil)
	require.NoError(t, err)

	createTree(t, rootA, "a2.txt")

	all, err := idx.RebuildAll(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	total := int64(0)
	for _, s := range all {
		total += s.FilesIndexed
	}
	assert.Equal(t, int64(4), total)
}

func TestEndToEnd_IndexAndSearch(t *testing.T) {
	store := setupStore(t)
	root := tempRoot(t)
	createTree(t, root, "a.txt", "Folder/b.txt")

	s, err := searcher.New(store, searcher.Options{})
	require.NoError(t, err)
	idx := New(store, WithCacheInvalidator(s))
	ctx := context.Background()

	_, err = idx.RebuildIndex(ctx, root, nil, nil)
	require.NoError(t, err)

	resp, err := s.Search(ctx, searcher.SearchRequest{Query: "a"}, 10)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a.txt", resp.Results[0].Name)

	resp, err = s.Search(ctx, searcher.SearchRequest{
		Query:   "b",
		Filters: query.Filters{FolderScope: filepath.Join(root, "Folder")},
	}, 10)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "b.txt", resp.Results[0].Name)

	resp, err = s.Search(ctx, searcher.SearchRequest{Query: "missing"}, 10)
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	// Rebuilding purges cached responses
	createTree(t, root, "another.txt")
	_, err = idx.RebuildIndex(ctx, root, nil, nil)
	require.NoError(t, err)
	resp, err = s.Search(ctx, searcher.SearchRequest{Query: "a"}, 10)
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
	assert.Len(t, resp.Results, 2)
}
