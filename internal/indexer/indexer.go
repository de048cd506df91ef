package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/locate/internal/scanner"
	"github.com/dshills/locate/internal/storage"
)

// DefaultBatchSize is the number of entries committed per transaction
const DefaultBatchSize = 500

var (
	// ErrIndexInProgress is returned when another rebuild holds the writer lock
	ErrIndexInProgress = errors.New("indexing already in progress")
	// ErrRootRequired is returned for an empty root path
	ErrRootRequired = errors.New("root path is required")
	// ErrNotDirectory is returned when the root path is not a directory
	ErrNotDirectory = errors.New("root path is not a directory")
)

// DefaultExclusions are the top-level names skipped when Config.Exclusions is nil
var DefaultExclusions = []string{"Library", ".git", "node_modules"}

// CacheInvalidator is notified after a rebuild commits
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

// Indexer rebuilds the index for a root: scan -> batch -> commit
type Indexer struct {
	storage      storage.Storage
	scanner      *scanner.Scanner
	lock         IndexLock
	invalidators []CacheInvalidator
	now          func() time.Time
}

// Option configures an Indexer
type Option func(*Indexer)

// WithCacheInvalidator registers c to be purged after every successful rebuild
func WithCacheInvalidator(c CacheInvalidator) Option {
	return func(idx *Indexer) {
		idx.invalidators = append(idx.invalidators, c)
	}
}

// WithClock overrides the time source used for lastIndexed
func WithClock(now func() time.Time) Option {
	return func(idx *Indexer) {
		idx.now = now
	}
}

// Config contains configuration for a rebuild
type Config struct {
	BatchSize     int      // Entries per transaction (default: 500)
	Exclusions    []string // Top-level names to prune (default: DefaultExclusions)
	IncludeHidden bool     // Index names starting with "." (default: false)
	VolumeName    *string  // Volume label recorded on the root, nil keeps the existing one
}

// ProgressKind distinguishes progress events
type ProgressKind int

const (
	// ProgressBatchInserted follows each committed batch
	ProgressBatchInserted ProgressKind = iota
	// ProgressCompleted follows the final root stats update
	ProgressCompleted
)

func (k ProgressKind) String() string {
	if k == ProgressCompleted {
		return "completed"
	}
	return "batchInserted"
}

// Progress is a rebuild event. Count is the size of the committed batch and
// is zero for ProgressCompleted. Totals are cumulative.
type Progress struct {
	Kind       ProgressKind
	Count      int
	TotalFiles int64
	TotalDirs  int64
}

// ProgressFunc receives progress events in commit order. It runs on the
// committing goroutine and should return quickly.
type ProgressFunc func(Progress)

// Statistics contains statistics about a rebuild
type Statistics struct {
	RootID       int64
	RootPath     string
	FilesIndexed int64
	DirsIndexed  int64
	FilesRemoved int64 // rows deleted before reinserting
	Batches      int
	Duration     time.Duration
}

// New creates a new Indexer instance
func New(store storage.Storage, opts ...Option) *Indexer {
	idx := &Indexer{
		storage: store,
		scanner: scanner.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// RebuildIndex replaces every indexed entry under rootPath with a fresh scan.
//
// Batches commit in scan order, each in its own transaction. If the scan or a
// commit fails, batches already committed stay in the store and the root's
// stats are left untouched; rerunning the rebuild repairs the root.
func (idx *Indexer) RebuildIndex(ctx context.Context, rootPath string, config *Config, progress ProgressFunc) (*Statistics, error) {
	config = withDefaults(config)

	root, err := resolveRoot(rootPath)
	if err != nil {
		return nil, err
	}

	if !idx.lock.TryAcquire() {
		return nil, ErrIndexInProgress
	}
	defer idx.lock.Release()

	fileLock := NewFileLock(idx.storage.LockPath())
	acquired, err := fileLock.TryLock()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrIndexInProgress
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			slog.Warn("failed to release index lock", slog.String("error", err.Error()))
		}
	}()

	startTime := time.Now()
	slog.Info("rebuilding index", slog.String("root", root), slog.Int("batch_size", config.BatchSize))

	rootID, err := idx.storage.AddOrUpdateRoot(ctx, root, config.VolumeName)
	if err != nil {
		return nil, fmt.Errorf("failed to register root: %w", err)
	}

	removed, err := idx.storage.DeleteFilesByRoot(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear root: %w", err)
	}
	// Cached responses are stale from here on, even if the rebuild fails.
	defer idx.invalidate(ctx)

	stats := &Statistics{RootID: rootID, RootPath: root, FilesRemoved: removed}
	if err := idx.ingest(ctx, root, rootID, config, stats, progress); err != nil {
		return nil, err
	}

	if err := idx.storage.UpdateRootStats(ctx, rootID, stats.FilesIndexed, stats.DirsIndexed, idx.now().Unix()); err != nil {
		return nil, fmt.Errorf("failed to update root stats: %w", err)
	}

	if progress != nil {
		progress(Progress{Kind: ProgressCompleted, TotalFiles: stats.FilesIndexed, TotalDirs: stats.DirsIndexed})
	}

	stats.Duration = time.Since(startTime)
	slog.Info("index rebuilt",
		slog.String("root", root),
		slog.Int64("files", stats.FilesIndexed),
		slog.Int64("dirs", stats.DirsIndexed),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

func (idx *Indexer) invalidate(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for _, inv := range idx.invalidators {
		if err := inv.InvalidateCache(ctx); err != nil {
			slog.Warn("failed to invalidate cache", slog.String("error", err.Error()))
		}
	}
}

// ingest streams the scan into batches on one goroutine and commits them in
// order on another, so the walk continues while a batch is being written.
func (idx *Indexer) ingest(ctx context.Context, root string, rootID int64, config *Config, stats *Statistics, progress ProgressFunc) error {
	batches := make(chan []storage.IndexedEntry, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		batch := make([]storage.IndexedEntry, 0, config.BatchSize)
		opts := scanner.Options{Exclusions: config.Exclusions, IncludeHidden: config.IncludeHidden}

		for entry, err := range idx.scanner.Stream(gctx, root, rootID, opts) {
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			batch = append(batch, entry)
			if len(batch) < config.BatchSize {
				continue
			}
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
			batch = make([]storage.IndexedEntry, 0, config.BatchSize)
		}

		if len(batch) > 0 {
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		parents := storage.ParentIndex{}
		for batch := range batches {
			if err := idx.storage.InsertBatch(gctx, batch, parents); err != nil {
				return fmt.Errorf("failed to commit batch %d: %w", stats.Batches+1, err)
			}

			for i := range batch {
				if batch[i].IsDirectory {
					stats.DirsIndexed++
				} else {
					stats.FilesIndexed++
				}
			}
			stats.Batches++

			slog.Debug("batch committed",
				slog.Int("batch", stats.Batches),
				slog.Int("count", len(batch)),
				slog.Int64("files", stats.FilesIndexed),
				slog.Int64("dirs", stats.DirsIndexed))

			if progress != nil {
				progress(Progress{
					Kind:       ProgressBatchInserted,
					Count:      len(batch),
					TotalFiles: stats.FilesIndexed,
					TotalDirs:  stats.DirsIndexed,
				})
			}
		}
		return nil
	})

	return g.Wait()
}

// RebuildAll rebuilds every registered root in path order and stops at the
// first failure, returning the statistics of the roots that completed.
func (idx *Indexer) RebuildAll(ctx context.Context, config *Config, progress ProgressFunc) ([]*Statistics, error) {
	roots, err := idx.storage.FetchRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roots: %w", err)
	}

	all := make([]*Statistics, 0, len(roots))
	for _, root := range roots {
		stats, err := idx.RebuildIndex(ctx, root.Path, config, progress)
		if err != nil {
			return all, fmt.Errorf("rebuild %s: %w", root.Path, err)
		}
		all = append(all, stats)
	}
	return all, nil
}

// DefaultConfig returns the default rebuild configuration
func DefaultConfig() *Config {
	return &Config{
		BatchSize:  DefaultBatchSize,
		Exclusions: append([]string(nil), DefaultExclusions...),
	}
}

func withDefaults(config *Config) *Config {
	if config == nil {
		return DefaultConfig()
	}
	c := *config
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Exclusions == nil {
		c.Exclusions = append([]string(nil), DefaultExclusions...)
	}
	return &c
}

// resolveRoot returns the absolute, symlink-free form of rootPath after
// checking that it names an existing directory.
func resolveRoot(rootPath string) (string, error) {
	if rootPath == "" {
		return "", ErrRootRequired
	}
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}
	return filepath.Clean(abs), nil
}
