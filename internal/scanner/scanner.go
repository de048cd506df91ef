package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dshills/locate/internal/storage"
)

// Options configures a single scan
type Options struct {
	// Exclusions are names pruned when they appear directly under the root
	Exclusions []string
	// IncludeHidden keeps entries whose name starts with "."
	IncludeHidden bool
}

// EntryError reports a filesystem entry whose metadata could not be read
type EntryError struct {
	Path string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Scanner produces IndexedEntry values for a directory tree.
// It holds no state between scans and is safe for concurrent use.
type Scanner struct{}

// New creates a new Scanner instance.
func New() *Scanner {
	return &Scanner{}
}

// Stream returns a lazy sequence of entries below rootPath. The root itself
// is not emitted. Each entry carries rootID and a nil ParentID.
// The sequence yields at most one non-nil error, as its last element.
func (s *Scanner) Stream(ctx context.Context, rootPath string, rootID int64, opts Options) iter.Seq2[storage.IndexedEntry, error] {
	return func(yield func(storage.IndexedEntry, error) bool) {
		absRoot, err := filepath.Abs(rootPath)
		if err != nil {
			yield(storage.IndexedEntry{}, fmt.Errorf("failed to get absolute path: %w", err))
			return
		}
		// WalkDir does not descend into a symlinked root
		absRoot, err = filepath.EvalSymlinks(absRoot)
		if err != nil {
			yield(storage.IndexedEntry{}, &EntryError{Path: rootPath, Err: err})
			return
		}
		absRoot = filepath.Clean(absRoot)

		excluded := make(map[string]struct{}, len(opts.Exclusions))
		for _, name := range opts.Exclusions {
			excluded[name] = struct{}{}
		}

		stopped := false
		walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				if path == absRoot {
					return err
				}
				if d != nil && d.IsDir() {
					slog.Warn("skipping unreadable directory",
						slog.String("path", path),
						slog.String("error", err.Error()))
					return fs.SkipDir
				}
				return &EntryError{Path: path, Err: err}
			}

			if path == absRoot {
				return nil
			}

			name := d.Name()
			if skip(name, path, absRoot, excluded, opts.IncludeHidden) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return &EntryError{Path: path, Err: err}
			}

			if !yield(newEntry(rootID, path, info), nil) {
				stopped = true
				return fs.SkipAll
			}
			return nil
		})

		if stopped || walkErr == nil {
			return
		}
		var entryErr *EntryError
		if !errors.As(walkErr, &entryErr) && !errors.Is(walkErr, ctx.Err()) {
			walkErr = &EntryError{Path: absRoot, Err: walkErr}
		}
		if entryErr != nil {
			slog.Error("scan aborted", slog.String("path", entryErr.Path), slog.String("error", entryErr.Err.Error()))
		}
		yield(storage.IndexedEntry{}, walkErr)
	}
}

// Scan collects the whole sequence. On error the entries read so far are
// returned alongside it.
func (s *Scanner) Scan(ctx context.Context, rootPath string, rootID int64, opts Options) ([]storage.IndexedEntry, error) {
	var entries []storage.IndexedEntry
	for entry, err := range s.Stream(ctx, rootPath, rootID, opts) {
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func skip(name, path, root string, excluded map[string]struct{}, includeHidden bool) bool {
	if !includeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	if filepath.Dir(path) == root {
		if _, ok := excluded[name]; ok {
			return true
		}
	}
	return false
}

func newEntry(rootID int64, path string, info os.FileInfo) storage.IndexedEntry {
	name := norm.NFC.String(info.Name())
	entry := storage.IndexedEntry{
		RootID:      rootID,
		Name:        name,
		NameLower:   strings.ToLower(name),
		Path:        norm.NFC.String(path),
		IsDirectory: info.IsDir(),
		Extension:   extension(name),
	}

	if !entry.IsDirectory {
		size := info.Size()
		entry.Size = &size
	}

	mod := info.ModTime().Unix()
	entry.ModifiedAt = &mod
	entry.CreatedAt, entry.AccessedAt = statTimes(info)
	return entry
}

// extension returns the lowercase extension without its dot, or nil when the
// name has none. Dotfile names such as ".profile" have no extension.
func extension(name string) *string {
	ext := filepath.Ext(name)
	if ext == "" || ext == name || ext == "." {
		return nil
	}
	lower := strings.ToLower(ext[1:])
	return &lower
}
