package query

import (
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/dshills/locate/pkg/types"
)

// Filters are the structural restrictions shared by every strategy.
// Nil bounds are open; size and time bounds are inclusive.
type Filters struct {
	ExcludeFiles       bool
	ExcludeDirectories bool

	Extensions         []string // allow-list, matched case-insensitively
	ExcludedExtensions []string // deny-list, entries without an extension are kept

	MinSize *int64
	MaxSize *int64

	ModifiedAfter  *int64 // epoch seconds
	ModifiedBefore *int64

	// FolderScope restricts results to this directory and its descendants
	FolderScope string
}

// ApplyPresets narrows f by the preset selections. A preset that imposes no
// restriction leaves the corresponding field as it was.
func (f *Filters) ApplyPresets(p types.Presets, now time.Time) {
	if exts := p.FileType.Extensions(); exts != nil {
		f.Extensions = exts
	}
	if minSize := p.Size.MinimumBytes(); minSize != nil {
		f.MinSize = minSize
	}
	if after := p.Date.ModifiedAfter(now); after != nil {
		f.ModifiedAfter = after
	}
}

// matchesNothing reports whether the kind filters exclude every entry
func (f Filters) matchesNothing() bool {
	return f.ExcludeFiles && f.ExcludeDirectories
}

// scope returns the cleaned, NFC-normalised folder scope, or "" when unset.
// Indexed paths are stored in NFC.
func (f Filters) scope() string {
	if strings.TrimSpace(f.FolderScope) == "" {
		return ""
	}
	return norm.NFC.String(filepath.Clean(f.FolderScope))
}

// apply adds the SQL form of f to b. Column names are qualified by alias "f".
func (f Filters) apply(b *Builder) {
	switch {
	case f.ExcludeFiles:
		b.Where("f.is_directory = 1")
	case f.ExcludeDirectories:
		b.Where("f.is_directory = 0")
	}

	b.In("f.extension", normalizeExtensions(f.Extensions))
	b.NotIn("f.extension", normalizeExtensions(f.ExcludedExtensions))

	if f.MinSize != nil {
		b.Where("f.size >= ?", *f.MinSize)
	}
	if f.MaxSize != nil {
		b.Where("f.size <= ?", *f.MaxSize)
	}
	if f.ModifiedAfter != nil {
		b.Where("f.modified_at >= ?", *f.ModifiedAfter)
	}
	if f.ModifiedBefore != nil {
		b.Where("f.modified_at <= ?", *f.ModifiedBefore)
	}

	if scope := f.scope(); scope != "" {
		b.Where(`f.path LIKE ? ESCAPE '\'`, EscapeLike(scope)+"%")
	}
}

// InScope reports whether path lies inside the folder scope. LIKE is ASCII
// case-insensitive and has no notion of path boundaries, so scoped SQL
// results are re-checked with this.
func (f Filters) InScope(path string) bool {
	scope := f.scope()
	if scope == "" {
		return true
	}
	if path == scope {
		return true
	}
	if strings.HasSuffix(scope, string(filepath.Separator)) {
		return strings.HasPrefix(path, scope)
	}
	return strings.HasPrefix(path, scope+string(filepath.Separator))
}

func normalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return nil
	}
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
