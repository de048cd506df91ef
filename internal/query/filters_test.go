package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/locate/pkg/types"
)

func TestFilters_ApplyPresets(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var f Filters
	f.ApplyPresets(types.Presets{
		FileType: types.FileTypeImages,
		Size:     types.SizeOver10MB,
		Date:     types.DateLast24Hours,
	}, now)

	assert.Contains(t, f.Extensions, "jpg")
	require.NotNil(t, f.MinSize)
	assert.Equal(t, int64(10_000_000), *f.MinSize)
	require.NotNil(t, f.ModifiedAfter)
	assert.Equal(t, now.Add(-24*time.Hour).Unix(), *f.ModifiedAfter)
}

func TestFilters_ApplyPresetsKeepsExplicitValues(t *testing.T) {
	f := Filters{Extensions: []string{"go"}, MinSize: int64p(5)}
	f.ApplyPresets(types.Presets{FileType: types.FileTypeAll, Size: types.SizeAny}, time.Now())

	assert.Equal(t, []string{"go"}, f.Extensions)
	assert.Equal(t, int64(5), *f.MinSize)
	assert.Nil(t, f.ModifiedAfter)
}

func TestFilters_ApplySQL(t *testing.T) {
	b := &Builder{}
	Filters{
		ExcludeDirectories: true,
		Extensions:         []string{".TXT", " md "},
		MaxSize:            int64p(100),
	}.apply(b)

	clause := b.Clause()
	assert.Contains(t, clause, "f.is_directory = 0")
	assert.Contains(t, clause, "f.extension IN")
	assert.Contains(t, clause, "f.size <= ?")
	assert.Equal(t, []any{"txt", "md", int64(100)}, b.Args())
}

func TestFilters_ScopeNormalisedToNFC(t *testing.T) {
	// Decomposed scope, composed indexed paths
	f := Filters{FolderScope: "/data/Cafe\u0301/"}

	assert.True(t, f.InScope("/data/Caf\u00e9/menu.txt"))
	assert.False(t, f.InScope("/data/Cafe/menu.txt"))

	b := &Builder{}
	f.apply(b)
	assert.Equal(t, []any{"/data/Caf\u00e9%"}, b.Args())
}
