package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTypeExtensions(t *testing.T) {
	assert.Nil(t, FileTypeAll.Extensions())
	assert.Nil(t, FileType("").Extensions())
	assert.Contains(t, FileTypeDocuments.Extensions(), "pdf")
	assert.Contains(t, FileTypeImages.Extensions(), "heic")
	assert.Contains(t, FileTypeCode.Extensions(), "tsx")
	assert.NotContains(t, FileTypeCode.Extensions(), "pdf")

	// Callers may modify the result without affecting the preset
	exts := FileTypeImages.Extensions()
	exts[0] = "changed"
	assert.Equal(t, "png", FileTypeImages.Extensions()[0])
}

func TestSizePresetMinimumBytes(t *testing.T) {
	tests := []struct {
		preset SizePreset
		want   *int64
	}{
		{SizeAny, nil},
		{"", nil},
		{SizeOver1MB, int64Ptr(1_000_000)},
		{SizeOver10MB, int64Ptr(10_000_000)},
		{SizeOver100MB, int64Ptr(100_000_000)},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.preset.MinimumBytes())
		})
	}
}

func TestDatePresetModifiedAfter(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Nil(t, DateAny.ModifiedAfter(now))
	assert.Nil(t, DatePreset("").ModifiedAfter(now))

	got := DateLast24Hours.ModifiedAfter(now)
	require.NotNil(t, got)
	assert.Equal(t, now.Unix()-86_400, *got)

	got = DateLast7Days.ModifiedAfter(now)
	require.NotNil(t, got)
	assert.Equal(t, now.Unix()-604_800, *got)

	got = DateLast30Days.ModifiedAfter(now)
	require.NotNil(t, got)
	assert.Equal(t, now.Unix()-2_592_000, *got)
}

func TestPresetsValidate(t *testing.T) {
	assert.NoError(t, Presets{}.Validate())
	assert.NoError(t, Presets{FileType: FileTypeCode, Size: SizeOver1MB, Date: DateLast7Days}.Validate())

	assert.ErrorIs(t, Presets{FileType: "videos"}.Validate(), ErrUnknownFileType)
	assert.ErrorIs(t, Presets{Size: "huge"}.Validate(), ErrUnknownSizePreset)
	assert.ErrorIs(t, Presets{Date: "yesterday"}.Validate(), ErrUnknownDatePreset)
}

func TestPresetListsValidate(t *testing.T) {
	for _, ft := range FileTypes() {
		assert.NoError(t, ft.Validate())
	}
	for _, sp := range SizePresets() {
		assert.NoError(t, sp.Validate())
	}
	for _, dp := range DatePresets() {
		assert.NoError(t, dp.Validate())
	}
}

func int64Ptr(v int64) *int64 { return &v }
