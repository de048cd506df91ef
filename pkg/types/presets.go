package types

import (
	"fmt"
	"time"
)

// FileType selects a group of extensions
type FileType string

const (
	FileTypeAll       FileType = "all"
	FileTypeDocuments FileType = "documents"
	FileTypeImages    FileType = "images"
	FileTypeCode      FileType = "code"
)

// SizePreset selects a lower bound on file size
type SizePreset string

const (
	SizeAny       SizePreset = "any"
	SizeOver1MB   SizePreset = "over1MB"
	SizeOver10MB  SizePreset = "over10MB"
	SizeOver100MB SizePreset = "over100MB"
)

// DatePreset selects a modification window ending now
type DatePreset string

const (
	DateAny         DatePreset = "any"
	DateLast24Hours DatePreset = "last24Hours"
	DateLast7Days   DatePreset = "last7Days"
	DateLast30Days  DatePreset = "last30Days"
)

var fileTypeExtensions = map[FileType][]string{
	FileTypeDocuments: {"pdf", "doc", "docx", "txt", "rtf", "pages"},
	FileTypeImages:    {"png", "jpg", "jpeg", "gif", "tiff", "heic", "webp"},
	FileTypeCode: {
		"swift", "m", "mm", "h", "hpp", "cpp", "c", "rs", "py",
		"js", "ts", "tsx", "json", "yaml", "yml", "md",
	},
}

// FileTypes lists the file type presets in display order
func FileTypes() []FileType {
	return []FileType{FileTypeAll, FileTypeDocuments, FileTypeImages, FileTypeCode}
}

// SizePresets lists the size presets in display order
func SizePresets() []SizePreset {
	return []SizePreset{SizeAny, SizeOver1MB, SizeOver10MB, SizeOver100MB}
}

// DatePresets lists the date presets in display order
func DatePresets() []DatePreset {
	return []DatePreset{DateAny, DateLast24Hours, DateLast7Days, DateLast30Days}
}

// Validate checks if the file type is known. The empty value means all.
func (t FileType) Validate() error {
	switch t {
	case "", FileTypeAll, FileTypeDocuments, FileTypeImages, FileTypeCode:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownFileType, string(t))
}

// Extensions returns the lowercase extensions the preset allows, or nil
// when every extension is allowed. The returned slice is a copy.
func (t FileType) Extensions() []string {
	exts, ok := fileTypeExtensions[t]
	if !ok {
		return nil
	}
	return append([]string(nil), exts...)
}

// Validate checks if the size preset is known. The empty value means any.
func (s SizePreset) Validate() error {
	switch s {
	case "", SizeAny, SizeOver1MB, SizeOver10MB, SizeOver100MB:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownSizePreset, string(s))
}

// MinimumBytes returns the inclusive lower size bound, or nil for any size.
// Sizes are decimal megabytes.
func (s SizePreset) MinimumBytes() *int64 {
	var n int64
	switch s {
	case SizeOver1MB:
		n = 1_000_000
	case SizeOver10MB:
		n = 10_000_000
	case SizeOver100MB:
		n = 100_000_000
	default:
		return nil
	}
	return &n
}

// Validate checks if the date preset is known. The empty value means any.
func (d DatePreset) Validate() error {
	switch d {
	case "", DateAny, DateLast24Hours, DateLast7Days, DateLast30Days:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownDatePreset, string(d))
}

// Window returns how far back the preset reaches, or zero for any date
func (d DatePreset) Window() time.Duration {
	switch d {
	case DateLast24Hours:
		return 24 * time.Hour
	case DateLast7Days:
		return 7 * 24 * time.Hour
	case DateLast30Days:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// ModifiedAfter returns the epoch-second lower bound on modification time
// relative to now, or nil for any date.
func (d DatePreset) ModifiedAfter(now time.Time) *int64 {
	window := d.Window()
	if window == 0 {
		return nil
	}
	ts := now.Add(-window).Unix()
	return &ts
}

// Presets bundles the three selections a search form offers
type Presets struct {
	FileType FileType
	Size     SizePreset
	Date     DatePreset
}

// Validate checks every selection
func (p Presets) Validate() error {
	if err := p.FileType.Validate(); err != nil {
		return err
	}
	if err := p.Size.Validate(); err != nil {
		return err
	}
	return p.Date.Validate()
}
