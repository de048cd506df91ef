// Package types provides the caller-facing search presets for Locate.
//
// A search form offers three coarse selections on top of the raw query:
//
//	p := types.Presets{
//	    FileType: types.FileTypeDocuments, // pdf, doc, docx, txt, rtf, pages
//	    Size:     types.SizeOver10MB,      // size >= 10,000,000 bytes
//	    Date:     types.DateLast7Days,     // modified within the last 7 days
//	}
//
// Each preset translates into a plain filter value. FileType yields an
// extension allow-list, SizePreset a minimum byte count and DatePreset a
// modification lower bound computed from a caller-supplied clock. The "all"
// and "any" presets, and the empty string, impose no restriction.
//
// Sizes use decimal megabytes (1 MB = 1,000,000 bytes).
package types
