// Package scanner walks a root directory and yields one storage.IndexedEntry
// per file or directory below it.
//
// The walk is lazy: Stream returns an iter.Seq2 that performs I/O only as the
// caller ranges over it, so a consumer can batch and commit entries while the
// walk is still running. Breaking out of the loop stops the walk.
//
// Skipping rules:
//   - names beginning with "." are skipped (directories with their subtree)
//     unless Options.IncludeHidden is set
//   - direct children of the root whose name is listed in Options.Exclusions
//     are pruned with their subtree; deeper entries with the same name are kept
//
// A failure to read one entry's metadata ends the sequence with an
// *EntryError. Directories that cannot be listed are logged and skipped.
package scanner
