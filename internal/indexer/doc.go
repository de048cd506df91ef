// Package indexer rebuilds the file index for a root directory.
//
// # Basic Usage
//
//	idx := indexer.New(store, indexer.WithCacheInvalidator(searcher))
//
//	stats, err := idx.RebuildIndex(ctx, "/Users/dev/Documents", nil, func(p indexer.Progress) {
//	    fmt.Printf("%s: %d files, %d dirs\n", p.Kind, p.TotalFiles, p.TotalDirs)
//	})
//
// # Rebuild Protocol
//
// A rebuild is always a full replace:
//
//  1. Upsert the root row, keeping its id
//  2. Delete every file row owned by the root
//  3. Stream the scanner's entries into batches (default 500) and commit each
//     batch in its own transaction, emitting a ProgressBatchInserted event
//  4. Flush the final partial batch
//  5. Record file count, directory count and the rebuild time on the root
//  6. Emit ProgressCompleted and purge registered caches
//
// Scanning and committing run on separate goroutines joined by an errgroup.
// Batches still commit one at a time, in scan order.
//
// # Failure
//
// A scan or write error aborts the rebuild. Batches that already committed
// remain and the root's stats are not updated, so the root is partially
// indexed until a later rebuild succeeds.
//
// # Locking
//
// Only one rebuild runs at a time per Indexer (IndexLock), and per store file
// across processes (a gofrs/flock lock on "<store>.lock"). A rebuild that
// cannot take either lock fails fast with ErrIndexInProgress.
//
// # Parent Links
//
// Directory rows inserted during a rebuild are remembered by path, so every
// entry below them gets its ParentID filled in. Direct children of the root
// have no parent row.
package indexer
