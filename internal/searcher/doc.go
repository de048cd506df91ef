// Package searcher executes compiled search plans against the file index.
//
// A search runs in three steps:
//   - compile the request (query.Compile), reporting pattern errors before
//     the store is touched
//   - fetch candidates with the plan's SQL, over-fetching when rows will be
//     post-filtered
//   - apply the regex, case-sensitive and boolean-term checks in memory and
//     truncate to the limit
//
// # Basic Usage
//
//	s, err := searcher.New(store, searcher.Options{})
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query:   "+invoice -draft 2024",
//	    Filters: query.Filters{Extensions: []string{"pdf"}},
//	}, 50)
//
//	for _, rec := range resp.Results {
//	    fmt.Println(rec.Path)
//	}
//
// # Caching
//
// Responses are cached in an LRU keyed by a hash of the full request and
// limit. Entries expire after Options.CacheTTL, and the indexer purges the
// cache through InvalidateCache when a rebuild finishes.
package searcher
