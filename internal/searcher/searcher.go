package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/locate/internal/query"
	"github.com/dshills/locate/internal/storage"
)

const (
	// DefaultLimit applies when a caller passes a non-positive limit
	DefaultLimit = 50
	// DefaultMaxLimit caps the number of results for interactive search
	DefaultMaxLimit = 200
	// DefaultCacheSize is the number of responses kept by the LRU
	DefaultCacheSize = 256
	// DefaultCacheTTL bounds how long a cached response is served
	DefaultCacheTTL = 30 * time.Second
)

// SearchRequest is a raw query plus filter selections
type SearchRequest = query.Request

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results  []storage.FileRecord
	Strategy query.Strategy
	Duration time.Duration
	CacheHit bool
}

// Options configures a Searcher. Zero values select the defaults;
// a negative CacheSize disables caching.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	CacheSize    int
	CacheTTL     time.Duration
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher runs search requests against a store
type Searcher struct {
	storage storage.Storage
	opts    Options
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// New creates a new Searcher instance
func New(store storage.Storage, opts Options) (*Searcher, error) {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = DefaultMaxLimit
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}

	s := &Searcher{storage: store, opts: opts}
	if opts.CacheSize > 0 {
		cache, err := lru.New[[32]byte, *cacheEntry](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Search compiles req, runs it and returns at most limit records.
// Invalid patterns fail before the store is queried.
func (s *Searcher) Search(ctx context.Context, req SearchRequest, limit int) (*SearchResponse, error) {
	startTime := time.Now()

	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	limit = min(limit, s.opts.MaxLimit)

	plan, err := query.Compile(req, limit)
	if err != nil {
		return nil, err
	}

	key := computeQueryHash(req, limit)
	if cached := s.checkCache(key); cached != nil {
		cached.CacheHit = true
		cached.Duration = time.Since(startTime)
		return cached, nil
	}

	results, err := s.execute(ctx, plan)
	if err != nil {
		return nil, err
	}

	response := &SearchResponse{
		Results:  results,
		Strategy: plan.Strategy,
		Duration: time.Since(startTime),
	}
	s.storeInCache(key, response)
	return response, nil
}

func (s *Searcher) execute(ctx context.Context, plan *query.Plan) ([]storage.FileRecord, error) {
	if plan.Strategy == query.StrategyEmpty {
		return []storage.FileRecord{}, nil
	}

	candidates, err := s.storage.QueryFiles(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if !plan.PostFilter {
		return truncate(candidates, plan.Limit), nil
	}

	results := make([]storage.FileRecord, 0, min(len(candidates), plan.Limit))
	for _, rec := range candidates {
		if !plan.Keep(rec) {
			continue
		}
		results = append(results, rec)
		if len(results) == plan.Limit {
			break
		}
	}
	return results, nil
}

// SearchByName runs a plain name search with no filters
func (s *Searcher) SearchByName(ctx context.Context, text string, limit int) ([]storage.FileRecord, error) {
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	return s.storage.SearchByName(ctx, text, limit)
}

// InvalidateCache drops every cached response
func (s *Searcher) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
	return nil
}

// checkCache returns a copy of a live cached response, or nil
func (s *Searcher) checkCache(key [32]byte) *SearchResponse {
	if s.cache == nil {
		return nil
	}

	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	entry, ok := s.cache.Get(key)
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}
	return copySearchResponse(entry.response)
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(key [32]byte, response *SearchResponse) {
	if s.cache == nil {
		return
	}
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(s.opts.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Results = make([]storage.FileRecord, len(src.Results))
	for i, rec := range src.Results {
		dst.Results[i] = copyRecord(rec)
	}
	return &dst
}

func copyRecord(rec storage.FileRecord) storage.FileRecord {
	rec.ParentID = clonePtr(rec.ParentID)
	rec.Size = clonePtr(rec.Size)
	rec.Extension = clonePtr(rec.Extension)
	rec.ModifiedAt = clonePtr(rec.ModifiedAt)
	rec.CreatedAt = clonePtr(rec.CreatedAt)
	rec.AccessedAt = clonePtr(rec.AccessedAt)
	return rec
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest, limit int) [32]byte {
	var data strings.Builder
	fmt.Fprintf(&data, "%q|%t|%t|%t|%d", req.Query, req.UseRegex, req.CaseSensitive, req.MatchPath, limit)

	f := req.Filters
	fmt.Fprintf(&data, "|kind:%t,%t", f.ExcludeFiles, f.ExcludeDirectories)
	fmt.Fprintf(&data, "|ext:%q|noext:%q", f.Extensions, f.ExcludedExtensions)
	fmt.Fprintf(&data, "|size:%s,%s", bound(f.MinSize), bound(f.MaxSize))
	fmt.Fprintf(&data, "|mod:%s,%s", bound(f.ModifiedAfter), bound(f.ModifiedBefore))
	fmt.Fprintf(&data, "|scope:%q", f.FolderScope)

	return sha256.Sum256([]byte(data.String()))
}

func bound(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func truncate(records []storage.FileRecord, limit int) []storage.FileRecord {
	if len(records) > limit {
		return records[:limit]
	}
	return records
}
