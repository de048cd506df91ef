package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/locate/internal/indexer"
	"github.com/dshills/locate/internal/query"
	"github.com/dshills/locate/internal/searcher"
	"github.com/dshills/locate/internal/storage"
	"github.com/dshills/locate/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeRootNotFound       = -32001 // Specified path is not a readable directory
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
	ErrorCodeInvalidPattern     = -32005 // Regex failed to compile
)

// handleIndexFolder handles the index_folder tool invocation
func (s *Server) handleIndexFolder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, err := pathArgument(request)
	if err != nil {
		return nil, err
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeRootNotFound, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	config := s.config.IndexerConfig()
	config.IncludeHidden = getBoolDefault(args, "include_hidden", config.IncludeHidden)
	config.BatchSize = getIntDefault(args, "batch_size", config.BatchSize)
	if config.BatchSize < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "batch_size must be positive", map[string]interface{}{
			"param": "batch_size",
			"value": config.BatchSize,
		})
	}
	if volume := getStringDefault(args, "volume_name", ""); volume != "" {
		config.VolumeName = &volume
	}

	stats, err := s.indexer.RebuildIndex(ctx, path, config, nil)
	if errors.Is(err, indexer.ErrIndexInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{
			"path": path,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":       true,
		"root_id":       stats.RootID,
		"path":          stats.RootPath,
		"files_indexed": stats.FilesIndexed,
		"dirs_indexed":  stats.DirsIndexed,
		"files_removed": stats.FilesRemoved,
		"batches":       stats.Batches,
		"duration_ms":   stats.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchFiles handles the search_files tool invocation
func (s *Server) handleSearchFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	text, _ := args["query"].(string)
	if strings.TrimSpace(text) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	maxLimit := s.config.Search.MaxLimit
	limit := getIntDefault(args, "limit", s.config.Search.DefaultLimit)
	if limit < 1 || limit > maxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	req, err := s.buildRequest(text, args)
	if err != nil {
		return nil, err
	}

	resp, err := s.searcher.Search(ctx, req, limit)
	if err != nil {
		var patternErr *query.InvalidPatternError
		if errors.As(err, &patternErr) || errors.Is(err, query.ErrEmptyRegex) {
			return nil, newMCPError(ErrorCodeInvalidPattern, "invalid regex", map[string]interface{}{
				"param":  "query",
				"reason": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(formatSearchResponse(resp))), nil
}

// buildRequest translates tool arguments into a search request
func (s *Server) buildRequest(text string, args map[string]interface{}) (searcher.SearchRequest, error) {
	req := searcher.SearchRequest{
		Query:         text,
		UseRegex:      getBoolDefault(args, "use_regex", false),
		CaseSensitive: getBoolDefault(args, "case_sensitive", false),
		MatchPath:     getBoolDefault(args, "match_path", false),
	}
	req.ExcludeFiles = getBoolDefault(args, "exclude_files", false)
	req.ExcludeDirectories = getBoolDefault(args, "exclude_directories", false)
	req.Extensions = getStringSlice(args, "extensions")
	req.ExcludedExtensions = getStringSlice(args, "excluded_extensions")

	if folder := getStringDefault(args, "folder", ""); folder != "" {
		if !filepath.IsAbs(folder) {
			return req, newMCPError(ErrorCodeInvalidParams, "invalid folder", map[string]interface{}{
				"param":  "folder",
				"reason": ErrPathNotAbsolute.Error(),
			})
		}
		req.FolderScope = folder
	}

	presets := types.Presets{
		FileType: types.FileType(getStringDefault(args, "file_type", "")),
		Size:     types.SizePreset(getStringDefault(args, "size", "")),
		Date:     types.DatePreset(getStringDefault(args, "modified", "")),
	}
	if err := presets.Validate(); err != nil {
		return req, newMCPError(ErrorCodeInvalidParams, "invalid preset", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	req.ApplyPresets(presets, s.now())

	return req, nil
}

func formatSearchResponse(resp *searcher.SearchResponse) map[string]interface{} {
	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, rec := range resp.Results {
		results = append(results, formatRecord(rec))
	}
	return map[string]interface{}{
		"results":     results,
		"count":       len(results),
		"strategy":    resp.Strategy.String(),
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
}

func formatRecord(rec storage.FileRecord) map[string]interface{} {
	out := map[string]interface{}{
		"id":           rec.ID,
		"name":         rec.Name,
		"path":         rec.Path,
		"is_directory": rec.IsDirectory,
	}
	if rec.Size != nil {
		out["size"] = *rec.Size
	}
	if rec.Extension != nil {
		out["extension"] = *rec.Extension
	}
	if rec.ModifiedAt != nil {
		out["modified_at"] = formatEpoch(*rec.ModifiedAt)
	}
	return out
}

// handleListRoots handles the list_roots tool invocation
func (s *Server) handleListRoots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roots, err := s.storage.FetchRoots(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list roots", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(roots))
	for _, root := range roots {
		items = append(items, formatRoot(root))
	}

	response := map[string]interface{}{
		"roots": items,
		"count": len(items),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func formatRoot(root storage.Root) map[string]interface{} {
	out := map[string]interface{}{
		"id":         root.ID,
		"path":       root.Path,
		"file_count": root.FileCount,
		"dir_count":  root.DirCount,
	}
	if root.VolumeName != nil {
		out["volume_name"] = *root.VolumeName
	}
	if root.LastIndexed != nil {
		out["last_indexed_at"] = formatEpoch(*root.LastIndexed)
	}
	return out
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := pathArgument(request)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, filepath.Clean(path))
	if errors.Is(err, storage.ErrNotFound) {
		response := map[string]interface{}{
			"indexed": false,
			"path":    path,
			"message": "Folder not indexed. Use the index_folder tool to index it.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed": status.Root.LastIndexed != nil,
		"root":    formatRoot(*status.Root),
		"statistics": map[string]interface{}{
			"files_count":   status.FilesCount,
			"dirs_count":    status.DirsCount,
			"index_size_mb": fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// arguments returns the request's argument object
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// pathArgument returns the arguments and the required "path" string
func pathArgument(request mcp.CallToolRequest) (map[string]interface{}, string, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, "", err
	}
	path, _ := args["path"].(string)
	if path == "" {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	return args, path, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func formatEpoch(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter. JSON arrays decode as
// []interface{}; non-string items are skipped.
func getStringSlice(args map[string]interface{}, key string) []string {
	switch val := args[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
