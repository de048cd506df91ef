package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/locate/pkg/types"
)

// indexFolderTool returns the tool definition for index_folder
func indexFolderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_folder",
		Description: "Scan a folder and replace its entries in the file index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the folder to index",
				},
				"include_hidden": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index names starting with '.'",
					"default":     false,
				},
				"batch_size": map[string]interface{}{
					"type":        "integer",
					"description": "Entries committed per transaction",
					"minimum":     1,
				},
				"volume_name": map[string]interface{}{
					"type":        "string",
					"description": "Volume label recorded on the root",
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchFilesTool returns the tool definition for search_files
func searchFilesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_files",
		Description: "Search indexed file and folder names. Supports +required and -excluded terms, regex, and filters",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms, or a regular expression when use_regex is set",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"minimum":     1,
				},
				"use_regex": map[string]interface{}{
					"type":    "boolean",
					"default": false,
				},
				"case_sensitive": map[string]interface{}{
					"type":    "boolean",
					"default": false,
				},
				"match_path": map[string]interface{}{
					"type":        "boolean",
					"description": "Match against the full path instead of the name",
					"default":     false,
				},
				"folder": map[string]interface{}{
					"type":        "string",
					"description": "Absolute folder path; only entries inside it are returned",
				},
				"extensions": map[string]interface{}{
					"type":        "array",
					"description": "Only return entries with one of these extensions",
					"items":       map[string]interface{}{"type": "string"},
				},
				"excluded_extensions": map[string]interface{}{
					"type":        "array",
					"description": "Drop entries with one of these extensions",
					"items":       map[string]interface{}{"type": "string"},
				},
				"exclude_files": map[string]interface{}{
					"type":    "boolean",
					"default": false,
				},
				"exclude_directories": map[string]interface{}{
					"type":    "boolean",
					"default": false,
				},
				"file_type": map[string]interface{}{
					"type": "string",
					"enum": enumOf(types.FileTypes()),
				},
				"size": map[string]interface{}{
					"type": "string",
					"enum": enumOf(types.SizePresets()),
				},
				"modified": map[string]interface{}{
					"type": "string",
					"enum": enumOf(types.DatePresets()),
				},
			},
			Required: []string{"query"},
		},
	}
}

// listRootsTool returns the tool definition for list_roots
func listRootsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_roots",
		Description: "List indexed folders with their file and directory counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query indexing status and statistics for a folder",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to an indexed folder",
				},
			},
			Required: []string{"path"},
		},
	}
}

func enumOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
