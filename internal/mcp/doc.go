// Package mcp implements the Model Context Protocol (MCP) server for Locate.
//
// The MCP server exposes four tools to AI assistants:
//   - index_folder: Scan a folder and replace its entries in the index
//   - search_files: Search indexed names (or paths) with filters
//   - list_roots: List indexed folders and their counts
//   - get_status: Check indexing status for one folder
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started via the serve command:
//
//	locate serve
//
// # Tool: index_folder
//
//	Request:
//	{
//	  "name": "index_folder",
//	  "arguments": {"path": "/Users/me/Documents", "include_hidden": false}
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "files_indexed": 18230,
//	  "dirs_indexed": 1204,
//	  "files_removed": 18190,
//	  "batches": 39,
//	  "duration_ms": 2140
//	}
//
// # Tool: search_files
//
// Terms prefixed with + must appear and terms prefixed with - must not.
// The remaining terms are prefix-matched against names through the
// full-text index unless use_regex or match_path is set.
//
//	Request:
//	{
//	  "name": "search_files",
//	  "arguments": {
//	    "query": "invoice +2024 -draft",
//	    "file_type": "documents",
//	    "modified": "last30Days",
//	    "folder": "/Users/me/Documents"
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {"id": 812, "name": "invoice-2024-03.pdf", "path": "...", "is_directory": false, "size": 48213}
//	  ],
//	  "count": 1,
//	  "strategy": "fts",
//	  "cache_hit": false
//	}
//
// # Error Handling
//
// Handlers return *MCPError values carrying JSON-RPC style codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Folder not found or not a directory
//   - -32002: Indexing in progress
//   - -32004: Empty query
//   - -32005: Invalid regex
//
// # Logging
//
// The server logs to stderr; stdout is reserved for the protocol.
package mcp
