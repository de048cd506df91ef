package mcp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/locate/internal/config"
	"github.com/dshills/locate/internal/indexer"
	"github.com/dshills/locate/internal/searcher"
	"github.com/dshills/locate/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "locate"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	config   *config.Config
	storage  storage.Storage
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	now      func() time.Time
}

// NewServer opens the store named by cfg and creates a new MCP server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.EnsureDatabaseDir(); err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	srch, err := searcher.New(store, cfg.SearcherOptions())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize searcher: %w", err)
	}

	// The searcher cache is purged after every rebuild
	idx := indexer.New(store, indexer.WithCacheInvalidator(srch))

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		config:   cfg,
		storage:  store,
		indexer:  idx,
		searcher: srch,
		now:      time.Now,
	}
	s.registerTools()

	return s, nil
}

// Serve runs the MCP server on stdio until ctx is done or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// Close releases the store without serving
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexFolderTool(), s.handleIndexFolder)
	s.mcp.AddTool(searchFilesTool(), s.handleSearchFiles)
	s.mcp.AddTool(listRootsTool(), s.handleListRoots)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
