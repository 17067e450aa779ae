package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/exfor-index/internal/query"
	"github.com/dshills/exfor-index/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "x4index"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	store  storage.Storage
	query  *query.Service
	layout storage.Layout
	logger *slog.Logger
}

// NewServer opens the index built in layout.Dir and registers the query tools
func NewServer(layout storage.Layout) (*Server, error) {
	if err := validateIndexDir(layout); err != nil {
		return nil, err
	}

	store, err := layout.OpenIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:    mcpServer,
		store:  store,
		query:  query.NewService(store, layout.FS(), layout),
		layout: layout,
		logger: slog.Default(),
	}

	s.registerTools()
	return s, nil
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	s.logger.Info("serving index over MCP stdio", slog.String("dir", s.layout.Dir))
	return server.ServeStdio(s.mcp)
}

// Close releases the index
func (s *Server) Close() error {
	return s.store.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(searchReactionsTool(), s.handleSearchReactions)
	s.mcp.AddTool(relatedEntriesTool(), s.handleRelatedEntries)
	s.mcp.AddTool(listErrorsTool(), s.handleListErrors)
	s.mcp.AddTool(queryArchiveTool(), s.handleQueryArchive)
}
