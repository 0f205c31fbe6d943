// Package mcp exposes ingestion and graph queries as Model Context Protocol
// tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/archaeologist/internal/graph"
	"github.com/mvp-joe/archaeologist/internal/indexer"
)

const (
	serverName    = "archaeologist"
	serverVersion = "1.0.0"
)

// Ingester runs one ingestion.
type Ingester interface {
	Ingest(ctx context.Context, location string) (*indexer.Result, error)
}

// Server wires the archaeologist tools into an MCP server.
type Server struct {
	mcp    *server.MCPServer
	logger *log.Logger
}

// NewServer registers every tool. A nil ingester leaves ingest_repository
// out, for read-only deployments.
func NewServer(ing Ingester, reader graph.Reader, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)

	if ing != nil {
		AddIngestTool(s, ing, logger)
	}
	AddGraphTool(s, reader)
	AddDependenciesTool(s, reader)
	AddCyclesTool(s, reader)

	return &Server{mcp: s, logger: logger}
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Serve speaks MCP on stdin/stdout until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	return s.ServeIO(ctx, os.Stdin, os.Stdout)
}

// ServeIO speaks MCP on the given streams.
func (s *Server) ServeIO(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("starting MCP server on stdio")
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
