package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/archaeologist/internal/graph"
)

// Tool handler signature used by mcp-go.
type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// IngestRequest is the ingest_repository argument set.
type IngestRequest struct {
	RepoURL string `json:"repo_url"`
}

// IngestResponse summarizes a committed run.
type IngestResponse struct {
	Status          string `json:"status"`
	RunID           string `json:"run_id"`
	FilesDiscovered int    `json:"files_discovered"`
	FilesParsed     int    `json:"files_parsed"`
	FilesSkipped    int    `json:"files_skipped"`
	Edges           int    `json:"edges"`
	Unresolved      int    `json:"unresolved"`
	DurationMs      int64  `json:"duration_ms"`
}

// AddIngestTool registers ingest_repository.
func AddIngestTool(s *server.MCPServer, ing Ingester, logger *log.Logger) {
	tool := mcp.NewTool(
		"ingest_repository",
		mcp.WithDescription("Clone a git repository and replace the stored dependency graph with its file-level import graph (JavaScript, TypeScript, Python, notebooks). The previous graph is kept if ingestion fails."),
		mcp.WithString("repo_url",
			mcp.Required(),
			mcp.Description("Clone URL of the repository (e.g., 'https://github.com/org/repo.git')")),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, createIngestHandler(ing, logger))
}

func createIngestHandler(ing Ingester, logger *log.Logger) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req IngestRequest
		if err := bindArgs(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if strings.TrimSpace(req.RepoURL) == "" {
			return mcp.NewToolResultError("repo_url parameter is required"), nil
		}

		result, err := ing.Ingest(ctx, req.RepoURL)
		if err != nil {
			logger.Error("ingestion failed", "repo", req.RepoURL, "err", err)
			return mcp.NewToolResultError("ingestion failed"), nil
		}

		return marshalToolResponse(IngestResponse{
			Status:          "Ingestion complete",
			RunID:           result.RunID,
			FilesDiscovered: result.FilesDiscovered,
			FilesParsed:     result.FilesParsed,
			FilesSkipped:    result.FilesSkipped,
			Edges:           result.EdgesMerged,
			Unresolved:      result.Unresolved,
			DurationMs:      result.Duration.Milliseconds(),
		})
	}
}

// AddGraphTool registers get_graph.
func AddGraphTool(s *server.MCPServer, reader graph.Reader) {
	tool := mcp.NewTool(
		"get_graph",
		mcp.WithDescription("Return the stored dependency graph as {nodes:[{id, group}], links:[{source, target, type}]}. Node ids are repository-relative file paths."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createGraphHandler(reader))
}

func createGraphHandler(reader graph.Reader) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g, err := reader.Snapshot(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalToolResponse(g)
	}
}

// DependenciesRequest is the get_dependencies argument set.
type DependenciesRequest struct {
	Path       string `json:"path"`
	Direction  string `json:"direction"`
	Depth      int    `json:"depth"`
	MaxResults int    `json:"max_results"`
}

// AddDependenciesTool registers get_dependencies.
func AddDependenciesTool(s *server.MCPServer, reader graph.Reader) {
	tool := mcp.NewTool(
		"get_dependencies",
		mcp.WithDescription("List the files a file imports (dependencies) or the files that import it (dependents), transitively up to a depth."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Repository-relative file path (e.g., 'src/app.js')")),
		mcp.WithString("direction",
			mcp.Description("'dependencies' (default) or 'dependents'")),
		mcp.WithNumber("depth",
			mcp.Description("Traversal depth (default: 1, max: 10)")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to return (default: 100, max: 500)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createDependenciesHandler(reader))
}

func createDependenciesHandler(reader graph.Reader) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req DependenciesRequest
		if err := bindArgs(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if req.Path == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}

		op := graph.OperationDependencies
		switch req.Direction {
		case "", string(graph.OperationDependencies):
		case string(graph.OperationDependents):
			op = graph.OperationDependents
		default:
			return mcp.NewToolResultError(fmt.Sprintf("invalid direction: %s (must be one of: dependencies, dependents)", req.Direction)), nil
		}

		analysis, err := analyze(ctx, reader)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		response, err := analysis.Query(graph.QueryRequest{
			Operation:  op,
			Target:     req.Path,
			Depth:      clamp(req.Depth, graph.DefaultDepth, 1, graph.MaxDepth),
			MaxResults: clamp(req.MaxResults, graph.DefaultMaxResults, 1, 500),
		})
		if errors.Is(err, graph.ErrUnknownFile) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err != nil {
			return nil, fmt.Errorf("graph query failed: %w", err)
		}
		return marshalToolResponse(response)
	}
}

// CyclesResponse lists dependency cycles.
type CyclesResponse struct {
	Cycles [][]string `json:"cycles"`
	Count  int        `json:"count"`
}

// AddCyclesTool registers find_cycles.
func AddCyclesTool(s *server.MCPServer, reader graph.Reader) {
	tool := mcp.NewTool(
		"find_cycles",
		mcp.WithDescription("Find circular imports in the stored graph. Each cycle is a sorted list of the files that import each other, directly or transitively."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createCyclesHandler(reader))
}

func createCyclesHandler(reader graph.Reader) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		analysis, err := analyze(ctx, reader)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cycles, err := analysis.Cycles()
		if err != nil {
			return nil, err
		}
		return marshalToolResponse(CyclesResponse{Cycles: cycles, Count: len(cycles)})
	}
}

func analyze(ctx context.Context, reader graph.Reader) (*graph.Analysis, error) {
	snapshot, err := reader.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return graph.Analyze(snapshot)
}
