package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/archaeologist/internal/acquire"
	"github.com/mvp-joe/archaeologist/internal/graph"
	"github.com/mvp-joe/archaeologist/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing the tools
ingest_repository, get_graph, get_dependencies and find_cycles. Logs go to
stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if err := a.store.Ping(ctx); err != nil {
				return fmt.Errorf("refusing to serve: %w", err)
			}

			cached, err := graph.NewCachedReader(a.reader(), a.cfg.Server.CacheTTL)
			if err != nil {
				return err
			}
			defer cached.Close()

			var ing mcp.Ingester
			if !readOnly {
				ingestor, err := a.newIngestor(acquire.NewGit(a.cfg.Acquire), cached.Invalidator())
				if err != nil {
					return err
				}
				defer ingestor.Close()
				ing = ingestor
			}

			return mcp.NewServer(ing, cached, a.logger).Serve(ctx)
		},
	}

	cmd.Flags().BoolVar(&readOnly, "read-only", false, "do not expose ingest_repository")
	return cmd
}
