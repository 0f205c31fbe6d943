package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/archaeologist/internal/acquire"
	"github.com/mvp-joe/archaeologist/internal/graph"
	"github.com/mvp-joe/archaeologist/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve GET /health, POST /ingest and GET /graph.

The store must be reachable: the server refuses to start otherwise.`,
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

			ing, err := a.newIngestor(acquire.NewGit(a.cfg.Acquire), cached.Invalidator())
			if err != nil {
				return err
			}
			defer ing.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			srv := server.New(ing, cached, server.Options{
				CORSOrigins: a.cfg.Server.CORSOrigins,
				Logger:      a.logger,
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
