package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/archaeologist/internal/storage"
)

func newCheckCmd() *cobra.Command {
	var samples int

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check store connectivity and print graph counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if err := a.store.Ping(ctx); err != nil {
				fmt.Fprintf(out, "FAILURE: Could not connect to %s store\n", a.cfg.Store.Backend)
				return err
			}
			fmt.Fprintf(out, "SUCCESS: Connected to %s store\n", a.cfg.Store.Backend)

			stats, err := a.store.Stats(ctx, samples)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Node count: %d\n", stats.Nodes)
			fmt.Fprintf(out, "Relationship count: %d\n", stats.Relationships)

			sample, err := json.MarshalIndent(stats.Samples, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Sample files: %s\n", sample)
			return nil
		},
	}

	cmd.Flags().IntVar(&samples, "samples", storage.DefaultSampleMax, "number of sample file nodes to print")
	return cmd
}
