package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/archaeologist/internal/graph"
)

func newGraphCmd() *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the stored graph as JSON",
		Long:  `Print the stored graph in the {nodes, links} shape served by GET /graph.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			g, err := a.reader().Snapshot(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(g)
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "print without indentation")
	return cmd
}

func newCyclesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "Report circular imports in the stored graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			snapshot, err := a.reader().Snapshot(ctx)
			if err != nil {
				return err
			}
			analysis, err := graph.Analyze(snapshot)
			if err != nil {
				return err
			}
			cycles, err := analysis.Cycles()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(cycles)
			}
			if len(cycles) == 0 {
				fmt.Fprintln(out, "No dependency cycles found")
				return nil
			}
			fmt.Fprintf(out, "Found %d dependency cycle(s):\n", len(cycles))
			for i, c := range cycles {
				fmt.Fprintf(out, "  %d. %s\n", i+1, strings.Join(c, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print cycles as a JSON array")
	return cmd
}
