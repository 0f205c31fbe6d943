package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/archaeologist/internal/acquire"
	"github.com/mvp-joe/archaeologist/internal/indexer"
)

func newIngestCmd() *cobra.Command {
	var (
		local bool
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <repo-url>",
		Short: "Replace the stored graph with a repository's import graph",
		Long: `Clone a repository (shallow, into acquire.workdir) and rebuild the stored
dependency graph from it in a single transaction. With --local the argument
is an existing directory that is read in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			var acq acquire.Acquirer = acquire.NewGit(a.cfg.Acquire)
			if local {
				acq = acquire.NewLocal(a.cfg.Acquire.GitPath)
			}

			var progress indexer.Observer = indexer.NoOpObserver{}
			if !quiet {
				progress = NewProgressObserver(cmd.ErrOrStderr())
			}

			ing, err := a.newIngestor(acq, progress)
			if err != nil {
				return err
			}
			defer ing.Close()

			result, err := ing.Ingest(ctx, args[0])
			if err != nil {
				return err
			}

			if !quiet {
				printResult(cmd.OutOrStdout(), result)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "ingest an existing directory instead of cloning")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	return cmd
}

func printResult(w io.Writer, r *indexer.Result) {
	fmt.Fprintf(w, "Run:        %s\n", r.RunID)
	if r.Source != nil && r.Source.Revision != "" {
		fmt.Fprintf(w, "Revision:   %s", r.Source.Revision)
		if r.Source.Branch != "" {
			fmt.Fprintf(w, " (%s)", r.Source.Branch)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Files:      %s discovered, %s parsed, %s skipped\n",
		formatNumber(r.FilesDiscovered), formatNumber(r.FilesParsed), formatNumber(r.FilesSkipped))
	fmt.Fprintf(w, "Edges:      %s\n", formatNumber(r.EdgesMerged))
	fmt.Fprintf(w, "Unresolved: %s\n", formatNumber(r.Unresolved))
}
