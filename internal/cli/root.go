// Package cli implements the archaeologist command-line interface.
//
// Every command loads configuration (flags → environment → archaeologist.yaml
// → defaults) and a charmbracelet logger in the root command's pre-run and
// passes both to subcommands through the command context.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/archaeologist/internal/config"
	"github.com/mvp-joe/archaeologist/internal/logging"
)

type ctxKey int

const configKey ctxKey = 0

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the root command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	root := &cobra.Command{
		Use:   "archaeologist",
		Short: "Archaeologist maps the import graph of a repository",
		Long: `Archaeologist clones a git repository, parses its JavaScript, TypeScript,
Python and notebook files, and stores the file-level import graph in Neo4j
or SQLite for visualization and analysis.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			logger := logging.New(cmd.ErrOrStderr(), level)

			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			if cfgFile != "" {
				logger.Debug("using config file", "path", cfgFile)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = logging.WithLogger(ctx, logger)
			ctx = context.WithValue(ctx, configKey, cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("archaeologist %s\ncommit: %s\nbuilt: %s\n", Version, GitCommit, BuildDate))

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./archaeologist.yaml or $HOME/.archaeologist/archaeologist.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(newServeCmd())
	root.AddCommand(newIngestCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newCyclesCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newMCPCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func loadConfig(cfgFile string) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	loader := config.NewLoader(cwd)
	if cfgFile != "" {
		loader = config.NewFileLoader(cwd, cfgFile)
	}
	return loader.Load()
}

// configFromContext returns the configuration loaded by the root command,
// or the defaults when none was attached.
func configFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}
