package commands

import (
	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/buildinfo"
	"github.com/fintrack-dev/fintrack/internal/logger"
)

type globalFlags struct {
	dir      string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "fintrack",
		Short:   "Personal finance tracker for bank statement exports",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("log-level") {
				return nil
			}
			log, err := logger.New(g.logLevel)
			if err != nil {
				return err
			}
			cmd.SetContext(logger.WithContext(cmd.Context(), log))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.dir, "dir", ".", "project directory")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to fintrack.yaml")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(g),
		newHistoryCommand(g),
		newListCommand(g),
		newStatsCommand(g),
		newSummaryCommand(g),
		newCategoryCommand(g),
		newRecategorizeCommand(g),
		newEnrichCommand(g),
		newServeCommand(g),
	)

	return rootCmd
}
