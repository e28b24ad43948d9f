package commands

import (
	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var dir string

	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Categorize and summarize CIMB bank statements",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dir, "dir", ".", "project directory")

	rootCmd.AddCommand(
		newInitCommand(&dir),
		newImportCommand(&dir),
		newScanCommand(&dir),
		newSummaryCommand(&dir),
		newMonthsCommand(&dir),
		newListCommand(&dir),
		newRecategorizeCommand(&dir),
		newHistoryCommand(&dir),
		newExportCommand(&dir),
	)

	return rootCmd
}
