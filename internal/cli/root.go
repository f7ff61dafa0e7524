package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/dispo/internal/version"
)

// NewRootCmd assembles the dispo command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "dispo",
		Short:   "dispo - incoming letter disposition tracking",
		Version: version.String(),
		Long: `dispo registers incoming letters, routes them down the office hierarchy
as dispositions, and tracks who has read and executed them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	BindGlobalFlags(rootCmd)

	rootCmd.AddCommand(InitCmd())
	rootCmd.AddCommand(SeedCmd())
	rootCmd.AddCommand(UserCmd())

	// Letter workflow
	rootCmd.AddCommand(LetterCmd())
	rootCmd.AddCommand(DisposeCmd())
	rootCmd.AddCommand(ReadCmd())
	rootCmd.AddCommand(ExecuteCmd())

	// Reporting
	rootCmd.AddCommand(TimelineCmd())
	rootCmd.AddCommand(ActivityCmd())
	rootCmd.AddCommand(TagsCmd())

	return rootCmd
}
