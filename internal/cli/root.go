package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the planbak command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "planbak",
		Short: "Back up, compare and selectively restore planner data",
		Long: `planbak exports the planner store to a snapshot, compares an incoming
snapshot (a file, an archived copy or a peer on the local network) against
the local store, and applies an approved subset of the changes in a single
transaction.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides PLANBAK_DB_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides PLANBAK_LOG_LEVEL)")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().Bool("yaml", false, "Output as YAML")
	rootCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	rootCmd.AddCommand(
		newExportCmd(),
		newDiffCmd(),
		newApplyCmd(),
		newServeCmd(),
		newFetchCmd(),
		newArchiveCmd(),
		newMigrateCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}
