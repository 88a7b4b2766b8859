package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/planbak/internal/cli/appctx"
)

func newMigrateCmd() *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run any pending database migrations",
		Long: `Migrate applies any pending SQL migrations to the database, creating it if
needed. Migrations are embedded in the planbak binary and tracked in the
schema_migrations table.

This command is safe to run multiple times. Use --status to show the
current schema version without changing anything.`,
		Args: cobra.NoArgs,
		RunE: appctx.WithApp(appctx.Options{NeedsDB: true, SkipMigrationCheck: true}, func(app *appctx.App, cmd *cobra.Command, args []string) error {
			if !statusOnly {
				applied, err := app.DB.Migrate()
				if err != nil {
					return fmt.Errorf("failed to run migrations: %w", err)
				}
				if applied {
					app.Logger.Info("migrations applied")
				}
			}

			status, err := app.DB.Status()
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			return app.Out.Render(status, func() error {
				switch {
				case status.Dirty:
					app.Out.Printf("Database is dirty at version %d.\n", status.Version)
				case status.Pending() > 0:
					app.Out.Printf("Database at version %d, %d pending migration(s).\n", status.Version, status.Pending())
				default:
					app.Out.Printf("Database is up to date (version %d).\n", status.Version)
				}
				return nil
			})
		}),
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "Show current migration status")

	return cmd
}
