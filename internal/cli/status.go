package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/planbak/internal/cli/appctx"
	"github.com/lherron/planbak/internal/domain"
)

type statusReport struct {
	DBPath string              `json:"dbPath"`
	Device string              `json:"device"`
	Counts map[domain.Kind]int `json:"counts"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local store's record counts",
		Args:  cobra.NoArgs,
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			counts, err := app.Store.Count(cmd.Context())
			if err != nil {
				return err
			}

			report := statusReport{DBPath: app.DB.Path(), Device: app.Config.Device, Counts: counts}
			return app.Out.Render(report, func() error {
				app.Out.Printf("Database: %s\nDevice: %s\n\n", report.DBPath, report.Device)
				app.Out.CountTable(domain.Kinds(), counts)
				return nil
			})
		}),
	}
}
