package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/planbak/internal/backup"
	"github.com/lherron/planbak/internal/cli/appctx"
)

type diffReport struct {
	SessionID   string               `json:"sessionId"`
	Source      string               `json:"source"`
	IncomingRev string               `json:"incomingRev"`
	Summary     []backup.KindSummary `json:"summary"`
	Changes     []backup.Change      `json:"changes"`
}

func newDiffCmd() *cobra.Command {
	var (
		src     sourceOptions
		records bool
	)

	cmd := &cobra.Command{
		Use:   "diff [file|-]",
		Short: "Compare an incoming snapshot with the local store",
		Long: `Diff computes the per-kind difference between the local store and an
incoming snapshot and lists every change with its key. Keys are the record
id followed by Added, Updated or Deleted, and are what apply --approve and
--revoke accept.

The selection column shows the default policy: additions and updates are
selected, deletions are shown but not selected.`,
		Args: cobra.MaximumNArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			payload, origin, err := src.load(ctx, app, cmd, args)
			if err != nil {
				return err
			}
			session, err := openSession(ctx, app, payload)
			if err != nil {
				return err
			}

			changes := session.Changes()
			report := diffReport{
				SessionID:   session.ID,
				Source:      origin,
				IncomingRev: session.IncomingRev,
				Summary:     session.Summary(),
				Changes:     changes,
			}
			if report.Changes == nil {
				report.Changes = []backup.Change{}
			}

			return app.Out.Render(report, func() error {
				app.Out.Printf("Source: %s\nIncoming rev: %s\n\n", origin, session.IncomingRev)
				if session.Diff.IsEmpty() {
					app.Out.Printf("No changes.\n")
					return nil
				}
				app.Out.SummaryTable(report.Summary)
				app.Out.Printf("\n")
				app.Out.ChangeTable(changes, nil)
				if records {
					app.Out.Printf("\n")
					return app.Out.RecordDiffs(changes)
				}
				return nil
			})
		}),
	}

	src.register(cmd)
	cmd.Flags().BoolVar(&records, "records", false, "Show a unified diff for every updated record")

	return cmd
}
