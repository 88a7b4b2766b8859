package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/planbak/internal/backup"
	"github.com/lherron/planbak/internal/cli/appctx"
)

type planRow struct {
	Op     string `json:"op"`
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Change string `json:"change"`
}

type applyReport struct {
	SessionID string               `json:"sessionId"`
	Approved  []string             `json:"approved"`
	DryRun    bool                 `json:"dryRun"`
	Plan      []planRow            `json:"plan,omitempty"`
	Result    *backup.ApplyResult  `json:"result,omitempty"`
	Summary   []backup.KindSummary `json:"summary"`
}

func newApplyCmd() *cobra.Command {
	var (
		src     sourceOptions
		sel     string
		approve []string
		revoke  []string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "apply [file|-]",
		Short: "Apply approved changes from an incoming snapshot",
		Long: `Apply computes the same diff as 'planbak diff' and writes the approved
changes to the local store in one transaction. Either every approved change
is written or none is.

The starting selection is chosen with --select:
  recommended  every addition and update, no deletion (default)
  all          every change, deletions included
  none         nothing

--approve and --revoke then adjust it by change key, e.g. --approve p1Deleted,
or by glob pattern, e.g. --revoke '*Deleted'. Records that belong to a document or checklist follow their parent's key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			payload, _, err := src.load(ctx, app, cmd, args)
			if err != nil {
				return err
			}
			session, err := openSession(ctx, app, payload)
			if err != nil {
				return err
			}

			if err := selectApprovals(session.Approvals, sel, approve, revoke); err != nil {
				return err
			}

			report := applyReport{
				SessionID: session.ID,
				Approved:  session.Approvals.Strings(),
				DryRun:    dryRun,
				Summary:   session.Summary(),
			}

			if dryRun {
				ops := backup.Plan(session.Diff, session.Approvals)
				report.Plan = make([]planRow, 0, len(ops))
				for _, op := range ops {
					report.Plan = append(report.Plan, planRow{
						Op:     op.Op.String(),
						Kind:   string(op.Record.Kind()),
						ID:     op.Record.RecordID(),
						Change: op.Key.String(),
					})
				}
				return app.Out.Render(report, func() error {
					if len(ops) == 0 {
						app.Out.Printf("Nothing to apply.\n")
						return nil
					}
					app.Out.PlanTable(ops)
					app.Out.Printf("\nDry run: %d write(s) planned, nothing applied.\n", len(ops))
					return nil
				})
			}

			result, err := session.Apply(ctx, app.Store)
			if err != nil {
				return err
			}
			report.Result = result

			return app.Out.Render(report, func() error {
				if result.Total() == 0 {
					app.Out.Printf("Nothing to apply.\n")
					return nil
				}
				app.Out.ApplyResultTable(result)
				return nil
			})
		}),
	}

	src.register(cmd)
	cmd.Flags().StringVar(&sel, "select", "recommended", "Starting selection: recommended, all or none")
	cmd.Flags().StringSliceVar(&approve, "approve", nil, "Change keys to approve")
	cmd.Flags().StringSliceVar(&revoke, "revoke", nil, "Change keys to revoke")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the planned writes without applying them")

	return cmd
}

func selectApprovals(approvals *backup.ApprovalSet, sel string, approve, revoke []string) error {
	switch sel {
	case "recommended":
		approvals.SelectRecommended()
	case "all":
		approvals.SelectAll()
	case "none":
		approvals.DeselectAll()
	default:
		return fmt.Errorf("invalid --select %q (want recommended, all or none)", sel)
	}

	if err := approvals.ApproveStrings(approve); err != nil {
		return err
	}
	return approvals.RevokeStrings(revoke)
}
