package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/lherron/planbak/internal/archive"
	"github.com/lherron/planbak/internal/cli/appctx"
	"github.com/lherron/planbak/internal/domain"
	"github.com/lherron/planbak/internal/snapshot"
)

func newExportCmd() *cobra.Command {
	var toArchive bool

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export the local store to a snapshot file",
		Long: `Export writes the whole local store as a canonical JSON snapshot. Without
a path the snapshot is written to ./planbak-backup.json; a directory gets
that file name inside it. With --archive the snapshot is stored in the
configured archive under a generated name instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			snap, err := app.Store.Export(ctx)
			if err != nil {
				return err
			}
			snap.Meta.Device = app.Config.Device

			var result *snapshot.ExportResult
			if toArchive {
				result, err = exportToArchive(cmd, app, snap)
			} else {
				result, err = snapshot.Save(exportPath(args), snap)
			}
			if err != nil {
				return err
			}

			return app.Out.Render(result, func() error {
				app.Out.Printf("Exported to %s\nRev: %s\n\n", result.OutputPath, result.SnapshotRev)
				app.Out.CountTable(domain.Kinds(), result.Counts)
				return nil
			})
		}),
	}

	cmd.Flags().BoolVar(&toArchive, "archive", false, "Store the snapshot in the archive")

	return cmd
}

func exportPath(args []string) string {
	if len(args) == 0 {
		return snapshot.DefaultFileName
	}
	if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
		return filepath.Join(args[0], snapshot.DefaultFileName)
	}
	return args[0]
}

func exportToArchive(cmd *cobra.Command, app *appctx.App, snap *snapshot.Snapshot) (*snapshot.ExportResult, error) {
	a, err := app.Archive()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	data, err := snapshot.Stamp(snap, now)
	if err != nil {
		return nil, err
	}

	name := archive.NewName(now)
	if err := a.Put(cmd.Context(), name, data); err != nil {
		return nil, err
	}

	return &snapshot.ExportResult{
		OutputPath:  "archive:" + name,
		SnapshotRev: snap.Meta.SnapshotRev,
		Counts:      snap.Counts(),
	}, nil
}
