package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lherron/planbak/internal/archive"
	"github.com/lherron/planbak/internal/cli/appctx"
	"github.com/lherron/planbak/internal/snapshot"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage archived snapshots",
		Long: `The archive is a local directory (PLANBAK_ARCHIVE_DIR) or, when
PLANBAK_S3_BUCKET is set, an S3-compatible bucket.`,
	}

	cmd.AddCommand(newArchiveListCmd(), newArchivePutCmd(), newArchiveGetCmd())
	return cmd
}

func newArchiveListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived snapshots",
		Args:  cobra.NoArgs,
		RunE: appctx.WithApp(appctx.ConfigOnly(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			a, err := app.Archive()
			if err != nil {
				return err
			}
			entries, err := a.List(cmd.Context())
			if err != nil {
				return err
			}

			return app.Out.Render(entries, func() error {
				if len(entries) == 0 {
					app.Out.Printf("Archive is empty.\n")
					return nil
				}
				app.Out.EntryTable(entries)
				return nil
			})
		}),
	}
}

func newArchivePutCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Validate a snapshot file and store it in the archive",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.ConfigOnly(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			_, data, err := snapshot.Load(args[0])
			if err != nil {
				return err
			}

			a, err := app.Archive()
			if err != nil {
				return err
			}
			if name == "" {
				name = archive.NewName(time.Now())
			}
			if err := a.Put(cmd.Context(), name, data); err != nil {
				return err
			}

			entry := archive.Entry{Name: name, Size: int64(len(data)), ModTime: time.Now()}
			return app.Out.Render(entry, func() error {
				app.Out.Printf("Archived %s as %s\n", args[0], name)
				return nil
			})
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "Archive name (default: generated from the current time)")
	return cmd
}

func newArchiveGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name> [dest]",
		Short: "Copy an archived snapshot to a file or stdout",
		Args:  cobra.RangeArgs(1, 2),
		RunE: appctx.WithApp(appctx.ConfigOnly(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			a, err := app.Archive()
			if err != nil {
				return err
			}
			data, err := a.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if len(args) == 1 || args[1] == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(args[1], data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[1], err)
			}
			return nil
		}),
	}
}
