package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/lherron/planbak/internal/archive"
	"github.com/lherron/planbak/internal/cli/appctx"
	"github.com/lherron/planbak/internal/peer"
	"github.com/lherron/planbak/internal/snapshot"
)

type fetchResult struct {
	Peer        string `json:"peer"`
	Device      string `json:"device,omitempty"`
	SnapshotRev string `json:"snapshotRev"`
	SavedTo     string `json:"savedTo"`
	Summary     string `json:"summary"`
}

func newFetchCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "fetch [host:port]",
		Short: "Download a peer's snapshot",
		Long: `Fetch downloads the snapshot served by 'planbak serve' on another device
and stores it in the archive, or in --file. The payload is validated before
it is stored. Review it afterwards with 'planbak diff --archived <name>'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: appctx.WithApp(appctx.ConfigOnly(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			addr := app.Config.PeerAddr
			if len(args) == 1 {
				addr = args[0]
			}

			payload, _, err := peer.NewClient(addr, app.Config.PeerToken, 0).Fetch(ctx)
			if err != nil {
				return err
			}
			snap, err := snapshot.Parse(payload)
			if err != nil {
				return err
			}

			result := fetchResult{
				Peer:        addr,
				Device:      snap.Meta.Device,
				SnapshotRev: snap.Meta.SnapshotRev,
				Summary:     snap.Summary(),
			}
			if result.SnapshotRev == "" {
				result.SnapshotRev = snapshot.ComputeSnapshotRev([]byte(payload))
			}

			if file != "" {
				if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
				if err := os.WriteFile(file, []byte(payload), 0644); err != nil {
					return fmt.Errorf("failed to write snapshot: %w", err)
				}
				result.SavedTo = file
			} else {
				a, err := app.Archive()
				if err != nil {
					return err
				}
				name := archive.NewName(time.Now())
				if err := a.Put(ctx, name, []byte(payload)); err != nil {
					return err
				}
				result.SavedTo = "archive:" + name
			}

			return app.Out.Render(result, func() error {
				app.Out.Printf("Fetched %s from %s\nRev: %s\nSaved to %s\n",
					result.Summary, addr, result.SnapshotRev, result.SavedTo)
				return nil
			})
		}),
	}

	cmd.Flags().StringVar(&file, "file", "", "Write the snapshot to this file instead of the archive")

	return cmd
}
