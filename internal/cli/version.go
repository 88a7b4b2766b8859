package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/planbak/internal/cli/appctx"
	"github.com/lherron/planbak/internal/snapshot"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type versionInfo struct {
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	BuildDate     string `json:"build_date"`
	SchemaVersion int    `json:"snapshot_schema_version"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Displays version, commit, build date and the snapshot schema version.`,
		Args:  cobra.NoArgs,
		RunE: appctx.WithApp(appctx.ConfigOnly(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:       Version,
				Commit:        GitCommit,
				BuildDate:     BuildDate,
				SchemaVersion: snapshot.SchemaVersion,
			}
			return app.Out.Render(info, func() error {
				app.Out.Printf("planbak version %s\n", Version)
				app.Out.Printf("  commit: %s\n", GitCommit)
				app.Out.Printf("  built: %s\n", BuildDate)
				app.Out.Printf("  snapshot schema: %d\n", snapshot.SchemaVersion)
				return nil
			})
		}),
	}
}
