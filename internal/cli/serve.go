package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lherron/planbak/internal/cli/appctx"
	"github.com/lherron/planbak/internal/peer"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local snapshot to peers",
		Long: `Serve exposes the local store on the network so another device can run
'planbak fetch' or 'planbak diff --peer'. Every request exports the current
state. Set PLANBAK_PEER_TOKEN to require a bearer token.`,
		Args: cobra.NoArgs,
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Config.PeerAddr
			}
			if app.Config.PeerToken == "" {
				app.Logger.Warn("serving without a token; anyone who can reach the address can read the store",
					zap.String("addr", addr))
			}

			srv := peer.NewServer(app.Store, peer.Config{
				Token:  app.Config.PeerToken,
				Device: app.Config.Device,
			}, app.Logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Listen(addr)
			}()

			app.Out.Printf("Serving snapshots on %s (Ctrl-C to stop)\n", addr)

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides PLANBAK_PEER_ADDR)")

	return cmd
}
