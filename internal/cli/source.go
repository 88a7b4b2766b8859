package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lherron/planbak/internal/backup"
	"github.com/lherron/planbak/internal/cli/appctx"
	"github.com/lherron/planbak/internal/peer"
)

// sourceOptions selects where an incoming snapshot comes from.
type sourceOptions struct {
	peer     string
	archived string
}

func (o *sourceOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.peer, "peer", "", "Fetch the incoming snapshot from a peer (host:port)")
	cmd.Flags().StringVar(&o.archived, "archived", "", "Read the incoming snapshot from the archive by name")
	cmd.MarkFlagsMutuallyExclusive("peer", "archived")
}

// load returns the raw payload and a description of where it came from.
func (o *sourceOptions) load(ctx context.Context, app *appctx.App, cmd *cobra.Command, args []string) (string, string, error) {
	if (o.peer != "" || o.archived != "") && len(args) > 0 {
		return "", "", errors.New("give either a file argument or --peer/--archived, not both")
	}

	switch {
	case o.peer != "":
		client := peer.NewClient(o.peer, app.Config.PeerToken, 0)
		payload, _, err := client.Fetch(ctx)
		if err != nil {
			return "", "", err
		}
		return payload, "peer " + o.peer, nil

	case o.archived != "":
		a, err := app.Archive()
		if err != nil {
			return "", "", err
		}
		data, err := a.Get(ctx, o.archived)
		if err != nil {
			return "", "", err
		}
		return string(data), "archive " + o.archived, nil

	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), "stdin", nil

	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", fmt.Errorf("failed to read snapshot: %w", err)
		}
		return string(data), args[0], nil

	default:
		return "", "", errors.New("no snapshot given: pass a file, '-' for stdin, --peer or --archived")
	}
}

// openSession diffs the incoming payload against the current local store.
func openSession(ctx context.Context, app *appctx.App, payload string) (*backup.Session, error) {
	local, err := app.Store.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export local store: %w", err)
	}
	return backup.NewSession(local, payload, app.Logger)
}
