// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logger setup, database opening and output
// selection to reduce boilerplate across commands.
package appctx

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lherron/planbak/internal/archive"
	"github.com/lherron/planbak/internal/config"
	"github.com/lherron/planbak/internal/db"
	"github.com/lherron/planbak/internal/logging"
	"github.com/lherron/planbak/internal/render"
	"github.com/lherron/planbak/internal/store"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	Logger *zap.Logger

	// Out renders command results in the selected format
	Out *render.Renderer

	// DB is the opened database connection (nil if NeedsDB is false)
	DB *db.DB

	// Store wraps DB (nil if NeedsDB is false)
	Store *store.Store
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
		a.Store = nil
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// Archive opens the configured snapshot archive.
func (a *App) Archive() (archive.Archive, error) {
	return archive.Open(a.Config, a.Logger)
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the database.
	NeedsDB bool

	// SkipMigrationCheck opens the database even when migrations are
	// pending. Only the migrate command sets it.
	SkipMigrationCheck bool
}

// DefaultOptions returns default options (DB required).
func DefaultOptions() Options {
	return Options{NeedsDB: true}
}

// ConfigOnly returns options for commands that never touch the database.
func ConfigOnly() Options {
	return Options{}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	app := &App{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	if dbPath := flagString(cmd, "db"); dbPath != "" {
		app.Config.DBPath = dbPath
	}
	if level := flagString(cmd, "log-level"); level != "" {
		app.Config.LogLevel = level
	}

	format, err := outputFormat(cmd, cfg.Output)
	if err != nil {
		return nil, err
	}
	app.Out = render.NewRenderer(cmd.OutOrStdout(), format)

	logger, err := logging.New(app.Config.LogLevel, app.Config.LogFormat)
	if err != nil {
		return nil, err
	}
	app.Logger = logger

	if opts.NeedsDB {
		database, err := db.Open(app.Config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		if !opts.SkipMigrationCheck {
			if err := database.RequiresMigrationError(); err != nil {
				database.Close()
				return nil, err
			}
		}

		app.DB = database
		app.Store = store.New(database.DB, logger)
	}

	return app, nil
}

func outputFormat(cmd *cobra.Command, configured string) (render.Format, error) {
	switch {
	case flagBool(cmd, "json"):
		return render.FormatJSON, nil
	case flagBool(cmd, "yaml"):
		return render.FormatYAML, nil
	default:
		return render.ParseFormat(configured)
	}
}

func flagString(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func flagBool(cmd *cobra.Command, name string) bool {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String() == "true"
	}
	return false
}
