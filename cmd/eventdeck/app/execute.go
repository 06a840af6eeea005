package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the eventdeck CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()

	// A nil slice makes cobra fall back to os.Args.
	rootCmd.SetArgs(append([]string{}, args...))

	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "eventdeck",
		Short:   "Browse an event catalog from the terminal",
		Version: a.version,
		Long: `Eventdeck browses a remote event catalog by category.

The selected category and saved events are kept in local storage and shared
with every other eventdeck session of the same user, so a bookmark toggled in
one terminal shows up in the others.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "browse",
		Title: "Browse Commands:",
	})

	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	// Flags write straight into the loaded config, so their defaults are the
	// values from the config file and environment.
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&a.config.Verbose, "verbose", "v", a.config.Verbose, "verbose output (shortcut for --log-level=debug)")
	flags.BoolVarP(&a.config.Quiet, "quiet", "q", a.config.Quiet, "minimal output (shortcut for --log-level=warn)")
	flags.BoolVar(&a.config.NoColor, "no-color", a.config.NoColor, "disable colored output")
	flags.StringVarP(&a.config.Format, "format", "o", a.config.Format, "output format: table, wide, json, yaml")
	flags.StringVar(&a.config.LogLevel, "log-level", a.config.LogLevel, "log level: trace, debug, info, warn, error (overrides -v/-q)")
	flags.StringVar(&a.config.Storage, "storage", a.config.Storage, "storage backend: memory, sqlite, redis")
	flags.StringVar(&a.config.DataPath, "data-path", a.config.DataPath, "directory of the sqlite database")
	flags.StringVar(&a.config.RedisURL, "redis-url", a.config.RedisURL, "redis connection URL")
	flags.StringVar(&a.config.APIURL, "api-url", a.config.APIURL, "base URL of the catalog API")
	flags.StringVar(&a.config.URL, "url", a.config.URL, "address to open, e.g. /events?category=5&name=Lingkungan")

	rootCmd.SetVersionTemplate("eventdeck {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(_ *cobra.Command, _ []string) error {
	if err := a.config.Validate(); err != nil {
		return err
	}

	// Reinitialize logger with the flag values applied
	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
