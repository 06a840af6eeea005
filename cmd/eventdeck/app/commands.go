package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/eventdeck/cmd/eventdeck/cmd/bookmarks"
	"github.com/agentstation/eventdeck/cmd/eventdeck/cmd/categories"
	"github.com/agentstation/eventdeck/cmd/eventdeck/cmd/events"
	"github.com/agentstation/eventdeck/cmd/eventdeck/cmd/filter"
	"github.com/agentstation/eventdeck/internal/cmd/output"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Browse commands
	rootCmd.AddCommand(categories.NewCommand(a))
	rootCmd.AddCommand(filter.NewCommand(a))
	rootCmd.AddCommand(events.NewCommand(a))
	rootCmd.AddCommand(bookmarks.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(a.NewStatusCommand())

	// Utility commands
	rootCmd.AddCommand(a.NewVersionCommand())
}

// NewStatusCommand creates the status command, which reports where the
// session state is stored and whether storage is working.
func (a *App) NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: "management",
		Short:   "Show storage and configuration status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.Client(cmd.Context()); err != nil {
				return err
			}

			a.mu.Lock()
			durable, backend := a.durable, a.backend
			a.mu.Unlock()

			name := "none"
			if backend != nil {
				name = backend.Name()
			}
			var lastErr string
			if err := durable.Err(); err != nil {
				lastErr = err.Error()
			}

			return output.FormatAny(cmd.OutOrStdout(), output.Format(a.OutputFormat()), output.Properties{
				{Key: "storage", Value: a.config.Storage},
				{Key: "backend", Value: name},
				{Key: "origin", Value: durable.Origin()},
				{Key: "degraded", Value: durable.Degraded()},
				{Key: "error", Value: lastErr},
				{Key: "api_url", Value: a.config.APIURL},
				{Key: "config_file", Value: a.config.ConfigFile},
			})
		},
	}
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("eventdeck %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
