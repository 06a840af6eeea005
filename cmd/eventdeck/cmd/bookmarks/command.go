// Package bookmarks implements the bookmarks command and its subcommands.
package bookmarks

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/eventdeck/internal/appcontext"
	"github.com/agentstation/eventdeck/internal/cmd/output"
)

// NewCommand creates the bookmarks command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookmarks",
		Aliases: []string{"saved", "bm"},
		GroupID: "browse",
		Short:   "Manage saved events",
		Long: `Bookmarks lists, saves and unsaves events. Saved events are shared by
every session using the same storage; "bookmarks watch" follows changes made
elsewhere as they happen.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return list(cmd, app)
		},
	}

	cmd.AddCommand(newListCommand(app))
	cmd.AddCommand(newToggleCommand(app))
	cmd.AddCommand(newWatchCommand(app))

	return cmd
}

func newListCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved events, most recently saved first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return list(cmd, app)
		},
	}
}

func list(cmd *cobra.Command, app appcontext.Interface) error {
	client, err := app.Client(cmd.Context())
	if err != nil {
		return err
	}
	return output.FormatBookmarks(cmd.OutOrStdout(), output.Format(app.OutputFormat()), client.Bookmarks())
}
