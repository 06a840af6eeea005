// Package events implements the events command.
package events

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/eventdeck/internal/appcontext"
	"github.com/agentstation/eventdeck/internal/cmd/output"
	"github.com/agentstation/eventdeck/pkg/constants"
)

// Flags holds the events command flags.
type Flags struct {
	List string
	More int
}

// NewCommand creates the events command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"event", "ls"},
		GroupID: "browse",
		Short:   "List events of the selected category",
		Long: `Events shows one paginated list of events for the selected category.
Each list starts with a few events and grows one step per --more up to its cap.
Saved events are marked.`,
		Example: `  eventdeck events                 # First page of the "more" list
  eventdeck events --list free     # The "free" list
  eventdeck events --more 2        # Expand twice before showing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.List, "list", "l", constants.ListMore, "list to show")
	cmd.Flags().IntVarP(&flags.More, "more", "m", 0, "expand the list this many steps")

	return cmd
}

func run(cmd *cobra.Command, app appcontext.Interface, flags *Flags) error {
	ctx := cmd.Context()
	client, err := app.Client(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < flags.More && !client.AllVisible(flags.List); i++ {
		client.ShowMore(flags.List)
	}

	events, err := client.Results(ctx, flags.List)
	if err != nil {
		return err
	}

	app.Logger().Debug().
		Str("list", flags.List).
		Int("limit", client.Limit(flags.List)).
		Bool("all", client.AllVisible(flags.List)).
		Int("count", len(events)).
		Msg("Listed events")

	return output.FormatEvents(cmd.OutOrStdout(), output.Format(app.OutputFormat()), events, client.IsSaved)
}
