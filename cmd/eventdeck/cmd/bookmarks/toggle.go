package bookmarks

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/eventdeck"
	"github.com/agentstation/eventdeck/internal/appcontext"
	"github.com/agentstation/eventdeck/internal/cmd/alerts"
	"github.com/agentstation/eventdeck/internal/cmd/output"
	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/errors"
)

func newToggleCommand(app appcontext.Interface) *cobra.Command {
	var lists []string
	cmd := &cobra.Command{
		Use:   "toggle <event-id>",
		Short: "Save an event, or unsave it if already saved",
		Long: `Toggle saves the event if it is not saved and unsaves it otherwise.
A saved event can always be unsaved. To save an event it must appear in one of
the lists of the selected category.`,
		Example: `  eventdeck bookmarks toggle 42
  eventdeck bookmarks toggle 42 --list free`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}

			event, err := find(cmd, client, args[0], lists)
			if err != nil {
				return err
			}

			saved := client.Toggle(event)
			app.Logger().Debug().Str("event_id", event.ID).Bool("saved", saved).Msg("Toggled bookmark")

			message := fmt.Sprintf("Unsaved %q", event.Title)
			if saved {
				message = fmt.Sprintf("Saved %q", event.Title)
			}
			return alerts.NewFormatWriter(cmd.OutOrStdout(), output.Format(app.OutputFormat())).
				WriteAlert(alerts.NewSuccess(message).WithDetails("id: " + event.ID))
		},
	}
	cmd.Flags().StringSliceVarP(&lists, "list", "l", nil, "lists to search (default: all lists)")
	return cmd
}

// find resolves id to an event summary. Saved events resolve from their
// snapshot; others are searched in the given lists expanded to their cap.
func find(cmd *cobra.Command, client eventdeck.Client, id string, lists []string) (catalog.EventSummary, error) {
	for _, r := range client.Bookmarks() {
		if r.ID == id {
			return r.EventSummary, nil
		}
	}

	if len(lists) == 0 {
		lists = client.Lists()
	}
	for _, list := range lists {
		for !client.AllVisible(list) {
			if client.ShowMore(list) == 0 {
				break
			}
		}
		events, err := client.Results(cmd.Context(), list)
		if err != nil {
			return catalog.EventSummary{}, err
		}
		for _, e := range events {
			if e.ID == id {
				return e, nil
			}
		}
	}
	return catalog.EventSummary{}, errors.NewNotFoundError("event", id)
}
