// Package filter implements the filter command and its subcommands.
package filter

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/eventdeck"
	"github.com/agentstation/eventdeck/internal/appcontext"
	"github.com/agentstation/eventdeck/internal/cmd/output"
	"github.com/agentstation/eventdeck/pkg/catalog"
	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/errors"
)

// NewCommand creates the filter command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "filter",
		GroupID: "browse",
		Short:   "Show or change the selected category",
		Long: `Filter manages the selected category. The selection is stored, so the
next command (and every other open session) starts from it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return show(cmd, app)
		},
	}

	cmd.AddCommand(newShowCommand(app))
	cmd.AddCommand(newSetCommand(app))
	cmd.AddCommand(newClearCommand(app))

	return cmd
}

func newShowCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the selected category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return show(cmd, app)
		},
	}
}

func newSetCommand(app appcontext.Interface) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "set <category-id>",
		Short: "Select a category",
		Example: `  eventdeck filter set 5                  # Name looked up from the catalog
  eventdeck filter set 5 --name Lingkungan
  eventdeck filter set all                # Same as filter clear`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}

			if args[0] == constants.AllCategoriesKey {
				client.Clear()
				return show(cmd, app)
			}

			if name == "" {
				if name, err = lookupName(cmd, client, args[0]); err != nil {
					return err
				}
			}
			client.Select(catalog.ID(args[0]), name)
			return show(cmd, app)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (default: looked up from the catalog)")
	return cmd
}

func newClearCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "clear",
		Aliases: []string{"reset"},
		Short:   "Select all categories",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}
			client.Clear()
			return show(cmd, app)
		},
	}
}

func show(cmd *cobra.Command, app appcontext.Interface) error {
	client, err := app.Client(cmd.Context())
	if err != nil {
		return err
	}
	return output.FormatFilter(cmd.OutOrStdout(), output.Format(app.OutputFormat()),
		client.Filter(), client.Location().String())
}

// lookupName finds the display name of id in the category list. Unknown ids
// are rejected unless the list is the offline fallback.
func lookupName(cmd *cobra.Command, client eventdeck.Client, id string) (string, error) {
	categories, fetchErr := client.Categories(cmd.Context())
	for _, c := range categories {
		if c.ID != nil && *c.ID == id {
			return c.Name, nil
		}
	}
	if fetchErr != nil {
		return id, nil
	}
	return "", errors.NewNotFoundError("category", id)
}
