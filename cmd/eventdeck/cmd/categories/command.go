// Package categories implements the categories command.
package categories

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/eventdeck/internal/appcontext"
	"github.com/agentstation/eventdeck/internal/cmd/alerts"
	"github.com/agentstation/eventdeck/internal/cmd/output"
)

// NewCommand creates the categories command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "cats"},
		GroupID: "browse",
		Short:   "List event categories",
		Long: `Categories lists the selectable event categories, "all" first and the
primary categories after it. The list is cached in storage; when the catalog
cannot be reached the built-in defaults are shown instead.`,
		Example: `  eventdeck categories            # Table with the selected category marked
  eventdeck categories -o json    # Machine-readable list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}

			format := output.Format(app.OutputFormat())
			categories, err := client.Categories(ctx)
			if err != nil {
				app.Logger().Debug().Err(err).Msg("Category refresh failed")
				warning := alerts.NewWarning("Catalog unreachable, showing default categories").WithError(err)
				if werr := alerts.NewFormatWriter(cmd.ErrOrStderr(), format).WriteAlert(warning); werr != nil {
					return werr
				}
			}

			return output.FormatCategories(cmd.OutOrStdout(), format, categories, client.Filter())
		},
	}
}
