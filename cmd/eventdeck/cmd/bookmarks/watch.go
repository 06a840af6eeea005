package bookmarks

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/eventdeck/internal/appcontext"
	"github.com/agentstation/eventdeck/internal/cmd/output"
	"github.com/agentstation/eventdeck/pkg/catalog"
)

func newWatchCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print saved events whenever another session changes them",
		Long: `Watch prints the saved events, then prints them again every time they
change until interrupted. Changes made by other sessions sharing the same
storage arrive through its change feed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}

			format := output.Format(app.OutputFormat())
			updates := make(chan []catalog.SavedEventRecord, 16)
			client.OnBookmarksChanged(func(saved []catalog.SavedEventRecord) {
				select {
				case updates <- saved:
				default:
					app.Logger().Warn().Msg("Dropped bookmark update, output is behind")
				}
			})

			if err := output.FormatBookmarks(cmd.OutOrStdout(), format, client.Bookmarks()); err != nil {
				return err
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case saved := <-updates:
					if err := output.FormatBookmarks(cmd.OutOrStdout(), format, saved); err != nil {
						return err
					}
				}
			}
		},
	}
}
