package commands

import (
	"github.com/spf13/cobra"

	"github.com/vsinha/craftsman/pkg/interfaces/cli/output"
)

func newForecastCommand(opts *rootOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Suggest quantities from same-weekday history and committed demand",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDate(date)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts, day)
			if err != nil {
				return err
			}
			defer a.Close()

			suggestions, err := a.craft.SuggestPlan(cmd.Context(), day)
			if err != nil {
				return err
			}
			return output.Suggestions(cmd.OutOrStdout(), opts.format, day, suggestions)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "target date YYYY-MM-DD (default today)")
	return cmd
}
