package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsinha/craftsman/pkg/interfaces/cli/output"
)

func newIngredientsCommand(opts *rootOptions) *cobra.Command {
	var date, xlsx string
	cmd := &cobra.Command{
		Use:   "ingredients",
		Short: "List the ingredients the day's plan consumes, by category",
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

			if err := a.planDay(cmd.Context(), day); err != nil {
				return err
			}
			sheet, err := a.craft.DailyIngredients(cmd.Context(), day)
			if err != nil {
				return err
			}
			if err := output.Ingredients(cmd.OutOrStdout(), opts.format, *sheet); err != nil {
				return err
			}
			if xlsx != "" {
				if err := output.SaveIngredientsWorkbook(*sheet, xlsx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "💾 Workbook saved to: %s\n", xlsx)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "plan date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "also write the sheet to this .xlsx file")
	return cmd
}
