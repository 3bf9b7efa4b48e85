package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/interfaces/cli/output"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	flags := &scheduleFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Schedule the day and step every work order through its recipe",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			day, err := parseDate(flags.date)
			if err != nil {
				return err
			}
			scheduleOpts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			a, err := openApp(ctx, opts, day)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := scheduleDay(ctx, a, day, scheduleOpts)
			if err != nil {
				return err
			}
			if !result.Success {
				return output.Schedule(cmd.OutOrStdout(), opts.format, result)
			}

			recipes := make(map[string]*entities.Recipe, len(a.catalog.Recipes))
			for _, r := range a.catalog.Recipes {
				recipes[r.Code] = r
			}

			finished := make([]*entities.WorkOrder, 0, len(result.WorkOrders))
			for _, wo := range result.WorkOrders {
				current := wo
				for _, step := range recipes[wo.RecipeCode].Steps {
					next, err := a.craft.Step(ctx, wo.ID, step, wo.PlannedQuantity, flags.actor)
					if err != nil {
						a.logger.Warn("step failed",
							zap.String("work_order", wo.Code),
							zap.String("step", step),
							zap.Error(err))
						break
					}
					current = next
				}
				finished = append(finished, current)
			}

			if _, err := a.craft.CompletePlan(ctx, day); err != nil {
				a.logger.Info("plan left open", zap.Error(err))
			}
			if err := output.WorkOrders(cmd.OutOrStdout(), opts.format, finished); err != nil {
				return err
			}
			if opts.format == output.FormatText {
				return a.writeEventCounts(cmd.OutOrStdout())
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// writeEventCounts prints the event counters gathered during the run
func (a *app) writeEventCounts(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			label := ""
			for _, lp := range m.GetLabel() {
				label = fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s%s %g", mf.GetName(), label, m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
