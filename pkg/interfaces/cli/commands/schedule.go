package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/vsinha/craftsman/pkg/application/dto"
	"github.com/vsinha/craftsman/pkg/application/services/scheduling"
	"github.com/vsinha/craftsman/pkg/interfaces/cli/output"
)

type scheduleFlags struct {
	date     string
	start    string
	location string
	actor    string
	reserve  bool
}

func (f *scheduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "plan date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.start, "start", "", "start every order at HH:MM on the plan date")
	cmd.Flags().StringVar(&f.location, "location", "", "override the recipe work center")
	cmd.Flags().StringVar(&f.actor, "actor", "cli", "who schedules and runs the orders")
	cmd.Flags().BoolVar(&f.reserve, "reserve", false, "hold materials for every order")
}

func (f *scheduleFlags) options(cmd *cobra.Command) (scheduling.ScheduleOptions, error) {
	start, err := parseClock(f.start)
	if err != nil {
		return scheduling.ScheduleOptions{}, err
	}
	opts := scheduling.ScheduleOptions{StartTime: start, Location: f.location, Actor: f.actor}
	if cmd.Flags().Changed("reserve") {
		reserve := f.reserve
		opts.ReserveInputs = &reserve
	}
	return opts, nil
}

// scheduleDay plans, approves and schedules date in one go
func scheduleDay(ctx context.Context, a *app, day time.Time, opts scheduling.ScheduleOptions) (*dto.ScheduleResult, error) {
	if err := a.planDay(ctx, day); err != nil {
		return nil, err
	}
	if _, err := a.craft.Approve(ctx, day); err != nil {
		return nil, err
	}
	return a.craft.Schedule(ctx, day, opts)
}

func newScheduleCommand(opts *rootOptions) *cobra.Command {
	flags := &scheduleFlags{}
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Approve the day's plan and create its work orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDate(flags.date)
			if err != nil {
				return err
			}
			scheduleOpts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts, day)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := scheduleDay(cmd.Context(), a, day, scheduleOpts)
			if err != nil {
				return err
			}
			return output.Schedule(cmd.OutOrStdout(), opts.format, result)
		},
	}
	flags.register(cmd)
	return cmd
}
