// Package commands implements the craftsman command line.
package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/interfaces/cli/output"
)

type rootOptions struct {
	configPath  string
	catalogPath string
	logLevel    string
	format      string
}

// NewRootCommand builds the craftsman command tree writing to out
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "craftsman",
		Short:         "Plan, schedule and run a bakery production day",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ./craftsman.yaml)")
	flags.StringVar(&opts.catalogPath, "catalog", "", "catalog YAML with recipes, stock and plan lines")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&opts.format, "format", output.FormatText, "output format: text or json")

	cmd.AddCommand(
		newIngredientsCommand(opts),
		newForecastCommand(opts),
		newScheduleCommand(opts),
		newRunCommand(opts),
	)
	return cmd
}

// parseDate reads YYYY-MM-DD, defaulting to today
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return entities.DateOnly(time.Now()), nil
	}
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return date, nil
}

// parseClock reads HH:MM
func parseClock(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("15:04", value)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q, expected HH:MM", value)
	}
	return &t, nil
}
