package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vigia-data/registry-harvester/internal/clock/system"
	"github.com/vigia-data/registry-harvester/internal/report"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Prints the weekly delivery statistics table",
		Long: `Reads the delivery tier for each day of the current week (the previous
week when run on a Monday) and prints the per-source counts table that is
embedded in the daily report email.`,
		RunE: runReportCommand,
	}
}

func runReportCommand(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	weekly := report.NewWeekly(a.Store, system.New(), a.Logger)
	stats := weekly.Stats(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), report.FormatWeekly(stats))
	return nil
}
