// Package cmd defines the CLI commands for the harvester executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vigia-data/registry-harvester/internal/app"
	"github.com/vigia-data/registry-harvester/internal/config"
)

var cfgFile string

type appKeyType struct{}

// newApp is the application factory. It is a variable so tests can replace it.
var newApp = func(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(ctx, cfg)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Harvests company registration records from public sources.",
		Long: `harvester scrapes daily company registration events from the public
registry and the official gazette, enriches them against the reference
warehouse, and publishes partitioned raw/processed/delivery views.`,

		// Runs after flags are parsed and before the subcommand's RunE:
		// build the app once and hand it to subcommands via context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKeyType{}, a))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKeyType{}).(*app.App); ok && a != nil {
				a.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults and HARVESTER_* env vars apply when omitted)")

	cmd.AddCommand(newHarvestCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	a, ok := ctx.Value(appKeyType{}).(*app.App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application is not initialized")
	}
	return a, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
