package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"svcore/internal/app"
	"svcore/internal/cli"
	"svcore/internal/orchestrator"

	"github.com/spf13/cobra"
)

var (
	initOutput      string
	initMetricsAddr string
)

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Run package initialization and report the outcome",
		Long: `Submits the bundled packages that are not disabled in the configuration
and initializes them once. Every package starts as soon as the capabilities
it requires are available, independent packages run concurrently.

The command prints one row per package with its final status and exits
non-zero when any package failed or was skipped. Interrupting the command
(Ctrl+C) cancels packages that are still running and skips the rest.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}

	initCmd.Flags().StringVarP(&initOutput, "output", "o", "table", "Output format (table, json, yaml)")
	initCmd.Flags().StringVar(&initMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run (e.g. :9090)")
	return initCmd
}

func runInit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(initOutput)
	if err != nil {
		return err
	}

	cfg := app.NewConfig(configPath, logLevel, logFormat)
	cfg.MetricsAddr = initMetricsAddr

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := application.Run(ctx)
	if err != nil {
		return err
	}

	if err := cli.RenderReport(cmd.OutOrStdout(), report, format); err != nil {
		return err
	}
	if report.State == orchestrator.StateFailed {
		return fmt.Errorf("initialization failed: %d failed, %d skipped", len(report.Failed()), len(report.Skipped()))
	}
	return nil
}
