package cmd

import (
	"fmt"

	"svcore/internal/app"
	"svcore/internal/cli"

	"github.com/spf13/cobra"
)

var (
	packagesOutput     string
	packagesConstraint string
)

func newPackagesCmd() *cobra.Command {
	packagesCmd := &cobra.Command{
		Use:   "packages",
		Short: "List the packages that init would run",
		Long: `Lists the enabled packages with their versions, the capabilities they
require and provide, and the dependency level they start at. Packages
caught in a dependency cycle are shown last.

Nothing is initialized and no requests are sent.`,
		Args: cobra.NoArgs,
		RunE: runPackages,
	}

	packagesCmd.Flags().StringVarP(&packagesOutput, "output", "o", "table", "Output format (table, json, yaml)")
	packagesCmd.Flags().StringVar(&packagesConstraint, "version-constraint", "", "Only list packages whose version satisfies this semver constraint (e.g. \">= 1.1\")")
	return packagesCmd
}

func runPackages(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(packagesOutput)
	if err != nil {
		return err
	}

	application, err := app.NewApplication(app.NewConfig(configPath, logLevel, logFormat))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	orch := application.Orchestrator()
	infos, err := cli.ListPackages(orch.Descriptors(), orch.Graph(), packagesConstraint)
	if err != nil {
		return err
	}
	return cli.RenderPackages(cmd.OutOrStdout(), infos, format)
}
