package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is layered on top of the user and project configuration.
	configPath string
	logLevel   string
	logFormat  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "svcore",
	Short: "Initialize backend service packages in dependency order",
	Long: `svcore initializes the bundled backend service packages (installation
identity, environment, authentication, lobby and relay clients) in an order
derived from the capabilities each package requires and provides.

Packages whose requirements can never be met are skipped, and a failure in
one package only affects the packages that depend on it.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid configuration, failed initialization)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v // Set cobra's version field as well
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`{{printf "svcore version %s\n" .Version}}`)

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newPackagesCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file layered over ~/.config/svcore/config.yaml and .svcore/config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides the configured level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json), overrides the configured format")
}
