package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/reckless-court/cmd/check"
	"github.com/tphakala/reckless-court/cmd/sentences"
	"github.com/tphakala/reckless-court/cmd/serve"
	"github.com/tphakala/reckless-court/cmd/sheet"
	"github.com/tphakala/reckless-court/cmd/version"
	"github.com/tphakala/reckless-court/internal/conf"
	"github.com/tphakala/reckless-court/internal/logger"
)

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "reckless-court",
		Short:         "Reckless Court System",
		Long:          "Collect reckless statements, judge them and spin the wheel of sentences.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config.yaml")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error)")

	versionCmd := version.Command(settings)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		sheet.Command(settings),
		check.Command(settings),
		sentences.Command(settings),
		versionCmd,
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(rootCmd); err != nil {
			return err
		}

		loaded, err := conf.Load(configFile)
		if err != nil {
			return err
		}
		*settings = *loaded

		// Skip logger setup for the version command
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initLogging(settings)
	}

	return rootCmd
}

// bindFlags binds the global flags to their config keys
func bindFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	if err := viper.BindPFlag("debug", flags.Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if flags.Changed("log-level") {
		if err := viper.BindPFlag("log.level", flags.Lookup("log-level")); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}
	return nil
}

// initLogging replaces the global logger with one built from settings
func initLogging(settings *conf.Settings) error {
	central, err := logger.NewCentralLogger(settings.Log.LoggingConfig(settings.Debug))
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}
