package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pkarvinen/dacsync/cmd/devices"
	"github.com/pkarvinen/dacsync/cmd/monitor"
	"github.com/pkarvinen/dacsync/internal/conf"
	"github.com/pkarvinen/dacsync/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dacsync",
		Short: "dacsync CLI",
		Long:  "Keep an output device's nominal sample rate in sync with the playing track.",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	rootCmd.AddCommand(
		monitor.Command(settings),
		devices.Command(settings),
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Flags are parsed by now; logging level can honor --debug.
		logging.Init(settings.Debug)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
