package monitor

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pkarvinen/dacsync/internal/conf"
	"github.com/pkarvinen/dacsync/internal/monitor"
)

// Command creates the monitor command, the daemon mode of dacsync.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch playback and switch the output device's sample rate",
		Long: "Watch the media player's playback, detect each track's sample rate " +
			"and keep the output device's nominal rate in sync until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return monitor.Run(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	return cmd
}

// setupFlags configures flags specific to the monitor command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Device.UID, "device-uid", viper.GetString("device.uid"), "UID of the output device to drive, empty for the system default output")
	cmd.Flags().BoolVar(&settings.Switch.PauseDuringSwitch, "pause-during-switch", viper.GetBool("switch.pauseduringswitch"), "Pause playback while the hardware switches rates")
	cmd.Flags().StringVar(&settings.Player.Name, "player", viper.GetString("player.name"), "Application name of the media player to watch")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
