// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "dacsync")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "dacsync.log")
	viper.SetDefault("main.log.maxsize", 10)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxage", 28)

	viper.SetDefault("player.name", "Music")
	viper.SetDefault("player.pollinterval", 500*time.Millisecond)

	viper.SetDefault("device.uid", "")

	viper.SetDefault("switch.pauseduringswitch", false)
	viper.SetDefault("switch.debounce", 30*time.Millisecond)
	viper.SetDefault("switch.settledelay", 10*time.Millisecond)
	viper.SetDefault("switch.resumegrace", 2*time.Second)

	viper.SetDefault("catalog.enabled", true)
	viper.SetDefault("catalog.token", "")
	viper.SetDefault("catalog.storefront", "us")
	viper.SetDefault("catalog.timeout", 5*time.Second)

	viper.SetDefault("logstream.enabled", true)
	viper.SetDefault("logstream.binary", "/usr/bin/log")
}
