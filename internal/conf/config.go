// config.go: settings struct and viper-backed loading for dacsync.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled    bool   // true to enable this log
	Path       string // path to log file
	MaxSize    int    // max log file size in MB before rotation
	MaxBackups int    // number of rotated log files to keep
	MaxAge     int    // max age of rotated log files in days
}

// MainSettings contains main settings for the application.
type MainSettings struct {
	Name string    // name of the node, also used as the log prefix
	Log  LogConfig // file log settings
}

// PlayerSettings contains settings for the watched media player.
type PlayerSettings struct {
	Name         string        // application name of the player, e.g. "Music"
	PollInterval time.Duration // playback state poll interval
}

// DeviceSettings selects the output device to drive.
type DeviceSettings struct {
	UID string // device UID, empty for the system default output
}

// SwitchSettings tunes the arbitration and switch behavior.
type SwitchSettings struct {
	PauseDuringSwitch bool          // pause playback around hardware switches
	Debounce          time.Duration // settle window for bursts of log stream rates
	SettleDelay       time.Duration // delay before resuming playback after a switch
	ResumeGrace       time.Duration // window in which Playing events are treated as resume echoes
}

// CatalogSettings contains settings for catalog/metadata rate lookups.
type CatalogSettings struct {
	Enabled    bool          // true to enable catalog lookups
	Token      string        // developer token for the catalog API, empty disables the primary lookup
	Storefront string        // catalog storefront, e.g. "us"
	Timeout    time.Duration // per-lookup timeout
}

// LogStreamSettings configures the system log feed source.
type LogStreamSettings struct {
	Enabled bool   // true to enable the log stream source
	Binary  string // path to the log binary
}

// Settings contains all runtime settings for dacsync.
type Settings struct {
	Debug bool // true to enable debug level logging

	Main      MainSettings
	Player    PlayerSettings
	Device    DeviceSettings
	Switch    SwitchSettings
	Catalog   CatalogSettings
	LogStream LogStreamSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into a Settings struct.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Defaults for every configuration parameter, defined in defaults.go
	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create one with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the primary config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetDefaultConfigPaths returns the config file search paths in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("error resolving user config directory: %w", err)
	}
	return []string{
		filepath.Join(configDir, "dacsync"),
		".",
	}, nil
}

// DefaultSettings returns a Settings struct populated with the default values.
// It is used by tests and by collaborators that run without a config file.
func DefaultSettings() *Settings {
	return &Settings{
		Main: MainSettings{
			Name: "dacsync",
			Log: LogConfig{
				Enabled:    true,
				Path:       "dacsync.log",
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
		Player: PlayerSettings{
			Name:         "Music",
			PollInterval: 500 * time.Millisecond,
		},
		Switch: SwitchSettings{
			Debounce:    30 * time.Millisecond,
			SettleDelay: 10 * time.Millisecond,
			ResumeGrace: 2 * time.Second,
		},
		Catalog: CatalogSettings{
			Enabled:    true,
			Storefront: "us",
			Timeout:    5 * time.Second,
		},
		LogStream: LogStreamSettings{
			Enabled: true,
			Binary:  "/usr/bin/log",
		},
	}
}
