// conf/validate.go settings validation
package conf

import (
	"errors"
	"fmt"
)

// ValidateSettings checks the loaded settings for values that would
// misbehave at runtime and normalizes the ones that have safe floors.
func ValidateSettings(settings *Settings) error {
	var errs []error

	if settings.Player.Name == "" {
		errs = append(errs, errors.New("player.name must not be empty"))
	}
	if settings.Player.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("player.pollinterval must be positive, got %v", settings.Player.PollInterval))
	}

	if settings.Switch.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("switch.debounce must be positive, got %v", settings.Switch.Debounce))
	}
	if settings.Switch.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("switch.settledelay must not be negative, got %v", settings.Switch.SettleDelay))
	}
	if settings.Switch.ResumeGrace < 0 {
		errs = append(errs, fmt.Errorf("switch.resumegrace must not be negative, got %v", settings.Switch.ResumeGrace))
	}

	if settings.Catalog.Enabled && settings.Catalog.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("catalog.timeout must be positive, got %v", settings.Catalog.Timeout))
	}
	if settings.Catalog.Enabled && settings.Catalog.Storefront == "" {
		errs = append(errs, errors.New("catalog.storefront must not be empty when catalog lookups are enabled"))
	}

	if settings.LogStream.Enabled && settings.LogStream.Binary == "" {
		errs = append(errs, errors.New("logstream.binary must not be empty when the log stream source is enabled"))
	}

	return errors.Join(errs...)
}
