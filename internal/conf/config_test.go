package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsValidate(t *testing.T) {
	settings := DefaultSettings()
	require.NoError(t, ValidateSettings(settings))

	assert.Equal(t, "Music", settings.Player.Name)
	assert.Equal(t, 30*time.Millisecond, settings.Switch.Debounce)
	assert.Equal(t, 10*time.Millisecond, settings.Switch.SettleDelay)
	assert.Equal(t, 2*time.Second, settings.Switch.ResumeGrace)
	assert.Equal(t, 5*time.Second, settings.Catalog.Timeout)
}

func TestValidateSettingsRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"empty player name", func(s *Settings) { s.Player.Name = "" }},
		{"zero poll interval", func(s *Settings) { s.Player.PollInterval = 0 }},
		{"zero debounce", func(s *Settings) { s.Switch.Debounce = 0 }},
		{"negative settle delay", func(s *Settings) { s.Switch.SettleDelay = -time.Millisecond }},
		{"negative resume grace", func(s *Settings) { s.Switch.ResumeGrace = -time.Second }},
		{"zero catalog timeout", func(s *Settings) { s.Catalog.Timeout = 0 }},
		{"empty storefront", func(s *Settings) { s.Catalog.Storefront = "" }},
		{"empty log binary", func(s *Settings) { s.LogStream.Binary = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultSettings()
			tt.mutate(settings)
			assert.Error(t, ValidateSettings(settings))
		})
	}
}

func TestValidateSettingsDisabledSectionsSkipped(t *testing.T) {
	settings := DefaultSettings()
	settings.Catalog.Enabled = false
	settings.Catalog.Timeout = 0
	settings.Catalog.Storefront = ""
	settings.LogStream.Enabled = false
	settings.LogStream.Binary = ""

	assert.NoError(t, ValidateSettings(settings))
}
