package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateRangeContains(t *testing.T) {
	fixed := RateRange{Min: 44100, Max: 44100}
	assert.True(t, fixed.Contains(44100))
	assert.False(t, fixed.Contains(48000))

	wide := RateRange{Min: 44100, Max: 192000}
	assert.True(t, wide.Contains(44100))
	assert.True(t, wide.Contains(96000))
	assert.True(t, wide.Contains(192000))
	assert.False(t, wide.Contains(32000))
	assert.False(t, wide.Contains(352800))
}

func TestDeviceSupports(t *testing.T) {
	dev := Device{
		SupportedRates: []RateRange{
			{Min: 44100, Max: 48000},
			{Min: 88200, Max: 96000},
			{Min: 176400, Max: 192000},
		},
	}

	assert.True(t, dev.Supports(44100))
	assert.True(t, dev.Supports(96000))
	assert.True(t, dev.Supports(192000))
	assert.False(t, dev.Supports(64000))
	assert.False(t, dev.Supports(384000))

	empty := Device{}
	assert.False(t, empty.Supports(44100))
}
