package samplerate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{44000, 44100},
		{88000, 88200},
		{176000, 176400},
		{352000, 352800},
		{705000, 705600},
		// canonical rates pass through
		{44100, 44100},
		{48000, 48000},
		{96000, 96000},
		{192000, 192000},
		// unknown values pass through
		{0, 0},
		{1, 1},
		{44001, 44001},
		{-44000, -44000},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%d)", tt.in)
	}
}
