// Package samplerate normalizes raw sample rate readings onto canonical
// audio rates.
package samplerate

// Normalize corrects known misreported sample rates to their canonical
// neighbor (e.g. 44000 -> 44100). Some sources round 44.1-family rates down
// to the nearest thousand; everything else passes through unchanged.
func Normalize(rate int) int {
	switch rate {
	case 44000:
		return 44100
	case 88000:
		return 88200
	case 176000:
		return 176400
	case 352000:
		return 352800
	case 705000:
		return 705600
	default:
		return rate
	}
}
