// Package logstream reads the system log feed for the player process and
// extracts sample rate readings embedded in free-text log lines.
package logstream

import (
	"strconv"
	"strings"

	"github.com/pkarvinen/dacsync/internal/samplerate"
)

// Marker formats observed in the player's log output. Each marker is
// followed by a numeric token; values below 1000 are kHz.
const (
	markerSampleRateColon = "sampleRate:"
	markerSampleRateWord  = "SampleRate "
	markerASBDSampleRate  = "asbdSampleRate = "
)

// ParseLine extracts a normalized sample rate from one log line. It returns
// false for lines without a recognizable rate token; malformed or partial
// lines are skipped silently.
func ParseLine(line string) (int, bool) {
	switch {
	case strings.Contains(line, markerSampleRateColon):
		return parseScaledRate(afterMarker(line, markerSampleRateColon))
	case strings.Contains(line, markerSampleRateWord):
		// Formats like "[SampleRate 96000]"
		return parseIntegerRate(afterMarker(line, markerSampleRateWord))
	case strings.Contains(line, markerASBDSampleRate):
		// Formats like "asbdSampleRate = 44.1 kHz"
		return parseScaledRate(afterMarker(line, markerASBDSampleRate))
	default:
		return 0, false
	}
}

func afterMarker(line, marker string) string {
	_, rest, _ := strings.Cut(line, marker)
	return strings.TrimSpace(rest)
}

// parseScaledRate parses a decimal token and interprets values below 1000
// as kHz.
func parseScaledRate(s string) (int, bool) {
	token := numericPrefix(s, true)
	if token == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	if value <= 0 {
		return 0, false
	}
	rate := int(value)
	if value < 1000 {
		rate = int(value * 1000)
	}
	return samplerate.Normalize(rate), true
}

// parseIntegerRate parses a plain integer token, tolerating surrounding
// punctuation such as brackets.
func parseIntegerRate(s string) (int, bool) {
	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		return 0, false
	}
	token := numericPrefix(s[start:], false)
	rate, err := strconv.Atoi(token)
	if err != nil || rate <= 0 {
		return 0, false
	}
	return samplerate.Normalize(rate), true
}

// numericPrefix returns the leading run of digits (and at most one decimal
// point when allowDot is set).
func numericPrefix(s string, allowDot bool) string {
	end := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if isDigit(rune(c)) {
			end++
			continue
		}
		if allowDot && c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	return strings.TrimSuffix(s[:end], ".")
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
