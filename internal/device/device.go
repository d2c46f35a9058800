// Package device provides access to audio output devices and their nominal
// sample rates. The controller consumes the Registry interface; the concrete
// implementation talks to CoreAudio and lives behind a darwin build tag.
package device

import (
	"github.com/pkarvinen/dacsync/internal/errors"
)

// ID identifies an audio device for the lifetime of the process.
type ID uint32

// RateRange is an inclusive range of supported nominal sample rates in Hz.
// Fixed-rate devices report ranges where Min == Max.
type RateRange struct {
	Min int
	Max int
}

// Contains reports whether rate falls within the range.
func (r RateRange) Contains(rate int) bool {
	return rate >= r.Min && rate <= r.Max
}

// Device describes an audio output device.
type Device struct {
	ID             ID
	Name           string
	UID            string // stable unique identifier, survives replug
	NominalRate    int    // current nominal sample rate in Hz
	SupportedRates []RateRange
	Settable       bool // true if the nominal rate can be changed
}

// Supports reports whether any supported range of the device contains rate.
func (d *Device) Supports(rate int) bool {
	return RangesContain(d.SupportedRates, rate)
}

// RangesContain reports whether any range in ranges contains rate.
func RangesContain(ranges []RateRange, rate int) bool {
	for _, r := range ranges {
		if r.Contains(rate) {
			return true
		}
	}
	return false
}

// Registry enumerates output devices and reads/writes their nominal rates.
// The live device state is externally owned: callers must re-read the
// nominal rate before every decision instead of caching it.
type Registry interface {
	// Outputs lists all devices with output channels.
	Outputs() ([]Device, error)
	// DefaultOutput returns the system default output device.
	DefaultOutput() (Device, error)
	// FindByUID returns the output device with the given UID.
	FindByUID(uid string) (Device, error)
	// NominalRate reads the device's current nominal sample rate.
	NominalRate(id ID) (int, error)
	// SetNominalRate changes the device's nominal sample rate.
	SetNominalRate(id ID, rate int) error
	// SupportedRates reads the device's supported nominal rate ranges.
	SupportedRates(id ID) ([]RateRange, error)
}

// Sentinel errors surfaced by Registry implementations.
var (
	ErrDeviceNotFound      = errors.NewStd("audio device not found")
	ErrNoDefaultDevice     = errors.NewStd("no default output device")
	ErrRateNotSettable     = errors.NewStd("nominal sample rate is not settable on this device")
	ErrUnsupportedPlatform = errors.NewStd("audio device control is only supported on darwin")
)
