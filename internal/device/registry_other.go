//go:build !darwin || !cgo

package device

// unsupportedRegistry stands in on platforms without CoreAudio so the core
// packages and their tests build everywhere.
type unsupportedRegistry struct{}

// NewRegistry returns the platform Registry.
func NewRegistry() Registry {
	return unsupportedRegistry{}
}

func (unsupportedRegistry) Outputs() ([]Device, error)           { return nil, ErrUnsupportedPlatform }
func (unsupportedRegistry) DefaultOutput() (Device, error)       { return Device{}, ErrUnsupportedPlatform }
func (unsupportedRegistry) FindByUID(string) (Device, error)     { return Device{}, ErrUnsupportedPlatform }
func (unsupportedRegistry) NominalRate(ID) (int, error)          { return 0, ErrUnsupportedPlatform }
func (unsupportedRegistry) SetNominalRate(ID, int) error         { return ErrUnsupportedPlatform }
func (unsupportedRegistry) SupportedRates(ID) ([]RateRange, error) { return nil, ErrUnsupportedPlatform }
