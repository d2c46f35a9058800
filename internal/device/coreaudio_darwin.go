//go:build darwin && cgo

package device

/*
#cgo LDFLAGS: -framework CoreAudio -framework CoreFoundation
#include <stdlib.h>
#include <CoreAudio/CoreAudio.h>
#include <CoreFoundation/CoreFoundation.h>

static AudioObjectPropertyAddress dacsyncAddr(AudioObjectPropertySelector selector, AudioObjectPropertyScope scope) {
	AudioObjectPropertyAddress addr = {selector, scope, kAudioObjectPropertyElementMain};
	return addr;
}

static OSStatus dacsyncCopyDeviceIDs(AudioDeviceID **out, UInt32 *count) {
	AudioObjectPropertyAddress addr = dacsyncAddr(kAudioHardwarePropertyDevices, kAudioObjectPropertyScopeGlobal);
	UInt32 size = 0;
	OSStatus status = AudioObjectGetPropertyDataSize(kAudioObjectSystemObject, &addr, 0, NULL, &size);
	if (status != noErr) {
		return status;
	}
	*count = size / sizeof(AudioDeviceID);
	*out = (AudioDeviceID *)malloc(size);
	status = AudioObjectGetPropertyData(kAudioObjectSystemObject, &addr, 0, NULL, &size, *out);
	if (status != noErr) {
		free(*out);
		*out = NULL;
	}
	return status;
}

static OSStatus dacsyncDefaultOutput(AudioDeviceID *out) {
	AudioObjectPropertyAddress addr = dacsyncAddr(kAudioHardwarePropertyDefaultOutputDevice, kAudioObjectPropertyScopeGlobal);
	UInt32 size = sizeof(AudioDeviceID);
	return AudioObjectGetPropertyData(kAudioObjectSystemObject, &addr, 0, NULL, &size, out);
}

static OSStatus dacsyncCopyStringProperty(AudioDeviceID device, AudioObjectPropertySelector selector, char *buf, UInt32 bufLen) {
	AudioObjectPropertyAddress addr = dacsyncAddr(selector, kAudioObjectPropertyScopeGlobal);
	CFStringRef value = NULL;
	UInt32 size = sizeof(CFStringRef);
	OSStatus status = AudioObjectGetPropertyData(device, &addr, 0, NULL, &size, &value);
	if (status != noErr) {
		return status;
	}
	if (value == NULL) {
		return kAudioHardwareUnspecifiedError;
	}
	Boolean ok = CFStringGetCString(value, buf, bufLen, kCFStringEncodingUTF8);
	CFRelease(value);
	return ok ? noErr : kAudioHardwareUnspecifiedError;
}

static UInt32 dacsyncOutputChannels(AudioDeviceID device) {
	AudioObjectPropertyAddress addr = dacsyncAddr(kAudioDevicePropertyStreamConfiguration, kAudioObjectPropertyScopeOutput);
	UInt32 size = 0;
	if (AudioObjectGetPropertyDataSize(device, &addr, 0, NULL, &size) != noErr || size == 0) {
		return 0;
	}
	AudioBufferList *list = (AudioBufferList *)malloc(size);
	if (AudioObjectGetPropertyData(device, &addr, 0, NULL, &size, list) != noErr) {
		free(list);
		return 0;
	}
	UInt32 channels = 0;
	for (UInt32 i = 0; i < list->mNumberBuffers; i++) {
		channels += list->mBuffers[i].mNumberChannels;
	}
	free(list);
	return channels;
}

static OSStatus dacsyncNominalRate(AudioDeviceID device, Float64 *rate) {
	AudioObjectPropertyAddress addr = dacsyncAddr(kAudioDevicePropertyNominalSampleRate, kAudioObjectPropertyScopeGlobal);
	UInt32 size = sizeof(Float64);
	return AudioObjectGetPropertyData(device, &addr, 0, NULL, &size, rate);
}

static OSStatus dacsyncRateSettable(AudioDeviceID device, Boolean *settable) {
	AudioObjectPropertyAddress addr = dacsyncAddr(kAudioDevicePropertyNominalSampleRate, kAudioObjectPropertyScopeGlobal);
	return AudioObjectIsPropertySettable(device, &addr, settable);
}

static OSStatus dacsyncSetNominalRate(AudioDeviceID device, Float64 rate) {
	AudioObjectPropertyAddress addr = dacsyncAddr(kAudioDevicePropertyNominalSampleRate, kAudioObjectPropertyScopeGlobal);
	return AudioObjectSetPropertyData(device, &addr, 0, NULL, sizeof(Float64), &rate);
}

static OSStatus dacsyncCopySupportedRates(AudioDeviceID device, AudioValueRange **out, UInt32 *count) {
	AudioObjectPropertyAddress addr = dacsyncAddr(kAudioDevicePropertyAvailableNominalSampleRates, kAudioObjectPropertyScopeGlobal);
	UInt32 size = 0;
	OSStatus status = AudioObjectGetPropertyDataSize(device, &addr, 0, NULL, &size);
	if (status != noErr) {
		return status;
	}
	*count = size / sizeof(AudioValueRange);
	*out = (AudioValueRange *)malloc(size);
	status = AudioObjectGetPropertyData(device, &addr, 0, NULL, &size, *out);
	if (status != noErr) {
		free(*out);
		*out = NULL;
	}
	return status;
}
*/
import "C"

import (
	"unsafe"

	"github.com/pkarvinen/dacsync/internal/errors"
)

const stringPropertyBufLen = 512

// CoreAudioRegistry is the darwin Registry implementation backed by the
// CoreAudio HAL.
type CoreAudioRegistry struct{}

// NewRegistry returns the platform Registry.
func NewRegistry() Registry {
	return &CoreAudioRegistry{}
}

// Outputs lists all devices with at least one output channel.
func (r *CoreAudioRegistry) Outputs() ([]Device, error) {
	var ids *C.AudioDeviceID
	var count C.UInt32
	if status := C.dacsyncCopyDeviceIDs(&ids, &count); status != C.noErr {
		return nil, errors.Newf("enumerating audio devices failed (OSStatus %d)", int32(status)).
			Category(errors.CategoryDeviceEnumeration).
			Component("device").
			Build()
	}
	defer C.free(unsafe.Pointer(ids))

	deviceIDs := unsafe.Slice(ids, int(count))
	var devices []Device
	for _, id := range deviceIDs {
		if C.dacsyncOutputChannels(id) == 0 {
			continue
		}
		dev, err := r.describe(ID(id))
		if err != nil {
			// Devices can disappear mid-enumeration, skip them
			continue
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// DefaultOutput returns the system default output device.
func (r *CoreAudioRegistry) DefaultOutput() (Device, error) {
	var id C.AudioDeviceID
	if status := C.dacsyncDefaultOutput(&id); status != C.noErr || id == 0 {
		return Device{}, ErrNoDefaultDevice
	}
	return r.describe(ID(id))
}

// FindByUID returns the output device with the given UID.
func (r *CoreAudioRegistry) FindByUID(uid string) (Device, error) {
	devices, err := r.Outputs()
	if err != nil {
		return Device{}, err
	}
	for i := range devices {
		if devices[i].UID == uid {
			return devices[i], nil
		}
	}
	return Device{}, ErrDeviceNotFound
}

// NominalRate reads the device's current nominal sample rate.
func (r *CoreAudioRegistry) NominalRate(id ID) (int, error) {
	var rate C.Float64
	if status := C.dacsyncNominalRate(C.AudioDeviceID(id), &rate); status != C.noErr {
		return 0, errors.Newf("reading nominal sample rate failed (OSStatus %d)", int32(status)).
			Category(errors.CategoryDeviceRead).
			Component("device").
			Context("device_id", uint32(id)).
			Build()
	}
	return int(rate), nil
}

// SetNominalRate changes the device's nominal sample rate.
func (r *CoreAudioRegistry) SetNominalRate(id ID, rate int) error {
	var settable C.Boolean
	if status := C.dacsyncRateSettable(C.AudioDeviceID(id), &settable); status != C.noErr || settable == 0 {
		return ErrRateNotSettable
	}
	if status := C.dacsyncSetNominalRate(C.AudioDeviceID(id), C.Float64(rate)); status != C.noErr {
		return errors.Newf("setting nominal sample rate to %d Hz failed (OSStatus %d)", rate, int32(status)).
			Category(errors.CategoryDeviceWrite).
			Component("device").
			Context("device_id", uint32(id)).
			Context("rate", rate).
			Build()
	}
	return nil
}

// SupportedRates reads the device's supported nominal rate ranges.
func (r *CoreAudioRegistry) SupportedRates(id ID) ([]RateRange, error) {
	var ranges *C.AudioValueRange
	var count C.UInt32
	if status := C.dacsyncCopySupportedRates(C.AudioDeviceID(id), &ranges, &count); status != C.noErr {
		return nil, errors.Newf("reading supported sample rates failed (OSStatus %d)", int32(status)).
			Category(errors.CategoryDeviceRead).
			Component("device").
			Context("device_id", uint32(id)).
			Build()
	}
	defer C.free(unsafe.Pointer(ranges))

	raw := unsafe.Slice(ranges, int(count))
	out := make([]RateRange, 0, len(raw))
	for _, r := range raw {
		out = append(out, RateRange{Min: int(r.mMinimum), Max: int(r.mMaximum)})
	}
	return out, nil
}

// describe assembles a full Device description for id.
func (r *CoreAudioRegistry) describe(id ID) (Device, error) {
	name, err := r.stringProperty(id, C.kAudioDevicePropertyDeviceNameCFString)
	if err != nil {
		return Device{}, err
	}
	uid, err := r.stringProperty(id, C.kAudioDevicePropertyDeviceUID)
	if err != nil {
		return Device{}, err
	}

	dev := Device{ID: id, Name: name, UID: uid}
	if rate, err := r.NominalRate(id); err == nil {
		dev.NominalRate = rate
	}
	if ranges, err := r.SupportedRates(id); err == nil {
		dev.SupportedRates = ranges
	}
	var settable C.Boolean
	if status := C.dacsyncRateSettable(C.AudioDeviceID(id), &settable); status == C.noErr {
		dev.Settable = settable != 0
	}
	return dev, nil
}

func (r *CoreAudioRegistry) stringProperty(id ID, selector C.AudioObjectPropertySelector) (string, error) {
	buf := (*C.char)(C.malloc(stringPropertyBufLen))
	defer C.free(unsafe.Pointer(buf))

	if status := C.dacsyncCopyStringProperty(C.AudioDeviceID(id), selector, buf, stringPropertyBufLen); status != C.noErr {
		return "", errors.Newf("reading device string property failed (OSStatus %d)", int32(status)).
			Category(errors.CategoryDeviceRead).
			Component("device").
			Context("device_id", uint32(id)).
			Build()
	}
	return C.GoString(buf), nil
}
