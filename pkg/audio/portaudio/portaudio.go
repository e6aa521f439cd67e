// Package portaudio binds the PortAudio C library for microphone
// capture and speaker playback.
//
// Requires portaudio installed via pkg-config (brew install portaudio /
// apt install portaudio19-dev).
package portaudio

/*
#cgo pkg-config: portaudio-2.0

#include <portaudio.h>

// Wrappers use void* to avoid CGO type issues with PaStream.
static PaError pa_open_stream(void **stream,
                              const PaStreamParameters *inputParams,
                              const PaStreamParameters *outputParams,
                              double sampleRate,
                              unsigned long framesPerBuffer,
                              PaStreamFlags streamFlags) {
    return Pa_OpenStream((PaStream**)stream, inputParams, outputParams, sampleRate,
                         framesPerBuffer, streamFlags, NULL, NULL);
}

static PaError pa_start_stream(void *stream)  { return Pa_StartStream((PaStream*)stream); }
static PaError pa_stop_stream(void *stream)   { return Pa_StopStream((PaStream*)stream); }
static PaError pa_close_stream(void *stream)  { return Pa_CloseStream((PaStream*)stream); }

static PaError pa_read_stream(void *stream, void *buffer, unsigned long frames) {
    return Pa_ReadStream((PaStream*)stream, buffer, frames);
}

static PaError pa_write_stream(void *stream, const void *buffer, unsigned long frames) {
    return Pa_WriteStream((PaStream*)stream, buffer, frames);
}
*/
import "C"

import (
	"errors"
	"sync"
	"unsafe"
)

var (
	initOnce sync.Once
	initErr  error
)

// DefaultDevice selects the system default device in InputConfig and
// OutputConfig.
const DefaultDevice = -1

func paError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	return errors.New(C.GoString(C.Pa_GetErrorText(code)))
}

// Initialize initializes the PortAudio library. Safe to call multiple
// times.
func Initialize() error {
	initOnce.Do(func() {
		initErr = paError(C.Pa_Initialize())
	})
	return initErr
}

// Terminate releases the PortAudio library.
func Terminate() error {
	return paError(C.Pa_Terminate())
}

// DeviceInfo describes one audio device.
type DeviceInfo struct {
	Index             int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	IsDefaultInput    bool
	IsDefaultOutput   bool
}

// Devices lists the available audio devices.
func Devices() ([]DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	count := int(C.Pa_GetDeviceCount())
	if count < 0 {
		return nil, paError(C.PaError(count))
	}
	defaultIn := int(C.Pa_GetDefaultInputDevice())
	defaultOut := int(C.Pa_GetDefaultOutputDevice())

	devices := make([]DeviceInfo, 0, count)
	for i := 0; i < count; i++ {
		info := C.Pa_GetDeviceInfo(C.PaDeviceIndex(i))
		if info == nil {
			continue
		}
		devices = append(devices, DeviceInfo{
			Index:             i,
			Name:              C.GoString(info.name),
			MaxInputChannels:  int(info.maxInputChannels),
			MaxOutputChannels: int(info.maxOutputChannels),
			DefaultSampleRate: float64(info.defaultSampleRate),
			IsDefaultInput:    i == defaultIn,
			IsDefaultOutput:   i == defaultOut,
		})
	}
	return devices, nil
}

// resolveDevice maps a config device index to a PortAudio device,
// falling back to the system default for DefaultDevice.
func resolveDevice(index int, input bool) (C.PaDeviceIndex, *C.PaDeviceInfo, error) {
	var idx C.PaDeviceIndex
	if index == DefaultDevice {
		if input {
			idx = C.Pa_GetDefaultInputDevice()
		} else {
			idx = C.Pa_GetDefaultOutputDevice()
		}
		if idx == C.paNoDevice {
			if input {
				return 0, nil, errors.New("portaudio: no default input device")
			}
			return 0, nil, errors.New("portaudio: no default output device")
		}
	} else {
		idx = C.PaDeviceIndex(index)
	}
	info := C.Pa_GetDeviceInfo(idx)
	if info == nil {
		return 0, nil, errors.New("portaudio: unknown device")
	}
	return idx, info, nil
}

type stream struct {
	ptr    unsafe.Pointer
	mu     sync.Mutex
	closed bool
}

func openStream(device int, input bool, format C.PaSampleFormat, sampleRate float64, framesPerBuffer int) (*stream, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	idx, info, err := resolveDevice(device, input)
	if err != nil {
		return nil, err
	}

	params := C.PaStreamParameters{
		device:       idx,
		channelCount: 1,
		sampleFormat: format,
	}
	var inParams, outParams *C.PaStreamParameters
	if input {
		params.suggestedLatency = info.defaultLowInputLatency
		inParams = &params
	} else {
		params.suggestedLatency = info.defaultLowOutputLatency
		outParams = &params
	}

	var ptr unsafe.Pointer
	if err := paError(C.pa_open_stream(&ptr, inParams, outParams,
		C.double(sampleRate), C.ulong(framesPerBuffer), C.paClipOff)); err != nil {
		return nil, err
	}
	s := &stream{ptr: ptr}
	if err := paError(C.pa_start_stream(s.ptr)); err != nil {
		C.pa_close_stream(s.ptr)
		return nil, err
	}
	return s, nil
}

func (s *stream) read(buf unsafe.Pointer, frames int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	return paError(C.pa_read_stream(s.ptr, buf, C.ulong(frames)))
}

func (s *stream) write(buf unsafe.Pointer, frames int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	return paError(C.pa_write_stream(s.ptr, buf, C.ulong(frames)))
}

func (s *stream) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	C.pa_stop_stream(s.ptr)
	return paError(C.pa_close_stream(s.ptr))
}

var errClosed = errors.New("portaudio: stream closed")
