package portaudio

/*
#include <portaudio.h>
*/
import "C"

import (
	"errors"
	"io"
	"unsafe"
)

// InputConfig configures a microphone stream.
type InputConfig struct {
	// Device is a Devices() index, or DefaultDevice.
	Device int

	// SampleRate in Hz.
	SampleRate int

	// FrameSize is the number of samples per ReadFrame.
	FrameSize int
}

// Input captures mono float32 audio from one device.
type Input struct {
	stream *stream
	rate   int
	buf    []float32
}

// OpenInput opens and starts a mono float32 capture stream.
func OpenInput(cfg InputConfig) (*Input, error) {
	if cfg.SampleRate <= 0 || cfg.FrameSize <= 0 {
		return nil, errors.New("portaudio: sample rate and frame size required")
	}
	s, err := openStream(cfg.Device, true, C.paFloat32, float64(cfg.SampleRate), cfg.FrameSize)
	if err != nil {
		return nil, err
	}
	return &Input{
		stream: s,
		rate:   cfg.SampleRate,
		buf:    make([]float32, cfg.FrameSize),
	}, nil
}

// ReadFrame blocks until one frame of samples is captured. It returns
// io.EOF after Close. The returned slice is only valid until the next
// call.
func (in *Input) ReadFrame() ([]float32, error) {
	err := in.stream.read(unsafe.Pointer(&in.buf[0]), len(in.buf))
	if errors.Is(err, errClosed) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(in.buf))
	copy(out, in.buf)
	return out, nil
}

// SampleRate returns the capture rate in Hz.
func (in *Input) SampleRate() int { return in.rate }

// Close stops the device. Idempotent.
func (in *Input) Close() error { return in.stream.close() }

// OutputConfig configures a playback stream.
type OutputConfig struct {
	// Device is a Devices() index, or DefaultDevice.
	Device int

	// SampleRate in Hz.
	SampleRate int
}

// Output plays mono little-endian PCM16 on one device.
type Output struct {
	stream *stream
}

// OpenOutput opens and starts a mono PCM16 playback stream.
func OpenOutput(cfg OutputConfig) (*Output, error) {
	if cfg.SampleRate <= 0 {
		return nil, errors.New("portaudio: sample rate required")
	}
	s, err := openStream(cfg.Device, false, C.paInt16, float64(cfg.SampleRate), 0)
	if err != nil {
		return nil, err
	}
	return &Output{stream: s}, nil
}

// Write plays little-endian PCM16 bytes, blocking until the device has
// consumed them. A trailing odd byte is ignored.
func (out *Output) Write(pcm []byte) (int, error) {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	if len(samples) == 0 {
		return len(pcm), nil
	}
	if err := out.stream.write(unsafe.Pointer(&samples[0]), len(samples)); err != nil {
		return 0, err
	}
	return len(pcm), nil
}

// Close stops the device. Idempotent.
func (out *Output) Close() error { return out.stream.close() }
