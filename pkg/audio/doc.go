// Package audio implements the capture and playback pipeline for a
// realtime voice session.
//
// The upstream direction converts microphone float32 samples to signed
// 16-bit little-endian PCM frames and delivers them over a channel, with
// an optional resampling stage when the input device cannot run at the
// session rate. The downstream direction schedules decoded PCM16 chunks
// for gapless playback on a running clock.
//
// Sub-package portaudio holds the CGO device bindings. Everything above
// the device layer is plain Go and testable without hardware.
package audio
