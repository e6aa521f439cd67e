package audio

import "time"

// SampleRate is the session sample rate in Hz. Both directions of the
// realtime protocol carry mono PCM16 at this rate.
const SampleRate = 24000

// bytesPerSample is the size of one PCM16 sample.
const bytesPerSample = 2

// Float32ToPCM16 converts float32 samples in [-1, 1] to little-endian
// signed 16-bit PCM. Samples are clamped before scaling; the negative
// half-range scales by 32768 and the non-negative half by 32767, so both
// extremes map onto representable values.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, f := range samples {
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		var v int16
		if f < 0 {
			v = int16(f * 32768)
		} else {
			v = int16(f * 32767)
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// PCM16ToFloat32 converts little-endian signed 16-bit PCM to float32
// samples in [-1, 1). A trailing odd byte is ignored.
func PCM16ToFloat32(data []byte) []float32 {
	n := len(data) / bytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(data[i*2]) | int16(data[i*2+1])<<8
		out[i] = float32(v) / 32768
	}
	return out
}

// Duration returns the playback duration of a PCM16 mono buffer at the
// session sample rate.
func Duration(pcmBytes int) time.Duration {
	samples := pcmBytes / bytesPerSample
	return time.Duration(samples) * time.Second / SampleRate
}
