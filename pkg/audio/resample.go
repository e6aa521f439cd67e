package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts mono PCM16 between sample rates. It is stateful:
// successive Process calls continue one stream, so short frames can be
// fed as they arrive.
type Resampler struct {
	rs resampling.Resampler
}

// NewResampler creates a mono PCM16 resampler from inRate to outRate Hz.
func NewResampler(inRate, outRate int) (*Resampler, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(inRate),
		OutputRate: float64(outRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("audio: create resampler: %w", err)
	}
	return &Resampler{rs: rs}, nil
}

// Process resamples one frame of little-endian PCM16. The returned
// length varies with the rate ratio and the resampler's internal state;
// an empty result is normal for very short inputs.
func (r *Resampler) Process(pcm []byte) ([]byte, error) {
	n := len(pcm) / bytesPerSample
	input := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		input[i] = float64(v) / 32768
	}

	output, err := r.rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("audio: resample: %w", err)
	}

	out := make([]byte, len(output)*bytesPerSample)
	for i, s := range output {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out, nil
}
