package audio

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Source delivers successive microphone frames as float32 samples in
// [-1, 1]. ReadFrame blocks until a frame is available and returns
// io.EOF once the device is closed.
type Source interface {
	ReadFrame() ([]float32, error)
	SampleRate() int
}

// Capture runs the microphone read loop on its own goroutine and
// delivers PCM16 frames at the session rate over Frames. Delivery is
// one-way and never blocks the read loop: when the consumer falls
// behind, the oldest pending frame is dropped.
type Capture struct {
	frames chan []byte
	stop   chan struct{}
	once   sync.Once

	muted atomic.Bool
	err   error
	done  chan struct{}
}

// StartCapture begins reading from src. A resampling stage is inserted
// when the source rate differs from the session rate.
func StartCapture(src Source) (*Capture, error) {
	var rs *Resampler
	if src.SampleRate() != SampleRate {
		var err error
		rs, err = NewResampler(src.SampleRate(), SampleRate)
		if err != nil {
			return nil, err
		}
	}
	c := &Capture{
		frames: make(chan []byte, 32),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.run(src, rs)
	return c, nil
}

// Frames is the stream of captured PCM16 frames. It is closed when the
// source ends or Stop is called; Err reports why.
func (c *Capture) Frames() <-chan []byte { return c.frames }

// SetMuted substitutes silence for microphone frames without pausing
// the device. Pacing and frame sizes are unchanged.
func (c *Capture) SetMuted(muted bool) { c.muted.Store(muted) }

// Muted reports whether capture is muted.
func (c *Capture) Muted() bool { return c.muted.Load() }

// Stop ends the read loop. Safe to call more than once.
func (c *Capture) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Err returns the source error that ended capture, or nil after a clean
// Stop or EOF. Valid once Frames is closed.
func (c *Capture) Err() error {
	<-c.done
	return c.err
}

func (c *Capture) run(src Source, rs *Resampler) {
	defer close(c.done)
	defer close(c.frames)

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		samples, err := src.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.err = err
			}
			return
		}
		if len(samples) == 0 {
			continue
		}
		if c.muted.Load() {
			for i := range samples {
				samples[i] = 0
			}
		}

		pcm := Float32ToPCM16(samples)
		if rs != nil {
			pcm, err = rs.Process(pcm)
			if err != nil {
				c.err = err
				return
			}
			if len(pcm) == 0 {
				continue
			}
		}
		c.deliver(pcm)
	}
}

func (c *Capture) deliver(pcm []byte) {
	for {
		select {
		case c.frames <- pcm:
			return
		default:
		}
		// Consumer is behind; evict the oldest frame and retry.
		select {
		case old := <-c.frames:
			slog.Debug("audio: capture backlog, dropping frame", "bytes", len(old))
		default:
		}
	}
}
