package audio

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// StreamSink plays scheduled chunks by writing them to a blocking PCM
// writer, typically a portaudio output stream. A single goroutine paces
// writes against each chunk's start time; Stop invalidates everything
// queued without tearing the goroutine down.
type StreamSink struct {
	w     io.Writer
	gen   atomic.Uint64
	queue chan sinkChunk

	closeOnce sync.Once
	closed    chan struct{}
}

type sinkChunk struct {
	start time.Time
	pcm   []byte
	gen   uint64
}

// NewStreamSink creates a StreamSink writing to w and starts its
// playback goroutine. Call Close to stop it.
func NewStreamSink(w io.Writer) *StreamSink {
	s := &StreamSink{
		w:      w,
		queue:  make(chan sinkChunk, 256),
		closed: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *StreamSink) ScheduleAt(start time.Time, pcm []byte) {
	c := sinkChunk{start: start, pcm: pcm, gen: s.gen.Load()}
	select {
	case s.queue <- c:
	default:
		// The device fell far behind; dropping is better than
		// blocking the event loop.
		slog.Debug("audio: playback queue full, dropping chunk", "bytes", len(pcm))
	}
}

// Stop invalidates all queued chunks. The chunk currently being written
// finishes its write; everything behind it is discarded.
func (s *StreamSink) Stop() {
	s.gen.Add(1)
	for {
		select {
		case <-s.queue:
		default:
			return
		}
	}
}

// Close stops the playback goroutine. The underlying writer is not
// closed; the caller owns it.
func (s *StreamSink) Close() {
	s.closeOnce.Do(func() {
		s.gen.Add(1)
		close(s.closed)
	})
}

func (s *StreamSink) run() {
	for {
		var c sinkChunk
		select {
		case <-s.closed:
			return
		case c = <-s.queue:
		}
		if c.gen != s.gen.Load() {
			continue
		}
		if d := time.Until(c.start); d > 0 {
			select {
			case <-s.closed:
				return
			case <-time.After(d):
			}
			if c.gen != s.gen.Load() {
				continue
			}
		}
		if _, err := s.w.Write(c.pcm); err != nil {
			slog.Debug("audio: playback write failed", "error", err)
		}
	}
}
