package audio

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

// Sink consumes scheduled PCM16 chunks. Implementations must not block
// in ScheduleAt; queueing and pacing happen behind it.
type Sink interface {
	// ScheduleAt queues pcm to begin playing at start.
	ScheduleAt(start time.Time, pcm []byte)

	// Stop immediately drops everything queued or playing.
	Stop()
}

// Scheduler assigns start times to incoming PCM16 chunks so that
// consecutive chunks play back to back with no gap. Each chunk starts at
// max(nextPlayTime, now) and advances nextPlayTime by its own duration.
// Chunks arriving slower than real time restart at "now"; chunks arriving
// faster queue up behind the clock.
type Scheduler struct {
	mu   sync.Mutex
	sink Sink
	now  func() time.Time
	next time.Time
}

// NewScheduler creates a Scheduler feeding the given sink. A nil sink
// discards audio until SetSink installs a real one.
func NewScheduler(sink Sink) *Scheduler {
	if sink == nil {
		sink = nopSink{}
	}
	return &Scheduler{sink: sink, now: time.Now}
}

// nopSink stands in before an output device is attached.
type nopSink struct{}

func (nopSink) ScheduleAt(time.Time, []byte) {}
func (nopSink) Stop()                        {}

// PlayBase64 decodes a base64 PCM16 chunk and schedules it.
func (s *Scheduler) PlayBase64(chunk string) error {
	pcm, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		return fmt.Errorf("audio: decode chunk: %w", err)
	}
	s.Play(pcm)
	return nil
}

// Play schedules a PCM16 mono chunk at the session sample rate.
func (s *Scheduler) Play(pcm []byte) {
	if len(pcm) < bytesPerSample {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.next
	if now := s.now(); now.After(start) {
		start = now
	}
	s.next = start.Add(Duration(len(pcm)))
	s.sink.ScheduleAt(start, pcm)
}

// Reset stops all queued and playing audio and re-arms the clock so the
// next chunk starts immediately. Used on barge-in and disconnect.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.Stop()
	s.next = time.Time{}
}

// SetSink switches the output sink. The old sink is stopped and the
// clock reset; pending audio does not carry over to the new device.
func (s *Scheduler) SetSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.Stop()
	s.sink = sink
	s.next = time.Time{}
}
