package audio

import (
	"encoding/base64"
	"testing"
	"time"
)

type fakeSink struct {
	starts []time.Time
	chunks [][]byte
	stops  int
}

func (f *fakeSink) ScheduleAt(start time.Time, pcm []byte) {
	f.starts = append(f.starts, start)
	f.chunks = append(f.chunks, pcm)
}

func (f *fakeSink) Stop() { f.stops++ }

func newTestScheduler(sink Sink, now time.Time) (*Scheduler, *time.Time) {
	clock := now
	s := NewScheduler(sink)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestSchedulerGaplessPlayback(t *testing.T) {
	sink := &fakeSink{}
	t0 := time.Unix(100, 0)
	s, _ := newTestScheduler(sink, t0)

	chunk := make([]byte, 480) // 10ms at 24kHz
	for i := 0; i < 3; i++ {
		s.Play(chunk)
	}

	if len(sink.starts) != 3 {
		t.Fatalf("scheduled %d chunks, want 3", len(sink.starts))
	}
	d := Duration(len(chunk))
	for i, start := range sink.starts {
		want := t0.Add(time.Duration(i) * d)
		if !start.Equal(want) {
			t.Errorf("chunk %d start = %v, want %v", i, start, want)
		}
	}
	// Each start is at or after the previous chunk's end.
	for i := 1; i < len(sink.starts); i++ {
		if sink.starts[i].Before(sink.starts[i-1].Add(d)) {
			t.Errorf("chunk %d overlaps previous", i)
		}
	}
}

func TestSchedulerLateChunkStartsNow(t *testing.T) {
	sink := &fakeSink{}
	t0 := time.Unix(100, 0)
	s, clock := newTestScheduler(sink, t0)

	chunk := make([]byte, 480)
	s.Play(chunk)

	// Next chunk arrives well after the first finished.
	*clock = t0.Add(time.Second)
	s.Play(chunk)

	if got := sink.starts[1]; !got.Equal(*clock) {
		t.Errorf("late chunk start = %v, want now %v", got, *clock)
	}
}

func TestSchedulerReset(t *testing.T) {
	sink := &fakeSink{}
	t0 := time.Unix(100, 0)
	s, _ := newTestScheduler(sink, t0)

	// Queue far ahead of the clock.
	s.Play(make([]byte, SampleRate*2)) // 1s
	s.Play(make([]byte, SampleRate*2))

	s.Reset()
	if sink.stops != 1 {
		t.Fatalf("stops = %d, want 1", sink.stops)
	}

	s.Play(make([]byte, 480))
	if got := sink.starts[2]; !got.Equal(t0) {
		t.Errorf("post-reset start = %v, want now %v, not the old queue tail", got, t0)
	}
}

func TestSchedulerSetSink(t *testing.T) {
	oldSink := &fakeSink{}
	newSink := &fakeSink{}
	t0 := time.Unix(100, 0)
	s, _ := newTestScheduler(oldSink, t0)

	s.Play(make([]byte, SampleRate*2))
	s.SetSink(newSink)

	if oldSink.stops != 1 {
		t.Errorf("old sink stops = %d, want 1", oldSink.stops)
	}
	s.Play(make([]byte, 480))
	if len(oldSink.chunks) != 1 || len(newSink.chunks) != 1 {
		t.Fatalf("chunks routed old=%d new=%d, want 1/1", len(oldSink.chunks), len(newSink.chunks))
	}
	if got := newSink.starts[0]; !got.Equal(t0) {
		t.Errorf("new sink start = %v, want clock reset to now", got)
	}
}

func TestSchedulerPlayBase64(t *testing.T) {
	sink := &fakeSink{}
	s, _ := newTestScheduler(sink, time.Unix(100, 0))

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	if err := s.PlayBase64(base64.StdEncoding.EncodeToString(pcm)); err != nil {
		t.Fatalf("PlayBase64: %v", err)
	}
	if len(sink.chunks) != 1 || string(sink.chunks[0]) != string(pcm) {
		t.Fatalf("decoded chunk mismatch")
	}

	if err := s.PlayBase64("not base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if len(sink.chunks) != 1 {
		t.Error("invalid chunk must not be scheduled")
	}
}
