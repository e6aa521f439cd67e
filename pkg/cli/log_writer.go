package cli

import (
	"strings"

	"github.com/voxterm/voxterm/pkg/buffer"
)

// LogWriter captures log output for the TUI's log pane. It keeps the
// most recent lines in a ring and notifies a channel so the UI can
// refresh as lines arrive. Safe for concurrent writers.
type LogWriter struct {
	buf *buffer.RingBuffer[string]
	ch  chan string
}

// NewLogWriter creates a log writer keeping at most maxLines lines.
func NewLogWriter(maxLines int) *LogWriter {
	return &LogWriter{
		buf: buffer.RingN[string](maxLines),
		ch:  make(chan string, 100),
	}
}

// Write implements io.Writer, splitting multi-line payloads.
func (w *LogWriter) Write(p []byte) (n int, err error) {
	text := strings.TrimRight(string(p), "\n")
	for _, line := range strings.Split(text, "\n") {
		_ = w.buf.Add(line)

		// Never block a logger on a slow UI.
		select {
		case w.ch <- line:
		default:
		}
	}
	return len(p), nil
}

// Lines returns the buffered lines, oldest first.
func (w *LogWriter) Lines() []string {
	return w.buf.Bytes()
}

// Channel returns the new-line notification channel.
func (w *LogWriter) Channel() <-chan string {
	return w.ch
}
