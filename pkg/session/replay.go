package session

import (
	"strings"

	"github.com/voxterm/voxterm/pkg/history"
)

// replayHeader introduces the synthetic context message sent after a
// reconnect.
const replayHeader = "Context from previous chat session. Use it as memory for this conversation."

const (
	// replayTurns is how many recent turns the replay covers.
	replayTurns = 20

	// maxReplayChars bounds the replay message size. Longer contexts
	// are truncated from the front, keeping the most recent turns.
	maxReplayChars = 8000
)

// BuildReplayContext renders recent history as one compact message the
// model can use as memory. Returns "" when there is no history.
func BuildReplayContext(turns []history.Turn) string {
	if len(turns) > replayTurns {
		turns = turns[len(turns)-replayTurns:]
	}
	if len(turns) == 0 {
		return ""
	}

	lines := make([]string, 0, len(turns)+1)
	lines = append(lines, replayHeader)
	for _, t := range turns {
		speaker := "Assistant"
		if t.Role == history.RoleUser {
			speaker = "User"
		}
		lines = append(lines, speaker+": "+strings.Join(strings.Fields(t.Text), " "))
	}

	memory := strings.Join(lines, "\n")
	if runes := []rune(memory); len(runes) > maxReplayChars {
		memory = "..." + string(runes[len(runes)-(maxReplayChars-3):])
	}
	return memory
}
