// Package history persists the conversation transcript as a bounded
// append-only log.
//
// Turns are msgpack-encoded in a kv.Store under timestamp keys, so a
// prefix scan returns them in chronological order. The log keeps only
// the most recent MaxTurns entries; older ones are evicted silently on
// write. Entries are never mutated after append and are only removed in
// bulk by Clear.
package history

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voxterm/voxterm/pkg/usage"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Input types recorded on user turns. Assistant turns carry InputNone.
const (
	InputText  = "text"
	InputVoice = "voice"
	InputNone  = "n/a"
)

// MaxTurns is the log size ceiling. Appending beyond it evicts the
// oldest turn.
const MaxTurns = 200

// Turn is one persisted conversation entry.
type Turn struct {
	ID          string    `json:"id" msgpack:"id"`
	Role        Role      `json:"role" msgpack:"role"`
	Text        string    `json:"text" msgpack:"text"`
	CreatedAt   time.Time `json:"createdAt" msgpack:"created_at"`
	Provider    string    `json:"provider" msgpack:"provider"`
	Model       string    `json:"model,omitempty" msgpack:"model,omitempty"`
	Voice       string    `json:"voice,omitempty" msgpack:"voice,omitempty"`
	Interrupted bool      `json:"interrupted" msgpack:"interrupted"`
	InputType   string    `json:"inputType" msgpack:"input_type"`

	// Usage and RawResponse are only set on assistant turns whose
	// response.done carried telemetry. RawResponse is the opaque
	// provider payload, kept for later re-normalization and export.
	Usage       *usage.Summary `json:"usage,omitempty" msgpack:"usage,omitempty"`
	RawResponse []byte         `json:"rawResponse,omitempty" msgpack:"raw_response,omitempty"`

	// InteractionID pairs a user turn with the assistant reply it
	// triggered.
	InteractionID string `json:"interactionId,omitempty" msgpack:"interaction_id,omitempty"`
}

// NewTurn validates and normalizes a turn for append. It reports false
// when the text trims to empty; such turns must not enter the log.
// Missing ID and CreatedAt are filled in, provider and input type are
// lowercased with defaults applied.
func NewTurn(t Turn) (Turn, bool) {
	t.Text = strings.TrimSpace(t.Text)
	if t.Text == "" {
		return Turn{}, false
	}
	if t.ID == "" {
		t.ID = "msg_" + uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Provider == "" {
		t.Provider = "unknown"
	}
	t.Provider = strings.ToLower(t.Provider)
	if t.InputType == "" {
		t.InputType = InputNone
	}
	t.InputType = strings.ToLower(t.InputType)
	return t, true
}

// valid reports whether a decoded turn has the expected shape. Load
// drops invalid entries silently.
func (t Turn) valid() bool {
	if t.Role != RoleUser && t.Role != RoleAssistant {
		return false
	}
	if strings.TrimSpace(t.Text) == "" {
		return false
	}
	return !t.CreatedAt.IsZero()
}
