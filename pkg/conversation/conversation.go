// Package conversation interprets inbound realtime events and drives
// the transcript, playback and history side effects.
//
// The Router is the protocol state machine at the heart of the client.
// It owns the two transient accumulators of a turn-taking cycle: the
// pending user bubble (an utterance awaiting transcription) and the
// streaming assistant bubble (a reply under construction). Both exist
// only between events; finalization converts them into persisted
// history turns.
package conversation

import (
	"context"

	"github.com/voxterm/voxterm/pkg/history"
	"github.com/voxterm/voxterm/pkg/usage"
)

// State is the conversation phase. The transcription-pending flag is
// tracked separately because a transcript can arrive after the
// assistant already started replying.
type State int

const (
	// StateIdle: connected, nothing in flight.
	StateIdle State = iota

	// StateListening: the user is speaking.
	StateListening

	// StateAwaitingTranscript: speech ended, transcription outstanding.
	StateAwaitingTranscript

	// StateResponding: the assistant reply is streaming.
	StateResponding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateAwaitingTranscript:
		return "awaiting_transcript"
	case StateResponding:
		return "responding"
	default:
		return "unknown"
	}
}

// Status classifies status-line updates for the view's indicator.
type Status string

const (
	StatusConnected Status = "connected"
	StatusListening Status = "listening"
	StatusError     Status = "error"
)

// View renders conversation changes. Implementations must tolerate
// calls in any order; the router guarantees only that a pending bubble
// is shown before it is resolved or discarded.
type View interface {
	ShowStatus(s Status, text string)

	// Pending user bubble lifecycle.
	ShowPendingUser()
	ResolvePendingUser(text string)
	DiscardPendingUser()

	// ShowUserTurn displays a committed user turn (text input, or the
	// defensive transcript-without-placeholder path).
	ShowUserTurn(t history.Turn)

	// Streaming assistant bubble lifecycle. EndAssistantStream is the
	// visual-only transition at response.audio_transcript.done;
	// FinalizeAssistantTurn carries the persisted turn and a rendered
	// usage line ("" when no telemetry arrived).
	AppendAssistantDelta(delta string)
	EndAssistantStream()
	FinalizeAssistantTurn(t history.Turn, usageLine string)

	// SetVoiceLocked disables voice selection while a reply streams.
	SetVoiceLocked(locked bool)
}

// Peer is the outbound control surface of the live session.
type Peer interface {
	CancelResponse() error
}

// Playback is the audio output scheduler.
type Playback interface {
	Play(pcm []byte)
	Reset()
}

// Persister appends turns to the conversation log.
type Persister interface {
	AppendUser(ctx context.Context, text, inputType, interactionID string, m history.Meta) (history.Turn, bool)
	AppendAssistant(ctx context.Context, text string, interrupted bool, sum *usage.Summary, raw []byte, interactionID string, m history.Meta) (history.Turn, bool)
}
