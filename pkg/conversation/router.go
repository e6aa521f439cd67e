package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/voxterm/voxterm/pkg/history"
	"github.com/voxterm/voxterm/pkg/realtime"
	"github.com/voxterm/voxterm/pkg/usage"
)

// assistantBubble accumulates a streaming reply until finalization.
type assistantBubble struct {
	text          strings.Builder
	interactionID string
	usage         *usage.Summary
	raw           []byte
}

// Router applies inbound events to the conversation state and fans the
// side effects out to the view, playback, peer and history log.
//
// Router methods are not safe for concurrent use; the session pumps all
// events and user intents through one goroutine, and handlers must
// leave the state consistent before returning because a barge-in can
// arrive immediately after.
type Router struct {
	view     View
	peer     Peer
	playback Playback
	log      Persister
	catalog  usage.Catalog

	// meta resolves the attribution for persisted turns from the
	// active session.
	meta func() history.Meta

	state         State
	pending       bool
	interactionID string
	bubble        *assistantBubble
}

// NewRouter wires a Router. catalog may be nil to skip cost lines.
func NewRouter(view View, peer Peer, playback Playback, log Persister, catalog usage.Catalog, meta func() history.Meta) *Router {
	if meta == nil {
		meta = func() history.Meta { return history.Meta{} }
	}
	return &Router{
		view:     view,
		peer:     peer,
		playback: playback,
		log:      log,
		catalog:  catalog,
		meta:     meta,
		state:    StateIdle,
	}
}

// State returns the current conversation phase.
func (r *Router) State() State { return r.state }

// Responding reports whether an assistant reply is streaming.
func (r *Router) Responding() bool { return r.state == StateResponding }

// InteractionID returns the active interaction id, if any.
func (r *Router) InteractionID() string { return r.interactionID }

// StartInteraction mints a fresh interaction id and makes it current.
func (r *Router) StartInteraction() string {
	r.interactionID = "int_" + uuid.NewString()[:12]
	return r.interactionID
}

// HandleEvent applies one inbound event.
func (r *Router) HandleEvent(ctx context.Context, ev *realtime.ServerEvent) {
	switch ev.Type {
	case realtime.EventTypeSessionCreated, realtime.EventTypeSessionUpdated:
		r.view.ShowStatus(StatusConnected, "Connected")

	case realtime.EventTypeInputAudioBufferSpeechStarted:
		r.handleSpeechStarted(ctx)

	case realtime.EventTypeInputAudioBufferSpeechStopped:
		if r.state == StateListening {
			r.state = StateAwaitingTranscript
		}

	case realtime.EventTypeConversationItemInputAudioTranscriptionCompleted:
		r.handleTranscriptionCompleted(ctx, ev.Transcript)

	case realtime.EventTypeResponseAudioDelta:
		if len(ev.Audio) == 0 {
			return
		}
		r.view.SetVoiceLocked(true)
		r.state = StateResponding
		r.playback.Play(ev.Audio)

	case realtime.EventTypeResponseAudioTranscriptDelta:
		if ev.Delta == "" {
			return
		}
		r.state = StateResponding
		if r.bubble == nil {
			id := r.interactionID
			if id == "" {
				id = r.StartInteraction()
			}
			r.bubble = &assistantBubble{interactionID: id}
		}
		r.bubble.text.WriteString(ev.Delta)
		r.view.AppendAssistantDelta(ev.Delta)

	case realtime.EventTypeResponseAudioTranscriptDone:
		// Visual only. Persistence waits for response.done, which is
		// the first event carrying usage telemetry.
		r.view.EndAssistantStream()

	case realtime.EventTypeResponseDone:
		r.handleResponseDone(ctx, ev)

	case realtime.EventTypeError:
		msg := "unknown"
		if ev.Err != nil && ev.Err.Message != "" {
			msg = ev.Err.Message
		}
		r.finalizeBubble(ctx, true)
		r.state = StateIdle
		r.view.SetVoiceLocked(false)
		r.view.ShowStatus(StatusError, "Error: "+msg)

	default:
		slog.Debug("conversation: unhandled event", "type", ev.Type)
	}
}

// handleSpeechStarted begins a user utterance. A barge-in (speech while
// the assistant is replying) must, in order: cancel the peer's
// response, finalize the local bubble as interrupted, clear the
// responding state, and reset playback, before the new placeholder and
// interaction id exist. Reordering leaves orphaned state behind.
func (r *Router) handleSpeechStarted(ctx context.Context) {
	r.view.ShowStatus(StatusListening, "Listening")

	if r.state == StateResponding {
		if err := r.peer.CancelResponse(); err != nil {
			slog.Warn("conversation: cancel response", "error", err)
		}
		r.finalizeBubble(ctx, true)
		r.state = StateIdle
		r.playback.Reset()
	}

	r.pending = true
	r.StartInteraction()
	r.view.ShowPendingUser()
	r.state = StateListening
}

func (r *Router) handleTranscriptionCompleted(ctx context.Context, transcript string) {
	text := strings.TrimSpace(transcript)

	if r.pending {
		r.pending = false
		if text == "" {
			// Nothing was recognized; no phantom turn.
			r.view.DiscardPendingUser()
		} else {
			r.view.ResolvePendingUser(text)
			r.log.AppendUser(ctx, text, history.InputVoice, r.interactionID, r.meta())
		}
	} else if text != "" {
		// A transcript with no placeholder should not happen, but a
		// user utterance is too valuable to drop.
		id := r.StartInteraction()
		turn, ok := r.log.AppendUser(ctx, text, history.InputVoice, id, r.meta())
		if ok {
			r.view.ShowUserTurn(turn)
		}
	}

	if r.state == StateListening || r.state == StateAwaitingTranscript {
		r.state = StateIdle
	}
}

func (r *Router) handleResponseDone(ctx context.Context, ev *realtime.ServerEvent) {
	if r.bubble != nil {
		r.bubble.raw = ev.Raw
		if ev.Response != nil && ev.Response.Usage != nil {
			r.bubble.usage = summaryFromUsage(ev.Response.Usage)
		}
	}
	// After a cancellation the bubble is already finalized; the
	// trailing response.done must be a no-op on the log.
	r.finalizeBubble(ctx, false)
	if r.state == StateResponding {
		r.state = StateIdle
	}
	r.view.SetVoiceLocked(false)
	r.view.ShowStatus(StatusConnected, "Connected")
}

// HandleDisconnect force-finalizes in-flight state when the transport
// goes away, preserving any partial reply as an interrupted turn.
func (r *Router) HandleDisconnect(ctx context.Context) {
	r.finalizeBubble(ctx, true)
	if r.pending {
		r.pending = false
		r.view.DiscardPendingUser()
	}
	r.state = StateIdle
	r.view.SetVoiceLocked(false)
}

// FinalizeInterrupted finalizes the streaming bubble as interrupted and
// clears the responding state. Used by the send-text flow before
// re-issuing a turn. Idempotent.
func (r *Router) FinalizeInterrupted(ctx context.Context) {
	r.finalizeBubble(ctx, true)
	if r.state == StateResponding {
		r.state = StateIdle
	}
}

// AddUserTurn persists and displays a committed user turn under the
// current interaction id.
func (r *Router) AddUserTurn(ctx context.Context, text, inputType string) (history.Turn, bool) {
	turn, ok := r.log.AppendUser(ctx, text, inputType, r.interactionID, r.meta())
	if ok {
		r.view.ShowUserTurn(turn)
	}
	return turn, ok
}

// sentenceFinal reports whether text already ends in sentence-final
// punctuation, in which case an interrupted reply is kept as is.
func sentenceFinal(text string) bool {
	return strings.HasSuffix(text, ".") ||
		strings.HasSuffix(text, "!") ||
		strings.HasSuffix(text, "?") ||
		strings.HasSuffix(text, ":") ||
		strings.HasSuffix(text, "…")
}

// finalizeBubble converts the streaming bubble into a persisted
// assistant turn. Interrupted replies that stop mid-sentence get a
// trailing "..." marker. Empty bubbles never create a turn. The bubble
// reference is cleared unconditionally, so calling with no bubble
// active is a no-op.
func (r *Router) finalizeBubble(ctx context.Context, interrupted bool) {
	b := r.bubble
	r.bubble = nil
	if b == nil {
		return
	}

	text := strings.TrimSpace(b.text.String())
	if text == "" {
		r.view.EndAssistantStream()
		return
	}
	if interrupted && !sentenceFinal(text) {
		text += "..."
	}

	turn, ok := r.log.AppendAssistant(ctx, text, interrupted, b.usage, b.raw, b.interactionID, r.meta())
	if !ok {
		return
	}
	r.view.FinalizeAssistantTurn(turn, r.usageLine(b.usage, b.raw))
}

// usageLine renders the per-turn usage summary shown under a finalized
// reply. Empty when the provider reported nothing.
func (r *Router) usageLine(sum *usage.Summary, raw []byte) string {
	if sum == nil && len(raw) == 0 {
		return ""
	}
	b := usage.Normalize(sum, raw)
	line := fmt.Sprintf("tokens in %d · out %d · total %d", b.InputTokens, b.OutputTokens, b.TotalTokens)
	if r.catalog != nil {
		m := r.meta()
		if cost, ok := r.catalog.Estimate(b, m.Provider, m.Model); ok {
			line += " · " + usage.FormatUSD(cost.Total)
		}
	}
	return line
}

// summaryFromUsage lifts the parsed aggregate counters into a Summary.
// The raw payload still wins during normalization; this only covers
// providers whose response.done parses but carries no detail fields.
func summaryFromUsage(u *realtime.Usage) *usage.Summary {
	in, out, total := u.InputTokens, u.OutputTokens, u.TotalTokens
	return &usage.Summary{InputTokens: &in, OutputTokens: &out, TotalTokens: &total}
}
