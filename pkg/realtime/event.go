package realtime

// Client event types (sent from client to gateway).
const (
	EventTypeSessionUpdate = "session.update"

	EventTypeInputAudioBufferAppend = "input_audio_buffer.append"

	EventTypeConversationItemCreate = "conversation.item.create"

	EventTypeResponseCreate = "response.create"
	EventTypeResponseCancel = "response.cancel"
)

// Server event types (received from the gateway).
const (
	EventTypeError = "error"

	EventTypeSessionCreated = "session.created"
	EventTypeSessionUpdated = "session.updated"

	EventTypeInputAudioBufferSpeechStarted = "input_audio_buffer.speech_started"
	EventTypeInputAudioBufferSpeechStopped = "input_audio_buffer.speech_stopped"

	EventTypeConversationItemInputAudioTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"

	EventTypeResponseDone                 = "response.done"
	EventTypeResponseAudioDelta           = "response.audio.delta"
	EventTypeResponseAudioTranscriptDelta = "response.audio_transcript.delta"
	EventTypeResponseAudioTranscriptDone  = "response.audio_transcript.done"
)

// ServerEvent represents one event received from the gateway.
//
// The struct is a flat union over all event types the client consumes;
// which fields are populated depends on Type. Raw always carries the
// original JSON message so downstream consumers (usage accounting,
// history raw-response attachment) lose nothing the provider sent.
type ServerEvent struct {
	// Type is the event type.
	Type string `json:"type"`

	// EventID is the unique identifier for this event, if the gateway
	// assigns one.
	EventID string `json:"event_id,omitempty"`

	// Session contains session information (session.created, session.updated).
	Session *SessionResource `json:"session,omitempty"`

	// ItemID is the conversation item the event refers to.
	ItemID string `json:"item_id,omitempty"`

	// AudioStartMs is the speech start offset (input_audio_buffer.speech_started).
	AudioStartMs int `json:"audio_start_ms,omitempty"`

	// Transcript is the completed user transcription
	// (conversation.item.input_audio_transcription.completed).
	Transcript string `json:"transcript,omitempty"`

	// Delta carries incremental payload for *.delta events. For
	// response.audio.delta it is base64-encoded PCM16; for
	// response.audio_transcript.delta it is text.
	Delta string `json:"delta,omitempty"`

	// Audio is the decoded PCM16 payload of a response.audio.delta event,
	// populated during parsing.
	Audio []byte `json:"-"`

	// Response contains the response resource (response.done), including
	// usage telemetry when the provider reports it.
	Response *ResponseResource `json:"response,omitempty"`

	// ResponseID is the response identifier.
	ResponseID string `json:"response_id,omitempty"`

	// Err contains error details for error events.
	Err *EventError `json:"error,omitempty"`

	// Raw is the original JSON message.
	Raw []byte `json:"-"`
}
