package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session is a live websocket session with the gateway.
//
// A Session exists only between Connect and Close; there is at most one
// per Client connection attempt. All Send* methods are safe for
// concurrent use.
type Session struct {
	conn      *websocket.Conn
	config    *ConnectConfig
	sessionID string
	closeCh   chan struct{}
	eventsCh  chan eventOrError
	closeOnce sync.Once
	mu        sync.Mutex
}

type eventOrError struct {
	event *ServerEvent
	err   error
}

func (c *Client) connect(ctx context.Context, config *ConnectConfig) (*Session, error) {
	if config == nil || config.Provider == "" {
		return nil, &Error{Code: "invalid_config", Message: "provider is required"}
	}
	if !SupportedProvider(config.Provider) {
		return nil, &Error{Code: "unsupported_provider", Message: fmt.Sprintf("provider %q is not supported", config.Provider)}
	}

	u, err := c.socketURL(config)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.httpClient.Timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return nil, &Error{
				Code:       "connection_failed",
				Message:    fmt.Sprintf("failed to connect: %v", err),
				HTTPStatus: resp.StatusCode,
			}
		}
		return nil, fmt.Errorf("realtime: failed to connect: %w", err)
	}

	session := &Session{
		conn:     conn,
		config:   config,
		closeCh:  make(chan struct{}),
		eventsCh: make(chan eventOrError, 100),
	}
	go session.readLoop()
	return session, nil
}

func generateEventID() string {
	return "evt_" + uuid.New().String()[:12]
}

// UpdateSession sends the session-configuration frame (voice, system
// instructions). Call after the socket opens.
func (s *Session) UpdateSession(config *SessionConfig) error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeSessionUpdate,
		"session":  config,
	})
}

// AppendAudio appends one PCM16 frame (24 kHz mono little-endian) to the
// input audio buffer. The frame is base64-encoded before sending.
func (s *Session) AppendAudio(audio []byte) error {
	return s.AppendAudioBase64(base64.StdEncoding.EncodeToString(audio))
}

// AppendAudioBase64 appends a pre-encoded audio frame to the input buffer.
func (s *Session) AppendAudioBase64(audioBase64 string) error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeInputAudioBufferAppend,
		"audio":    audioBase64,
	})
}

// AddUserMessage adds a user text message to the conversation. It does
// not request a response; pair with CreateResponse.
func (s *Session) AddUserMessage(text string) error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeConversationItemCreate,
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	})
}

// CreateResponse asks the model to generate a reply to the conversation.
func (s *Session) CreateResponse() error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeResponseCreate,
	})
}

// CancelResponse cancels the in-flight response, if any. The peer may
// still emit trailing events for the cancelled turn.
func (s *Session) CancelResponse() error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeResponseCancel,
	})
}

// SendRaw sends a raw JSON event to the gateway.
func (s *Session) SendRaw(event map[string]any) error {
	return s.sendEvent(event)
}

// Events returns an iterator over server events. Iteration ends when the
// session closes; a read error is yielded once and then iteration stops.
func (s *Session) Events() iter.Seq2[*ServerEvent, error] {
	return func(yield func(*ServerEvent, error) bool) {
		for {
			select {
			case <-s.closeCh:
				return
			case item, ok := <-s.eventsCh:
				if !ok {
					return
				}
				if !yield(item.event, item.err) {
					return
				}
				if item.err != nil {
					return
				}
			}
		}
	}
}

// Close closes the session. Safe to call multiple times.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)
		err = s.conn.Close()
	})
	return err
}

// SessionID returns the server-assigned session ID, or "" before
// session.created arrives.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *Session) sendEvent(event map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		if jsonBytes, err := json.Marshal(event); err == nil {
			str := string(jsonBytes)
			if len(str) > 500 {
				str = str[:500] + "..."
			}
			slog.Debug("sending event", "content", str)
		}
	}

	return s.conn.WriteJSON(event)
}

// readLoop reads frames from the socket and forwards parsed events to the
// events channel. Malformed (non-JSON) frames are dropped.
func (s *Session) readLoop() {
	defer close(s.eventsCh)

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			case s.eventsCh <- eventOrError{err: fmt.Errorf("read error: %w", err)}:
			}
			return
		}

		event, ok := parseEvent(message)
		if !ok {
			slog.Debug("dropping malformed frame", "len", len(message))
			continue
		}

		if event.Type == EventTypeSessionCreated && event.Session != nil {
			s.mu.Lock()
			s.sessionID = event.Session.ID
			s.mu.Unlock()
		}

		select {
		case <-s.closeCh:
			return
		case s.eventsCh <- eventOrError{event: event}:
		}
	}
}

// parseEvent parses one raw frame. It reports ok=false for frames that
// are not valid JSON objects carrying a type; such frames are never
// surfaced as errors.
func parseEvent(message []byte) (*ServerEvent, bool) {
	var event ServerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return nil, false
	}
	if event.Type == "" {
		return nil, false
	}

	event.Raw = message

	// For audio deltas the "delta" field carries base64 PCM16.
	if event.Type == EventTypeResponseAudioDelta && event.Delta != "" {
		if decoded, err := base64.StdEncoding.DecodeString(event.Delta); err == nil {
			event.Audio = decoded
		}
	}

	return &event, true
}
