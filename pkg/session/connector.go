// Package session owns the live realtime session: the socket, the
// microphone and speaker devices, and the capture/playback pumps. The
// Connector translates high-level intents (connect, send text, cancel,
// mute, disconnect) into protocol frames; the Flow sequences the
// multi-step intents that touch several components at once.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"

	"github.com/voxterm/voxterm/pkg/audio"
	"github.com/voxterm/voxterm/pkg/history"
	"github.com/voxterm/voxterm/pkg/realtime"
)

// ConnState is the connector lifecycle state.
type ConnState int

const (
	ConnIdle ConnState = iota
	ConnConnecting
	ConnOpen
	ConnClosing
)

var (
	ErrNotConnected     = errors.New("session: not connected")
	ErrAlreadyConnected = errors.New("session: already connected")
)

// Transport is the slice of the realtime session the connector drives.
// *realtime.Session satisfies it.
type Transport interface {
	UpdateSession(config *realtime.SessionConfig) error
	AppendAudio(audio []byte) error
	AddUserMessage(text string) error
	CreateResponse() error
	CancelResponse() error
	Events() iter.Seq2[*realtime.ServerEvent, error]
	Close() error
}

// DialFunc opens a realtime session against the gateway.
type DialFunc func(ctx context.Context, config *realtime.ConnectConfig) (Transport, error)

// Microphone is an open capture device.
type Microphone interface {
	audio.Source
	Close() error
}

// Speaker is an open playback device consuming PCM16.
type Speaker interface {
	io.Writer
	Close() error
}

// Devices opens the audio hardware. The portaudio-backed implementation
// lives with the CLI; tests substitute fakes.
type Devices interface {
	OpenMicrophone() (Microphone, error)
	OpenSpeaker() (Speaker, error)
}

// Callbacks announce session lifecycle transitions. All callbacks are
// optional. OnEvent receives every inbound protocol event; OnClose
// fires only when the peer closed the session, not on local Disconnect.
type Callbacks struct {
	OnOpen        func()
	OnClose       func()
	OnError       func(err error)
	OnMicDenied   func(err error)
	OnMuteChanged func(muted bool)
	OnEvent       func(ctx context.Context, ev *realtime.ServerEvent)
}

// Params describes one connection attempt.
type Params struct {
	Provider   string
	Model      string // OpenAI model id
	Deployment string // Azure deployment name
	APIKey     string // "" defers to the gateway's key
	Voice      string
	// Instructions is the system prompt sent in session.update.
	Instructions string
	// MemoryContext, when non-empty, is replayed as a synthetic prior
	// user message right after the session opens.
	MemoryContext string
}

// Connector owns at most one live session. It is created once and
// reused across connect/disconnect cycles; the session resources
// themselves exist only between Connect and Disconnect.
type Connector struct {
	dial     DialFunc
	devices  Devices
	playback *audio.Scheduler
	cb       Callbacks

	mu      sync.Mutex
	state   ConnState
	sess    Transport
	mic     Microphone
	speaker Speaker
	sink    *audio.StreamSink
	capture *audio.Capture
	muted   bool
	active  Params
}

// NewConnector creates a Connector. The playback scheduler is shared
// with the event router so barge-in resets reach queued audio.
func NewConnector(dial DialFunc, devices Devices, playback *audio.Scheduler, cb Callbacks) *Connector {
	return &Connector{dial: dial, devices: devices, playback: playback, cb: cb}
}

// State returns the lifecycle state.
func (c *Connector) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsOpen reports whether a session is live.
func (c *Connector) IsOpen() bool { return c.State() == ConnOpen }

// ActiveMeta returns the attribution of the live session for persisted
// turns. Zero value when disconnected.
func (c *Connector) ActiveMeta() history.Meta {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ConnOpen {
		return history.Meta{}
	}
	model := c.active.Model
	if c.active.Provider == realtime.ProviderAzure {
		model = c.active.Deployment
	}
	return history.Meta{Provider: c.active.Provider, Model: model, Voice: c.active.Voice}
}

// Connect acquires the microphone first, so a permission denial fails
// fast with no socket or device held, then opens the speaker, the
// capture pipeline and the socket. On success the session config frame
// goes out, followed by the optional context-replay message, and the
// capture and event pumps start.
func (c *Connector) Connect(ctx context.Context, p Params) error {
	c.mu.Lock()
	if c.state != ConnIdle {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = ConnConnecting
	c.mu.Unlock()

	mic, err := c.devices.OpenMicrophone()
	if err != nil {
		c.toIdle()
		if c.cb.OnMicDenied != nil {
			c.cb.OnMicDenied(err)
		}
		return fmt.Errorf("session: microphone: %w", err)
	}

	speaker, err := c.devices.OpenSpeaker()
	if err != nil {
		mic.Close()
		c.toIdle()
		return fmt.Errorf("session: speaker: %w", err)
	}
	sink := audio.NewStreamSink(speaker)
	c.playback.SetSink(sink)

	capture, err := audio.StartCapture(mic)
	if err != nil {
		sink.Close()
		speaker.Close()
		mic.Close()
		c.toIdle()
		return fmt.Errorf("session: capture: %w", err)
	}

	sess, err := c.dial(ctx, &realtime.ConnectConfig{
		Provider:   p.Provider,
		Model:      p.Model,
		Deployment: p.Deployment,
		APIKey:     p.APIKey,
	})
	if err != nil {
		capture.Stop()
		sink.Close()
		speaker.Close()
		mic.Close()
		c.toIdle()
		return fmt.Errorf("session: dial: %w", err)
	}

	c.mu.Lock()
	c.sess = sess
	c.mic = mic
	c.speaker = speaker
	c.sink = sink
	c.capture = capture
	c.active = p
	c.state = ConnOpen
	c.mu.Unlock()

	if c.cb.OnOpen != nil {
		c.cb.OnOpen()
	}
	if err := sess.UpdateSession(&realtime.SessionConfig{Voice: p.Voice, Instructions: p.Instructions}); err != nil {
		slog.Warn("session: session.update failed", "error", err)
	}
	if p.MemoryContext != "" {
		if err := sess.AddUserMessage(p.MemoryContext); err != nil {
			slog.Warn("session: context replay failed", "error", err)
		}
	}

	go c.pumpAudio(capture, sess)
	go c.pumpEvents(ctx, sess)
	return nil
}

func (c *Connector) toIdle() {
	c.mu.Lock()
	c.state = ConnIdle
	c.mu.Unlock()
}

// pumpAudio forwards captured frames as input_audio_buffer.append.
func (c *Connector) pumpAudio(capture *audio.Capture, sess Transport) {
	for frame := range capture.Frames() {
		if err := sess.AppendAudio(frame); err != nil {
			slog.Debug("session: append audio", "error", err)
			return
		}
	}
}

// pumpEvents routes inbound events to the callback until the session
// ends. A remote close fires OnClose; a local Disconnect does not.
func (c *Connector) pumpEvents(ctx context.Context, sess Transport) {
	for ev, err := range sess.Events() {
		if err != nil {
			if c.isCurrent(sess) && c.cb.OnError != nil {
				c.cb.OnError(err)
			}
			break
		}
		if c.cb.OnEvent != nil {
			c.cb.OnEvent(ctx, ev)
		}
	}
	if c.isCurrent(sess) && c.cb.OnClose != nil {
		c.cb.OnClose()
	}
}

func (c *Connector) isCurrent(sess Transport) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess == sess && c.state == ConnOpen
}

// Disconnect releases everything the session holds: socket, capture
// pipeline, microphone, playback sink and devices, then resets the
// playback clock and clears mute. Idempotent.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	if c.state != ConnOpen && c.state != ConnConnecting {
		c.mu.Unlock()
		return
	}
	c.state = ConnClosing
	sess, capture, mic := c.sess, c.capture, c.mic
	sink, speaker := c.sink, c.speaker
	c.sess, c.capture, c.mic, c.sink, c.speaker = nil, nil, nil, nil, nil
	c.active = Params{}
	c.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
	if capture != nil {
		capture.Stop()
	}
	if mic != nil {
		mic.Close()
	}
	if sink != nil {
		sink.Close()
	}
	if speaker != nil {
		speaker.Close()
	}
	c.playback.Reset()

	c.mu.Lock()
	wasMuted := c.muted
	c.muted = false
	c.state = ConnIdle
	c.mu.Unlock()
	if wasMuted && c.cb.OnMuteChanged != nil {
		c.cb.OnMuteChanged(false)
	}
}

// ToggleMute flips capture mute. It only takes effect while a capture
// stream is held; ok reports whether there was one.
func (c *Connector) ToggleMute() (muted, ok bool) {
	c.mu.Lock()
	capture := c.capture
	if capture == nil {
		c.mu.Unlock()
		return false, false
	}
	c.muted = !c.muted
	muted = c.muted
	c.mu.Unlock()

	capture.SetMuted(muted)
	if c.cb.OnMuteChanged != nil {
		c.cb.OnMuteChanged(muted)
	}
	return muted, true
}

// CancelResponse sends response.cancel and resets local playback, so
// already-buffered audio of the cancelled reply stops immediately.
// Implements the router's peer interface.
func (c *Connector) CancelResponse() error {
	c.mu.Lock()
	sess := c.sess
	open := c.state == ConnOpen
	c.mu.Unlock()

	var err error
	if open && sess != nil {
		err = sess.CancelResponse()
	}
	c.playback.Reset()
	return err
}

// SendUserMessage sends a conversation.item.create user text frame.
func (c *Connector) SendUserMessage(text string) error {
	sess, err := c.openSession()
	if err != nil {
		return err
	}
	return sess.AddUserMessage(text)
}

// RequestResponse sends response.create.
func (c *Connector) RequestResponse() error {
	sess, err := c.openSession()
	if err != nil {
		return err
	}
	return sess.CreateResponse()
}

func (c *Connector) openSession() (Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ConnOpen || c.sess == nil {
		return nil, ErrNotConnected
	}
	return c.sess, nil
}
