package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxterm/voxterm/pkg/conversation"
	"github.com/voxterm/voxterm/pkg/history"
	"github.com/voxterm/voxterm/pkg/realtime"
)

// sendTextDelay is the pause between committing the local user turn and
// asking the peer for a reply. Cancelling the previous response needs a
// moment to land upstream before the new response.create, or the peer
// occasionally answers the cancelled turn instead.
const sendTextDelay = 50 * time.Millisecond

// Flow sequences the multi-step session intents: connecting with
// settings-derived parameters, sending a typed message while a reply may
// be streaming, and reconnecting with fresh settings. It also serializes
// the event pump and user intents onto one lock, so router state never
// sees two handlers at once.
type Flow struct {
	conn     *Connector
	router   *conversation.Router
	settings *Settings
	history  *history.Service

	// delay overrides sendTextDelay in tests.
	delay time.Duration

	mu sync.Mutex
}

// NewFlow wires a Flow over an already-constructed connector and router.
func NewFlow(conn *Connector, router *conversation.Router, settings *Settings, hist *history.Service) *Flow {
	return &Flow{
		conn:     conn,
		router:   router,
		settings: settings,
		history:  hist,
		delay:    sendTextDelay,
	}
}

// HandleEvent is the connector's OnEvent callback. It holds the flow
// lock for the duration of the router dispatch.
func (f *Flow) HandleEvent(ctx context.Context, ev *realtime.ServerEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.router.HandleEvent(ctx, ev)
}

// HandleClose is the connector's OnClose callback for remote closes. It
// finalizes any in-flight reply as interrupted and tears the session
// down.
func (f *Flow) HandleClose(ctx context.Context) {
	f.mu.Lock()
	f.router.HandleDisconnect(ctx)
	f.mu.Unlock()
	f.conn.Disconnect()
}

// Connect reads the current settings, validates the preconditions and
// opens a session. History replay context is attached when enabled.
func (f *Flow) Connect(ctx context.Context) error {
	provider := f.settings.SelectedProvider(ctx)
	if !f.settings.IsProviderSupported(provider) {
		return fmt.Errorf("session: unsupported provider %q", provider)
	}
	if !f.settings.HasEffectiveKey(ctx, provider) {
		slog.Debug("session: no local API key, deferring to gateway", "provider", provider)
	}

	p := Params{
		Provider:     provider,
		Voice:        f.settings.Voice(ctx),
		APIKey:       f.settings.EffectiveKey(ctx, provider),
		Instructions: f.settings.SystemPrompt(ctx),
	}
	target := f.settings.Model(ctx, provider)
	if provider == realtime.ProviderAzure {
		p.Deployment = target
	} else {
		p.Model = target
	}
	if f.settings.ReplayEnabled(ctx) {
		p.MemoryContext = BuildReplayContext(f.history.Turns())
	}

	return f.conn.Connect(ctx, p)
}

// Disconnect finalizes in-flight conversation state and releases the
// session.
func (f *Flow) Disconnect(ctx context.Context) {
	f.mu.Lock()
	f.router.HandleDisconnect(ctx)
	f.mu.Unlock()
	f.conn.Disconnect()
}

// ReconnectIfOpen cycles the session so changed settings take effect.
// No-op when disconnected.
func (f *Flow) ReconnectIfOpen(ctx context.Context) error {
	if !f.conn.IsOpen() {
		return nil
	}
	f.Disconnect(ctx)
	return f.Connect(ctx)
}

// SendText commits a typed user message. Any streaming reply is
// cancelled and finalized as interrupted first, then the turn is
// persisted and displayed immediately. The outbound frames follow after
// a short delay so the cancellation settles upstream; by then the
// session may have closed, in which case the turn stays local.
func (f *Flow) SendText(ctx context.Context, text string) bool {
	if !f.conn.IsOpen() {
		return false
	}

	f.mu.Lock()
	if f.router.Responding() {
		if err := f.conn.CancelResponse(); err != nil {
			slog.Warn("session: cancel before send", "error", err)
		}
		f.router.FinalizeInterrupted(ctx)
	}
	f.router.StartInteraction()
	_, ok := f.router.AddUserTurn(ctx, text, history.InputText)
	f.mu.Unlock()
	if !ok {
		return false
	}

	go func() {
		time.Sleep(f.delay)
		if !f.conn.IsOpen() {
			return
		}
		if err := f.conn.SendUserMessage(text); err != nil {
			slog.Warn("session: send text", "error", err)
			return
		}
		if err := f.conn.RequestResponse(); err != nil {
			slog.Warn("session: request response", "error", err)
		}
	}()
	return true
}

// ToggleMute flips microphone mute on the live session.
func (f *Flow) ToggleMute() (muted, ok bool) {
	return f.conn.ToggleMute()
}
