package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/voxterm/voxterm/pkg/conversation"
	"github.com/voxterm/voxterm/pkg/history"
	"github.com/voxterm/voxterm/pkg/kv"
	"github.com/voxterm/voxterm/pkg/realtime"
)

type nopView struct{}

func (nopView) ShowStatus(conversation.Status, string)     {}
func (nopView) ShowPendingUser()                            {}
func (nopView) ResolvePendingUser(string)                   {}
func (nopView) DiscardPendingUser()                         {}
func (nopView) ShowUserTurn(history.Turn)                   {}
func (nopView) AppendAssistantDelta(string)                 {}
func (nopView) EndAssistantStream()                         {}
func (nopView) FinalizeAssistantTurn(history.Turn, string)  {}
func (nopView) SetVoiceLocked(bool)                         {}

type nopPlayback struct{}

func (nopPlayback) Play([]byte) {}
func (nopPlayback) Reset()      {}

type flowHarness struct {
	*harness
	flow     *Flow
	router   *conversation.Router
	history  *history.Service
	settings *Settings
}

func newFlowHarness(t *testing.T) *flowHarness {
	t.Helper()
	h := newHarness()

	hist := history.NewService(history.NewStore(kv.NewMemory()))
	router := conversation.NewRouter(nopView{}, h.conn, nopPlayback{}, hist, nil, h.conn.ActiveMeta)
	settings := NewSettings(kv.NewMemory())
	flow := NewFlow(h.conn, router, settings, hist)
	flow.delay = time.Millisecond

	h.conn.cb.OnEvent = flow.HandleEvent
	return &flowHarness{harness: h, flow: flow, router: router, history: hist, settings: settings}
}

func (h *flowHarness) connect(t *testing.T) {
	t.Helper()
	if err := h.flow.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func TestFlowConnectUsesSettings(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	if err := h.settings.SetVoice(ctx, "cedar"); err != nil {
		t.Fatalf("SetVoice: %v", err)
	}
	h.connect(t)
	defer h.conn.Disconnect()

	ops := h.transport.opsSnapshot()
	if len(ops) == 0 || ops[0] != "session.update:cedar" {
		t.Fatalf("expected session.update with configured voice, got %v", ops)
	}
	meta := h.conn.ActiveMeta()
	if meta.Provider != "openai" || meta.Model != "gpt-4o-realtime-preview" {
		t.Errorf("unexpected meta: %+v", meta)
	}
}

func TestFlowConnectReplaysHistory(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	h.history.AppendUser(ctx, "remember me", history.InputText, "int_1", history.Meta{})
	h.connect(t)
	defer h.conn.Disconnect()

	var replay string
	for _, op := range h.transport.opsSnapshot() {
		if strings.HasPrefix(op, "user:") {
			replay = op
		}
	}
	if !strings.Contains(replay, "Context from previous chat session.") {
		t.Errorf("expected replay header in %q", replay)
	}
	if !strings.Contains(replay, "User: remember me") {
		t.Errorf("expected prior turn in %q", replay)
	}
}

func TestFlowConnectReplayDisabled(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	h.history.AppendUser(ctx, "remember me", history.InputText, "int_1", history.Meta{})
	if err := h.settings.SetReplayEnabled(ctx, false); err != nil {
		t.Fatalf("SetReplayEnabled: %v", err)
	}
	h.connect(t)
	defer h.conn.Disconnect()

	for _, op := range h.transport.opsSnapshot() {
		if strings.HasPrefix(op, "user:") {
			t.Fatalf("no replay message expected, got %q", op)
		}
	}
}

func TestFlowSendText(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()
	h.connect(t)
	defer h.conn.Disconnect()

	if !h.flow.SendText(ctx, "hello there") {
		t.Fatal("SendText returned false")
	}

	turns := h.history.Turns()
	if len(turns) != 1 || turns[0].Text != "hello there" || turns[0].InputType != history.InputText {
		t.Fatalf("unexpected history after send: %+v", turns)
	}
	if turns[0].InteractionID == "" {
		t.Error("user turn missing interaction id")
	}

	waitFor(t, "outbound frames", func() bool {
		ops := h.transport.opsSnapshot()
		for i, op := range ops {
			if op == "user:hello there" && i+1 < len(ops) && ops[i+1] == "response.create" {
				return true
			}
		}
		return false
	})
}

func TestFlowSendTextWhileDisconnected(t *testing.T) {
	h := newFlowHarness(t)

	if h.flow.SendText(context.Background(), "hello") {
		t.Error("SendText should fail while disconnected")
	}
	if len(h.history.Turns()) != 0 {
		t.Error("no turn should be persisted")
	}
}

func TestFlowSendTextInterruptsStreamingReply(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()
	h.connect(t)
	defer h.conn.Disconnect()

	h.flow.HandleEvent(ctx, &realtime.ServerEvent{
		Type:  realtime.EventTypeResponseAudioTranscriptDelta,
		Delta: "I was about to say",
	})
	if !h.router.Responding() {
		t.Fatal("router should be responding")
	}

	if !h.flow.SendText(ctx, "stop") {
		t.Fatal("SendText returned false")
	}

	turns := h.history.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected interrupted assistant turn plus user turn, got %+v", turns)
	}
	if turns[0].Role != history.RoleAssistant || !turns[0].Interrupted {
		t.Errorf("first turn should be interrupted assistant, got %+v", turns[0])
	}
	if turns[0].Text != "I was about to say..." {
		t.Errorf("interrupted text = %q", turns[0].Text)
	}
	if turns[1].Role != history.RoleUser || turns[1].Text != "stop" {
		t.Errorf("second turn should be the typed message, got %+v", turns[1])
	}

	var sawCancel bool
	for _, op := range h.transport.opsSnapshot() {
		if op == "response.cancel" {
			sawCancel = true
		}
	}
	if !sawCancel {
		t.Error("streaming reply was not cancelled")
	}
	if h.router.Responding() {
		t.Error("responding state should be cleared")
	}
}

func TestFlowReconnectIfOpen(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()

	// Disconnected: nothing happens.
	if err := h.flow.ReconnectIfOpen(ctx); err != nil {
		t.Fatalf("ReconnectIfOpen while idle: %v", err)
	}
	if len(h.transport.opsSnapshot()) != 0 {
		t.Fatal("no traffic expected while idle")
	}

	h.connect(t)
	if err := h.flow.ReconnectIfOpen(ctx); err != nil {
		t.Fatalf("ReconnectIfOpen: %v", err)
	}
	defer h.conn.Disconnect()

	if !h.conn.IsOpen() {
		t.Error("connector should be open after reconnect")
	}
	var closes int
	for _, op := range h.transport.opsSnapshot() {
		if op == "close" {
			closes++
		}
	}
	if closes != 1 {
		t.Errorf("expected exactly one socket close during reconnect, got %d", closes)
	}
}

func TestFlowRemoteCloseFinalizesReply(t *testing.T) {
	h := newFlowHarness(t)
	ctx := context.Background()
	h.connect(t)

	h.flow.HandleEvent(ctx, &realtime.ServerEvent{
		Type:  realtime.EventTypeResponseAudioTranscriptDelta,
		Delta: "cut off",
	})
	h.flow.HandleClose(ctx)

	turns := h.history.Turns()
	if len(turns) != 1 || !turns[0].Interrupted || turns[0].Text != "cut off..." {
		t.Fatalf("expected interrupted turn, got %+v", turns)
	}
	if h.conn.State() != ConnIdle {
		t.Errorf("state = %v, want idle", h.conn.State())
	}
}
