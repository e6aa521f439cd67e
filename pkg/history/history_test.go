package history_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/voxterm/voxterm/pkg/history"
	"github.com/voxterm/voxterm/pkg/kv"
	"github.com/voxterm/voxterm/pkg/usage"
)

func newTestStore(t *testing.T) (*history.Store, kv.Store) {
	t.Helper()
	mem := kv.NewMemory()
	t.Cleanup(func() { mem.Close() })
	return history.NewStore(mem), mem
}

func TestAppendRejectsEmptyText(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, ok, err := store.Append(ctx, history.Turn{Role: history.RoleUser, Text: text}); ok || err != nil {
			t.Errorf("Append(%q) = ok=%v err=%v, want rejected", text, ok, err)
		}
	}
	turns, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("log has %d entries after rejected appends, want 0", len(turns))
	}
}

func TestAppendNormalizes(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	turn, ok, err := store.Append(ctx, history.Turn{
		Role:      history.RoleUser,
		Text:      "  hello  ",
		Provider:  "OpenAI",
		InputType: "Voice",
	})
	if !ok || err != nil {
		t.Fatalf("Append: ok=%v err=%v", ok, err)
	}
	if turn.Text != "hello" {
		t.Errorf("Text = %q, want trimmed", turn.Text)
	}
	if turn.Provider != "openai" || turn.InputType != "voice" {
		t.Errorf("Provider/InputType = %q/%q, want lowercase", turn.Provider, turn.InputType)
	}
	if turn.ID == "" || turn.CreatedAt.IsZero() {
		t.Error("ID and CreatedAt must be filled in")
	}

	// Defaults for absent provider and input type.
	turn, _, _ = store.Append(ctx, history.Turn{Role: history.RoleAssistant, Text: "hi"})
	if turn.Provider != "unknown" || turn.InputType != history.InputNone {
		t.Errorf("defaults = %q/%q, want unknown/n\\/a", turn.Provider, turn.InputType)
	}
}

func TestEvictionAtCeiling(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	base := time.Now().UTC()
	for i := 0; i < history.MaxTurns+5; i++ {
		_, ok, err := store.Append(ctx, history.Turn{
			Role:      history.RoleUser,
			Text:      fmt.Sprintf("turn %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		})
		if !ok || err != nil {
			t.Fatalf("Append %d: ok=%v err=%v", i, ok, err)
		}
	}

	turns, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(turns) != history.MaxTurns {
		t.Fatalf("log length = %d, want %d", len(turns), history.MaxTurns)
	}
	if turns[0].Text != "turn 5" {
		t.Errorf("oldest surviving = %q, want turn 5", turns[0].Text)
	}
	if last := turns[len(turns)-1].Text; last != fmt.Sprintf("turn %d", history.MaxTurns+4) {
		t.Errorf("newest = %q", last)
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	in := usage.Summary{InputTokens: intp(10), OutputTokens: intp(5), TotalTokens: intp(15)}
	want, ok, err := store.Append(ctx, history.Turn{
		Role:          history.RoleAssistant,
		Text:          "certainly",
		Provider:      "openai",
		Model:         "gpt-4o-realtime-preview",
		Voice:         "marin",
		Interrupted:   true,
		Usage:         &in,
		RawResponse:   []byte(`{"response":{"usage":{"total_tokens":15}}}`),
		InteractionID: "int_1",
	})
	if !ok || err != nil {
		t.Fatalf("Append: ok=%v err=%v", ok, err)
	}

	turns, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("Load returned %d turns, want 1", len(turns))
	}
	got := turns[0]
	if got.ID != want.ID || got.Text != want.Text || got.Model != want.Model ||
		got.Voice != want.Voice || !got.Interrupted || got.InteractionID != "int_1" {
		t.Errorf("round-trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if got.Usage == nil || *got.Usage.TotalTokens != 15 {
		t.Error("usage summary lost in round-trip")
	}
	if string(got.RawResponse) != string(want.RawResponse) {
		t.Error("raw response lost in round-trip")
	}
}

func TestLoadDropsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	store, mem := newTestStore(t)

	if _, _, err := store.Append(ctx, history.Turn{Role: history.RoleUser, Text: "keep me"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	// Garbage bytes and a shape-invalid turn under the same prefix.
	if err := mem.Set(ctx, kv.Key{"history", "turn", "0"}, []byte("not msgpack")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	turns, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(turns) != 1 || turns[0].Text != "keep me" {
		t.Fatalf("Load = %d turns, want just the valid one", len(turns))
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	store.Append(ctx, history.Turn{Role: history.RoleUser, Text: "a"})
	store.Append(ctx, history.Turn{Role: history.RoleAssistant, Text: "b"})
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	turns, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("log has %d entries after Clear", len(turns))
	}
}

// failingStore rejects writes, simulating a full persistent store.
type failingStore struct {
	kv.Store
}

func (f failingStore) Set(context.Context, kv.Key, []byte) error {
	return errors.New("quota exceeded")
}

func TestServiceKeepsTurnWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	defer mem.Close()
	svc := history.NewService(history.NewStore(failingStore{mem}))

	turn, ok := svc.AppendUser(ctx, "hello", history.InputText, "int_1", history.Meta{Provider: "openai"})
	if !ok {
		t.Fatal("AppendUser rejected a valid turn")
	}
	turns := svc.Turns()
	if len(turns) != 1 || turns[0].ID != turn.ID {
		t.Fatalf("cache = %d turns, want the appended turn", len(turns))
	}
}

func TestServiceAppendAndNotify(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	svc := history.NewService(store)

	var notified int
	svc.SetOnChange(func(turns []history.Turn) { notified = len(turns) })

	if _, ok := svc.AppendUser(ctx, "   ", history.InputText, "", history.Meta{}); ok {
		t.Fatal("empty text accepted")
	}
	if notified != 0 {
		t.Fatal("change callback fired for rejected append")
	}

	svc.AppendUser(ctx, "question", history.InputVoice, "int_9", history.Meta{Provider: "Azure", Voice: "marin"})
	svc.AppendAssistant(ctx, "answer", false, nil,
		[]byte(`{"response":{"usage":{"input_tokens":6,"output_tokens":4}}}`), "int_9", history.Meta{Provider: "azure"})
	if notified != 2 {
		t.Fatalf("callback saw %d turns, want 2", notified)
	}

	totals := svc.UsageTotals()
	if totals.InputTokens != 6 || totals.OutputTokens != 4 || totals.TotalTokens != 10 {
		t.Errorf("UsageTotals = %+v", totals)
	}

	// Restore from persistence matches the cache.
	restored, err := history.NewService(store).Restore(ctx)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(restored) != 2 || restored[0].Text != "question" || restored[1].Text != "answer" {
		t.Fatalf("restored log mismatch: %+v", restored)
	}
	if restored[0].Provider != "azure" || restored[0].InputType != history.InputVoice {
		t.Errorf("restored normalization lost: %+v", restored[0])
	}
}

func TestWriteCSV(t *testing.T) {
	turns := []history.Turn{
		{
			ID: "msg_1", Role: history.RoleUser, Text: "say \"hi\"",
			CreatedAt: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
			Provider:  "openai", InputType: history.InputText,
		},
		{
			ID: "msg_2", Role: history.RoleAssistant, Text: "hi",
			CreatedAt: time.Date(2026, 2, 3, 4, 5, 7, 0, time.UTC),
			Provider: "openai", InputType: history.InputNone,
			Usage: &usage.Summary{InputTokens: intp(6), OutputTokens: intp(4), TotalTokens: intp(10)},
			RawResponse: []byte(`{"response":{"usage":{
				"input_token_details":{"text_tokens":2,"audio_tokens":4},
				"output_token_details":{"text_tokens":1,"audio_tokens":3}}}}`),
		},
	}

	var sb strings.Builder
	if err := history.WriteCSV(&sb, turns); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("CSV has %d lines, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,createdAt,provider") {
		t.Errorf("header = %q", lines[0])
	}
	// User row has no telemetry: token columns blank.
	if !strings.Contains(lines[1], ",,,,,,,,,,,,,") {
		t.Errorf("user row should have blank token columns: %q", lines[1])
	}
	if !strings.Contains(lines[1], `"say ""hi"""`) {
		t.Errorf("quotes not escaped: %q", lines[1])
	}
	if !strings.Contains(lines[2], "6,4,10,4,4,0,3,7,2,2,0,1,3,hi") {
		t.Errorf("assistant row token columns wrong: %q", lines[2])
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	if got := history.ExportFilename(now); got != "chat-history-20260203-040506.csv" {
		t.Errorf("ExportFilename = %q", got)
	}
}

func intp(v int) *int { return &v }
