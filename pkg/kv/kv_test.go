package kv_test

import (
	"context"
	"errors"
	"testing"

	"github.com/voxterm/voxterm/pkg/kv"
)

func newTestStore(t *testing.T) kv.Store {
	t.Helper()
	s := kv.NewMemory()
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	key := kv.Key{"settings", "provider"}

	if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, key, []byte("openai")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "openai" {
		t.Fatalf("Get = %q, want %q", got, "openai")
	}

	if err := s.Set(ctx, key, []byte("azure")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, _ = s.Get(ctx, key)
	if string(got) != "azure" {
		t.Fatalf("Get after overwrite = %q, want %q", got, "azure")
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing key is not an error.
	if err := s.Delete(ctx, kv.Key{"no", "such", "key"}); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestListOrderAndPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Set(ctx, kv.Key{"settings", "voice"}, []byte("alloy")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	for i, v := range []string{"a", "b", "c"} {
		key := kv.Key{"log", "turn", string(rune('1' + i))}
		if err := s.Set(ctx, key, []byte(v)); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	var values []string
	for entry, err := range s.List(ctx, kv.Key{"log", "turn"}) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		values = append(values, string(entry.Value))
	}
	if len(values) != 3 {
		t.Fatalf("List yielded %d entries, want 3", len(values))
	}
	for i, want := range []string{"a", "b", "c"} {
		if values[i] != want {
			t.Errorf("values[%d] = %q, want %q (lexicographic order)", i, values[i], want)
		}
	}

	// A prefix must not match sibling keys sharing a string prefix.
	if err := s.Set(ctx, kv.Key{"log", "turnstile"}, []byte("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	count := 0
	for _, err := range s.List(ctx, kv.Key{"log", "turn"}) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		count++
	}
	if count != 3 {
		t.Errorf("List matched %d entries, want 3 (no turnstile)", count)
	}
}

func TestDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, k := range []kv.Key{
		{"history", "turn", "1"},
		{"history", "turn", "2"},
		{"settings", "voice"},
	} {
		if err := s.Set(ctx, k, []byte("v")); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	if err := s.DeletePrefix(ctx, kv.Key{"history"}); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	for entry, err := range s.List(ctx, kv.Key{"history"}) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		t.Errorf("unexpected surviving entry %v", entry.Key)
	}
	if _, err := s.Get(ctx, kv.Key{"settings", "voice"}); err != nil {
		t.Errorf("unrelated key deleted: %v", err)
	}
}

func TestBadgerInMemory(t *testing.T) {
	ctx := context.Background()
	s, err := kv.OpenBadger(kv.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	defer s.Close()

	key := kv.Key{"history", "turn", "42"}
	if err := s.Set(ctx, key, []byte("hello")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Get = %q", got)
	}
}
