package history

import (
	"context"
	"strconv"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/voxterm/voxterm/pkg/kv"
)

// Key layout:
//
//	history/turn/{ts_ns} → msgpack-encoded Turn
//
// The nanosecond timestamp gives uniqueness and total ordering; the
// store bumps it when two appends land in the same nanosecond.
var turnPrefix = kv.Key{"history", "turn"}

// Store persists turns in a kv.Store.
type Store struct {
	kv kv.Store

	mu       sync.Mutex
	lastNano int64
}

// NewStore creates a Store on top of the given kv store.
func NewStore(s kv.Store) *Store {
	return &Store{kv: s}
}

// Append validates, normalizes and persists a turn, evicting the oldest
// entries beyond MaxTurns. It reports false without touching the log
// when the text trims to empty.
func (s *Store) Append(ctx context.Context, t Turn) (Turn, bool, error) {
	t, ok := NewTurn(t)
	if !ok {
		return Turn{}, false, nil
	}
	return t, true, s.Put(ctx, t)
}

// Put persists an already-normalized turn and prunes the log. Most
// callers want Append; Put exists for callers that keep their own
// in-memory copy and must not re-derive IDs.
func (s *Store) Put(ctx context.Context, t Turn) error {
	data, err := msgpack.Marshal(t)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.turnKey(t), data); err != nil {
		return err
	}
	return s.prune(ctx)
}

func (s *Store) turnKey(t Turn) kv.Key {
	ns := t.CreatedAt.UnixNano()
	s.mu.Lock()
	if ns <= s.lastNano {
		ns = s.lastNano + 1
	}
	s.lastNano = ns
	s.mu.Unlock()
	return turnPrefix.Child(strconv.FormatInt(ns, 10))
}

// Load returns the persisted log in chronological order. Entries that
// fail to decode or fail shape validation are dropped, not reported.
func (s *Store) Load(ctx context.Context) ([]Turn, error) {
	var turns []Turn
	for entry, err := range s.kv.List(ctx, turnPrefix) {
		if err != nil {
			return nil, err
		}
		var t Turn
		if err := msgpack.Unmarshal(entry.Value, &t); err != nil {
			continue
		}
		if !t.valid() {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Clear removes every persisted turn.
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.DeletePrefix(ctx, turnPrefix)
}

// prune deletes the oldest turns until at most MaxTurns remain.
func (s *Store) prune(ctx context.Context) error {
	var keys []kv.Key
	for entry, err := range s.kv.List(ctx, turnPrefix) {
		if err != nil {
			return err
		}
		keys = append(keys, entry.Key)
	}
	for _, key := range keys[:max(0, len(keys)-MaxTurns)] {
		if err := s.kv.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
