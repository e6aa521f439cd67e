package history

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/voxterm/voxterm/pkg/usage"
)

// Meta carries the session attribution stamped onto appended turns.
type Meta struct {
	Provider string
	Model    string
	Voice    string
}

// Service keeps the in-memory conversation log and writes through to a
// Store. The cache is authoritative for the running session: when a
// persistence write fails the turn still enters the cache and the
// failure is logged, so only cross-run durability is affected.
type Service struct {
	store *Store

	mu       sync.Mutex
	turns    []Turn
	onChange func([]Turn)
}

// NewService creates a Service over the given store with an empty
// cache. Call Restore to load the persisted log.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// SetOnChange registers a callback fired after every cache mutation
// with a snapshot of the log. Pass nil to unregister.
func (s *Service) SetOnChange(fn func([]Turn)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Restore replaces the cache with the persisted log.
func (s *Service) Restore(ctx context.Context) ([]Turn, error) {
	turns, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.turns = turns
	snapshot, notify := s.snapshotLocked()
	s.mu.Unlock()
	if notify != nil {
		notify(snapshot)
	}
	return snapshot, nil
}

// Turns returns a snapshot of the cached log.
func (s *Service) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.turns)
}

// Clear empties both the persisted log and the cache. The cache is
// cleared even when the persistent delete fails.
func (s *Service) Clear(ctx context.Context) error {
	err := s.store.Clear(ctx)
	s.mu.Lock()
	s.turns = nil
	snapshot, notify := s.snapshotLocked()
	s.mu.Unlock()
	if notify != nil {
		notify(snapshot)
	}
	return err
}

// AppendUser appends a user turn. Reports false for empty text.
func (s *Service) AppendUser(ctx context.Context, text, inputType, interactionID string, m Meta) (Turn, bool) {
	return s.append(ctx, Turn{
		Role:          RoleUser,
		Text:          text,
		Provider:      m.Provider,
		Model:         m.Model,
		Voice:         m.Voice,
		InputType:     inputType,
		InteractionID: interactionID,
	})
}

// AppendAssistant appends an assistant turn with optional usage
// telemetry. Reports false for empty text.
func (s *Service) AppendAssistant(ctx context.Context, text string, interrupted bool, sum *usage.Summary, raw []byte, interactionID string, m Meta) (Turn, bool) {
	return s.append(ctx, Turn{
		Role:          RoleAssistant,
		Text:          text,
		Provider:      m.Provider,
		Model:         m.Model,
		Voice:         m.Voice,
		Interrupted:   interrupted,
		InputType:     InputNone,
		Usage:         sum,
		RawResponse:   raw,
		InteractionID: interactionID,
	})
}

func (s *Service) append(ctx context.Context, t Turn) (Turn, bool) {
	t, ok := NewTurn(t)
	if !ok {
		return Turn{}, false
	}

	s.mu.Lock()
	s.turns = append(s.turns, t)
	if len(s.turns) > MaxTurns {
		s.turns = slices.Clone(s.turns[len(s.turns)-MaxTurns:])
	}
	snapshot, notify := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.store.Put(ctx, t); err != nil {
		slog.Warn("history: persist failed, keeping turn in memory",
			"turn_id", t.ID, "error", err)
	}
	if notify != nil {
		notify(snapshot)
	}
	return t, true
}

// UsageTotals aggregates the normalized usage of every cached turn.
func (s *Service) UsageTotals() usage.Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total usage.Breakdown
	for _, t := range s.turns {
		if t.Usage == nil && len(t.RawResponse) == 0 {
			continue
		}
		total = total.Add(usage.Normalize(t.Usage, t.RawResponse))
	}
	return total
}

func (s *Service) snapshotLocked() ([]Turn, func([]Turn)) {
	return slices.Clone(s.turns), s.onChange
}
