package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/voxterm/voxterm/pkg/kv"
	"github.com/voxterm/voxterm/pkg/realtime"
)

// Settings persists client configuration in the kv store: selected
// provider, per-provider API keys and model targets, voice, system
// prompt override, and the context-replay switch. The connector treats
// these as precondition checks before dialing.
type Settings struct {
	kv kv.Store
}

// Defaults applied when a setting was never written.
const (
	DefaultProvider = realtime.ProviderOpenAI
	DefaultModel    = "gpt-4o-realtime-preview"
	DefaultVoice    = "marin"
	DefaultGateway  = "http://localhost:8080"
)

var settingsPrefix = kv.Key{"settings"}

// NewSettings creates a Settings service over the given store.
func NewSettings(store kv.Store) *Settings {
	return &Settings{kv: store}
}

func (s *Settings) get(ctx context.Context, key kv.Key, fallback string) string {
	v, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) || err != nil || len(v) == 0 {
		return fallback
	}
	return string(v)
}

func (s *Settings) set(ctx context.Context, key kv.Key, value string) error {
	if value == "" {
		return s.kv.Delete(ctx, key)
	}
	return s.kv.Set(ctx, key, []byte(value))
}

// SelectedProvider returns the provider to connect with.
func (s *Settings) SelectedProvider(ctx context.Context) string {
	return s.get(ctx, settingsPrefix.Child("provider"), DefaultProvider)
}

// SetProvider selects the provider for future connections.
func (s *Settings) SetProvider(ctx context.Context, provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !realtime.SupportedProvider(provider) {
		return fmt.Errorf("session: unsupported provider %q", provider)
	}
	return s.set(ctx, settingsPrefix.Child("provider"), provider)
}

// IsProviderSupported reports whether the client can connect to the
// given provider.
func (s *Settings) IsProviderSupported(provider string) bool {
	return realtime.SupportedProvider(provider)
}

// SavedKey returns the stored API key for a provider, or "".
func (s *Settings) SavedKey(ctx context.Context, provider string) string {
	return s.get(ctx, settingsPrefix.Child("key", strings.ToLower(provider)), "")
}

// SetKey stores an API key for a provider. An empty key removes the
// stored one, falling back to the environment or the gateway's key.
func (s *Settings) SetKey(ctx context.Context, provider, key string) error {
	return s.set(ctx, settingsPrefix.Child("key", strings.ToLower(provider)), strings.TrimSpace(key))
}

// HasEffectiveKey reports whether a connection attempt has any key to
// work with: a stored key or one in the environment. The gateway may
// still hold its own key; callers use this as a pre-dial hint, not a
// guarantee.
func (s *Settings) HasEffectiveKey(ctx context.Context, provider string) bool {
	if s.SavedKey(ctx, provider) != "" {
		return true
	}
	return os.Getenv(strings.ToUpper(provider)+"_API_KEY") != ""
}

// EffectiveKey resolves the key forwarded to the gateway: the stored
// key wins over the environment; "" defers to the gateway's own key.
func (s *Settings) EffectiveKey(ctx context.Context, provider string) string {
	if k := s.SavedKey(ctx, provider); k != "" {
		return k
	}
	return os.Getenv(strings.ToUpper(provider) + "_API_KEY")
}

// Model returns the model (OpenAI) or deployment (Azure) target for a
// provider.
func (s *Settings) Model(ctx context.Context, provider string) string {
	return s.get(ctx, settingsPrefix.Child("model", strings.ToLower(provider)), DefaultModel)
}

// SetModel stores the model or deployment target for a provider.
func (s *Settings) SetModel(ctx context.Context, provider, model string) error {
	return s.set(ctx, settingsPrefix.Child("model", strings.ToLower(provider)), strings.TrimSpace(model))
}

// Voice returns the assistant voice.
func (s *Settings) Voice(ctx context.Context) string {
	return s.get(ctx, settingsPrefix.Child("voice"), DefaultVoice)
}

// SetVoice stores the assistant voice.
func (s *Settings) SetVoice(ctx context.Context, voice string) error {
	return s.set(ctx, settingsPrefix.Child("voice"), strings.TrimSpace(voice))
}

// SystemPrompt returns the system prompt override, or "".
func (s *Settings) SystemPrompt(ctx context.Context) string {
	return s.get(ctx, settingsPrefix.Child("prompt"), "")
}

// SetSystemPrompt stores the system prompt override.
func (s *Settings) SetSystemPrompt(ctx context.Context, prompt string) error {
	return s.set(ctx, settingsPrefix.Child("prompt"), prompt)
}

// ReplayEnabled reports whether recent history is replayed as context
// after a reconnect. Defaults to on.
func (s *Settings) ReplayEnabled(ctx context.Context) bool {
	return s.get(ctx, settingsPrefix.Child("replay"), "on") != "off"
}

// SetReplayEnabled toggles context replay.
func (s *Settings) SetReplayEnabled(ctx context.Context, enabled bool) error {
	v := "on"
	if !enabled {
		v = "off"
	}
	return s.set(ctx, settingsPrefix.Child("replay"), v)
}

// GatewayURL returns the gateway base URL.
func (s *Settings) GatewayURL(ctx context.Context) string {
	return s.get(ctx, settingsPrefix.Child("gateway"), DefaultGateway)
}

// SetGatewayURL stores the gateway base URL.
func (s *Settings) SetGatewayURL(ctx context.Context, url string) error {
	return s.set(ctx, settingsPrefix.Child("gateway"), strings.TrimSpace(url))
}
