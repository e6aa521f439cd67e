package realtime

// Providers the gateway can relay to.
const (
	// ProviderOpenAI targets the OpenAI realtime endpoint. Model selection
	// is passed through as the "model" connection parameter.
	ProviderOpenAI = "openai"
	// ProviderAzure targets an Azure OpenAI realtime deployment. The
	// deployment name is passed through as the "deployment" parameter.
	ProviderAzure = "azure"
)

// SupportedProvider reports whether the client knows how to encode
// connection parameters for the given provider.
func SupportedProvider(provider string) bool {
	switch provider {
	case ProviderOpenAI, ProviderAzure:
		return true
	}
	return false
}

// ConnectConfig contains the connection parameters encoded into the
// gateway socket URL.
type ConnectConfig struct {
	// Provider selects the upstream provider. Required.
	Provider string

	// Model is the model ID (OpenAI). Optional.
	Model string

	// Deployment is the deployment name (Azure). Optional.
	Deployment string

	// APIKey is a caller-supplied key forwarded to the gateway. Optional;
	// when empty the gateway falls back to its own configured key.
	APIKey string
}

// SessionConfig is the session-configuration frame sent after the socket
// opens. Zero-valued fields are omitted from the frame.
type SessionConfig struct {
	// Voice selects the assistant voice for audio output.
	Voice string `json:"voice,omitempty"`

	// Instructions is the system prompt for this session.
	Instructions string `json:"instructions,omitempty"`
}

// SessionResource is the session state echoed by the gateway on
// session.created and session.updated.
type SessionResource struct {
	ID           string `json:"id,omitempty"`
	Model        string `json:"model,omitempty"`
	Voice        string `json:"voice,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// ResponseResource is the response summary delivered with response.done.
type ResponseResource struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"` // "completed", "cancelled", "incomplete", "failed"
	Usage  *Usage `json:"usage,omitempty"`
}

// Usage carries the provider's token telemetry for one response. Any of
// the fields may be absent; see the usage package for normalization.
type Usage struct {
	TotalTokens        int           `json:"total_tokens,omitempty"`
	InputTokens        int           `json:"input_tokens,omitempty"`
	OutputTokens       int           `json:"output_tokens,omitempty"`
	InputTokenDetails  *TokenDetails `json:"input_token_details,omitempty"`
	OutputTokenDetails *TokenDetails `json:"output_token_details,omitempty"`
}

// TokenDetails is a text/audio token split, with cached-token details on
// the input side.
type TokenDetails struct {
	CachedTokens        int                  `json:"cached_tokens,omitempty"`
	TextTokens          int                  `json:"text_tokens,omitempty"`
	AudioTokens         int                  `json:"audio_tokens,omitempty"`
	CachedTokensDetails *CachedTokensDetails `json:"cached_tokens_details,omitempty"`
}

// CachedTokensDetails splits cached input tokens by modality.
type CachedTokensDetails struct {
	TextTokens  int `json:"text_tokens,omitempty"`
	AudioTokens int `json:"audio_tokens,omitempty"`
}
