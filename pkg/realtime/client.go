package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultPath is the websocket path on the gateway.
const DefaultPath = "/ws"

// Client dials realtime sessions against one gateway.
type Client struct {
	config *clientConfig
}

type clientConfig struct {
	gatewayURL string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient creates a client for the given gateway base URL
// (e.g. "https://voice.example.com"). The websocket scheme mirrors the
// gateway scheme: https becomes wss, http becomes ws.
func NewClient(gatewayURL string, opts ...Option) *Client {
	if gatewayURL == "" {
		panic("realtime: gateway URL is required")
	}

	cfg := &clientConfig{
		gatewayURL: gatewayURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{config: cfg}
}

// WithHTTPClient sets a custom HTTP client; its timeout bounds the
// websocket handshake.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// Connect opens a websocket session to the gateway with the provider
// selection encoded as connection parameters.
func (c *Client) Connect(ctx context.Context, config *ConnectConfig) (*Session, error) {
	return c.connect(ctx, config)
}

// socketURL builds the websocket URL for the given connection parameters.
func (c *Client) socketURL(config *ConnectConfig) (string, error) {
	u, err := url.Parse(c.config.gatewayURL)
	if err != nil {
		return "", fmt.Errorf("realtime: invalid gateway URL: %w", err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("realtime: unsupported gateway scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultPath
	}

	q := url.Values{}
	q.Set("provider", config.Provider)
	if config.Provider == ProviderOpenAI && config.Model != "" {
		q.Set("model", config.Model)
	}
	if config.Provider == ProviderAzure && config.Deployment != "" {
		q.Set("deployment", config.Deployment)
	}
	if key := strings.TrimSpace(config.APIKey); key != "" {
		q.Set("api_key", key)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
