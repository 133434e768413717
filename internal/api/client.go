// Package api is the typed Ledgerline client. It wraps the authenticated
// request pipeline with the service's REST surface: auth, accounts, holdings,
// transactions, and the portfolio summary.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/ledgerline/ledgerline-go/internal/client"
)

// Config configures a Client. BaseURL and Store are required.
type Config struct {
	// BaseURL is the server root, e.g. "https://api.ledgerline.io".
	BaseURL string

	// Store persists the bearer credential between requests.
	Store client.TokenStore

	// OnSessionExpired fires once when a refresh cycle fails and the session
	// cannot be recovered. Optional.
	OnSessionExpired func()

	// PasswordStrength scores signup passwords. Optional; when nil, signup
	// defers entirely to server-side validation.
	PasswordStrength PasswordStrength

	Logger *slog.Logger
}

// Client is the Ledgerline API client. All authenticated calls go through the
// refresh pipeline; login and refresh use the transport directly since they
// must not themselves trigger a refresh cycle.
type Client struct {
	transport *client.HTTPTransport
	pipeline  *client.Pipeline
	store     client.TokenStore
	strength  PasswordStrength
	logger    *slog.Logger
}

// New creates a Client for the given server.
func New(cfg Config) (*Client, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("api: token store is required")
	}
	transport, err := client.NewHTTPTransport(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With(slog.String("component", "api"))
	}

	c := &Client{
		transport: transport,
		store:     cfg.Store,
		strength:  cfg.PasswordStrength,
		logger:    logger,
	}
	c.pipeline = client.NewPipeline(client.PipelineConfig{
		Transport:        transport,
		Store:            cfg.Store,
		Refresh:          c.refreshToken,
		OnSessionExpired: cfg.OnSessionExpired,
		Logger:           logger,
	})
	return c, nil
}

// do sends one authenticated request and decodes the JSON response into out
// (when out is non-nil). Non-2xx responses decode to an *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	resp, err := c.pipeline.Do(ctx, &client.Request{
		Method: method,
		Path:   path,
		Query:  query,
		Body:   body,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
