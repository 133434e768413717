package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ledgerline/ledgerline-go/internal/client"
)

// PasswordStrength scores a candidate password from 0 (trivially guessable)
// to 4 (very strong). The scoring heuristic is a pure function supplied by
// the embedding application; this module only consumes it.
type PasswordStrength interface {
	Score(password string) int
}

// minSignupScore is the weakest score accepted at signup when a
// PasswordStrength implementation is configured.
const minSignupScore = 3

// tokenResponse is the credential envelope returned by login and refresh.
type tokenResponse struct {
	Token string `json:"token"`
}

// SignupParams are the fields required to create an account.
type SignupParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Login authenticates with email and password. On success the access token is
// saved to the store and the server sets the refresh cookie on the transport's
// jar. Login bypasses the pipeline: a 401 here means bad credentials, not an
// expired session.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("failed to encode login request: %w", err)
	}

	resp, err := c.transport.Do(ctx, &client.Request{
		Method: http.MethodPost,
		Path:   "/v1/auth/login",
		Body:   body,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	if tr.Token == "" {
		return fmt.Errorf("login response missing token")
	}
	if err := c.store.Save(tr.Token); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	c.logger.Info("logged in", slog.String("email", email))
	return nil
}

// Signup registers a new user. When a PasswordStrength scorer is configured
// the password is checked locally before the request is sent.
func (c *Client) Signup(ctx context.Context, params SignupParams) error {
	if c.strength != nil {
		if score := c.strength.Score(params.Password); score < minSignupScore {
			return fmt.Errorf("password too weak (score %d, need %d)", score, minSignupScore)
		}
	}

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode signup request: %w", err)
	}
	resp, err := c.transport.Do(ctx, &client.Request{
		Method: http.MethodPost,
		Path:   "/v1/auth/signup",
		Body:   body,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

// Logout revokes the session on the server, then clears the local credential.
// Revocation failures are logged but do not keep the local credential alive.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.transport.Do(ctx, &client.Request{
		Method: http.MethodPost,
		Path:   "/v1/auth/logout",
	})
	if err != nil {
		c.logger.Warn("server-side logout failed", slog.String("error", err.Error()))
	} else if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		c.logger.Warn("server-side logout rejected", slog.Int("status", resp.StatusCode))
	}

	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// refreshToken is the pipeline's RefreshFunc: a single call with no body that
// relies on the refresh cookie held by the transport's jar.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	resp, err := c.transport.Do(ctx, &client.Request{
		Method: http.MethodPost,
		Path:   "/v1/auth/refresh",
	})
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if tr.Token == "" {
		return "", fmt.Errorf("refresh response missing token")
	}
	return tr.Token, nil
}
