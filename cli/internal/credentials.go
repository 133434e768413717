package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ledgerline/ledgerline-go/internal/client"
)

// ErrNotLoggedIn is returned when no credentials file exists for the current
// context.
var ErrNotLoggedIn = errors.New("not logged in")

// Credentials stores the authentication credentials
type Credentials struct {
	AccessToken string    `json:"access_token"`
	Email       string    `json:"email,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	// Note: the refresh session lives in a server-set cookie, never on disk
}

// IsExpired checks if the token is expired
func (c *Credentials) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// NeedsRefresh checks if the token needs to be refreshed soon (within 5 minutes)
func (c *Credentials) NeedsRefresh() bool {
	return time.Now().Add(5 * time.Minute).After(c.ExpiresAt)
}

// NewFileTokenStore creates a file-based credential store that implements
// client.TokenStore
func NewFileTokenStore() client.TokenStore {
	return &FileTokenStore{}
}

// FileTokenStore implements client.TokenStore using file-based credential storage
type FileTokenStore struct{}

// Token returns the current access token from file. A missing credentials
// file is not an error: the request simply goes out unauthenticated.
func (f *FileTokenStore) Token() (string, error) {
	creds, err := LoadCredentials()
	if err != nil {
		if errors.Is(err, ErrNotLoggedIn) {
			return "", nil
		}
		slog.Debug("failed to load credentials",
			slog.String("component", "cli-token"),
			slog.String("error", err.Error()))
		return "", err
	}
	return creds.AccessToken, nil
}

// Save stores a new access token, extracting the expiry from its claims
func (f *FileTokenStore) Save(token string) error {
	creds, err := LoadCredentials()
	if err != nil {
		creds = &Credentials{}
	}

	creds.AccessToken = token

	email, expiresAt, claimErr := extractTokenClaims(token)
	if claimErr != nil {
		slog.Warn("failed to decode token claims",
			slog.String("component", "cli-token"),
			slog.String("error", claimErr.Error()))
	} else {
		if email != "" {
			creds.Email = email
		}
		creds.ExpiresAt = expiresAt
		slog.Debug("extracted expiry from token",
			slog.String("component", "cli-token"),
			slog.Time("expires_at", expiresAt))
	}

	return SaveCredentials(creds)
}

// Clear removes the credentials file
func (f *FileTokenStore) Clear() error {
	return RemoveCredentials()
}

// extractTokenClaims decodes the access token without verifying its signature
// (the server already did) and pulls out the email and expiry claims.
func extractTokenClaims(token string) (email string, expiresAt time.Time, err error) {
	parsed, _, err := new(jwt.Parser).ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", time.Time{}, fmt.Errorf("unexpected claims type")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", time.Time{}, fmt.Errorf("exp claim not found or invalid")
	}

	if v, ok := claims["email"].(string); ok {
		email = v
	}

	return email, exp.Time, nil
}

// credentialsPath returns the path to the credentials file for the current context
func credentialsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// Load config to get current context
	config, err := LoadConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	// Use context-specific credentials file
	configDir := filepath.Join(homeDir, ".config", "ledgerline")
	filename := fmt.Sprintf("credentials-%s.json", config.CurrentContext)
	return filepath.Join(configDir, filename), nil
}

// SaveCredentials saves credentials to disk
func SaveCredentials(creds *Credentials) error {
	path, err := credentialsPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	// Write with restricted permissions (read/write for owner only)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	return nil
}

// LoadCredentials loads credentials from disk
func LoadCredentials() (*Credentials, error) {
	path, err := credentialsPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return &creds, nil
}

// RemoveCredentials removes the credentials file
func RemoveCredentials() error {
	path, err := credentialsPath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	return nil
}
