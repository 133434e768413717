package cli

import (
	"fmt"
	"os"

	"github.com/ledgerline/ledgerline-go/internal/api"
)

// NewAPIClient creates the shared API client with automatic token refresh
func NewAPIClient() (*api.Client, error) {
	// Load config for the server URL
	config, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	ctx, err := config.GetCurrentContext()
	if err != nil {
		return nil, fmt.Errorf("failed to get current context: %w", err)
	}

	apiClient, err := api.New(api.Config{
		BaseURL: ctx.ServerURL(),
		Store:   NewFileTokenStore(),
		OnSessionExpired: func() {
			fmt.Fprintln(os.Stderr, "Session expired. Please run 'ledgerline auth login' again.")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return apiClient, nil
}
