package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ledgerline/ledgerline-go/internal/client"
)

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
}

// decodeError turns an error response into an *APIError. Bodies that are not
// the standard envelope still produce a usable error from the status code.
func decodeError(resp *client.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	if len(resp.Body) > 0 {
		// Best effort; a non-JSON body leaves Code and Message empty.
		_ = json.Unmarshal(resp.Body, apiErr)
	}
	return apiErr
}
