package client

import (
	"errors"
	"fmt"
)

// ErrCredentialRejected is returned when a request that was already replayed
// with a freshly refreshed credential is rejected again. The pipeline never
// queues such a request a second time.
var ErrCredentialRejected = errors.New("credential rejected after refresh")

// RefreshError wraps the failure of the refresh call itself. Every caller
// waiting on the failed refresh cycle receives the same RefreshError.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}
