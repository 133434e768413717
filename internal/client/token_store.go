package client

import "sync"

// TokenStore is an interface for persisting the bearer credential.
// Different implementations can store the token in files, sessions, databases, etc.
type TokenStore interface {
	// Token returns the current access token, or "" when no credential
	// is stored. An empty token is not an error: the request is simply
	// sent unauthenticated.
	Token() (token string, err error)

	// Save stores a new access token, replacing any previous one.
	Save(token string) error

	// Clear removes the stored credential.
	Clear() error
}

// MemoryTokenStore keeps the credential in process memory. Useful for
// embedding the client in another program and for tests.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
