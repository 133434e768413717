package cli

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signTestToken mints a token with the given email and expiry, signed with a
// throwaway key. The store never verifies signatures, it only reads claims.
func signTestToken(t *testing.T, email string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user_1",
		"email": email,
		"exp":   expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	store := NewFileTokenStore()

	// Absent credentials read as anonymous, not as an error
	token, err := store.Token()
	if err != nil {
		t.Fatalf("Token() on empty store: %v", err)
	}
	if token != "" {
		t.Fatalf("Token() on empty store = %q, want empty", token)
	}

	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)
	signed := signTestToken(t, "alice@example.com", expiresAt)
	if err := store.Save(signed); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	token, err = store.Token()
	if err != nil {
		t.Fatal(err)
	}
	if token != signed {
		t.Error("Token() did not return the saved token")
	}

	creds, err := LoadCredentials()
	if err != nil {
		t.Fatal(err)
	}
	if creds.Email != "alice@example.com" {
		t.Errorf("email = %q", creds.Email)
	}
	if !creds.ExpiresAt.Equal(expiresAt) {
		t.Errorf("expires at = %v, want %v", creds.ExpiresAt, expiresAt)
	}
	if creds.IsExpired() {
		t.Error("fresh credential reported as expired")
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCredentials(); err != ErrNotLoggedIn {
		t.Errorf("after Clear, LoadCredentials error = %v, want ErrNotLoggedIn", err)
	}
	// Clearing twice is fine
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear failed: %v", err)
	}
}

func TestSaveTokenWithOpaqueCredential(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	store := NewFileTokenStore()

	// A credential that is not a JWT still stores fine, just without expiry
	if err := store.Save("opaque-session-token"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	token, err := store.Token()
	if err != nil {
		t.Fatal(err)
	}
	if token != "opaque-session-token" {
		t.Errorf("Token() = %q", token)
	}
	creds, err := LoadCredentials()
	if err != nil {
		t.Fatal(err)
	}
	if !creds.ExpiresAt.IsZero() {
		t.Errorf("opaque token produced expiry %v", creds.ExpiresAt)
	}
}

func TestCredentialsPerContext(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	store := NewFileTokenStore()
	if err := store.Save(signTestToken(t, "alice@example.com", time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	// Switching contexts switches credential files
	config, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if err := config.SetCurrentContext("prod"); err != nil {
		t.Fatal(err)
	}
	if err := SaveConfig(config); err != nil {
		t.Fatal(err)
	}

	token, err := store.Token()
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		t.Errorf("prod context sees local credential %q", token)
	}
}

func TestNeedsRefresh(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "long-lived", expiresAt: time.Now().Add(time.Hour), want: false},
		{name: "expiring soon", expiresAt: time.Now().Add(2 * time.Minute), want: true},
		{name: "already expired", expiresAt: time.Now().Add(-time.Minute), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := &Credentials{ExpiresAt: tt.expiresAt}
			if got := creds.NeedsRefresh(); got != tt.want {
				t.Errorf("NeedsRefresh() = %v, want %v", got, tt.want)
			}
		})
	}
}
