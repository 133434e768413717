package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeTransport routes every call through fn. Tests swap fn to script
// status codes per credential.
type fakeTransport struct {
	fn func(ctx context.Context, req *Request) (*Response, error)
}

func (t *fakeTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	return t.fn(ctx, req)
}

// tokenGate answers 200 only when the request carries the expected bearer
// token, 401 otherwise. It records every authorized request path in order.
type tokenGate struct {
	mu         sync.Mutex
	validToken string
	served     []string
}

func (g *tokenGate) handle(_ context.Context, req *Request) (*Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if req.Header.Get("Authorization") != "Bearer "+g.validToken {
		return &Response{StatusCode: http.StatusUnauthorized}, nil
	}
	g.served = append(g.served, req.Path)
	return &Response{StatusCode: http.StatusOK, Body: []byte(`{"ok":true}`)}, nil
}

func (g *tokenGate) servedPaths() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.served...)
}

func queueLen(p *Pipeline) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestAnonymousRequestBypassesCoordinator(t *testing.T) {
	var refreshCalls atomic.Int32
	var sawAuthHeader bool

	p := NewPipeline(PipelineConfig{
		Transport: &fakeTransport{fn: func(_ context.Context, req *Request) (*Response, error) {
			if req.Header.Get("Authorization") != "" {
				sawAuthHeader = true
			}
			return &Response{StatusCode: http.StatusOK}, nil
		}},
		Store: NewMemoryTokenStore(),
		Refresh: func(context.Context) (string, error) {
			refreshCalls.Add(1)
			return "", errors.New("refresh must not be called")
		},
	})

	resp, err := p.Do(context.Background(), &Request{Method: "GET", Path: "/v1/accounts"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if sawAuthHeader {
		t.Error("anonymous request carried an Authorization header")
	}
	if n := refreshCalls.Load(); n != 0 {
		t.Errorf("refresh called %d times for anonymous request", n)
	}
}

func TestUnrelatedFailuresPassThrough(t *testing.T) {
	transportErr := errors.New("connection reset")

	tests := []struct {
		name     string
		fn       func(ctx context.Context, req *Request) (*Response, error)
		wantCode int
		wantErr  error
	}{
		{
			name: "server error",
			fn: func(context.Context, *Request) (*Response, error) {
				return &Response{StatusCode: http.StatusInternalServerError}, nil
			},
			wantCode: http.StatusInternalServerError,
		},
		{
			name: "bad request",
			fn: func(context.Context, *Request) (*Response, error) {
				return &Response{StatusCode: http.StatusBadRequest}, nil
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "transport error",
			fn: func(context.Context, *Request) (*Response, error) {
				return nil, transportErr
			},
			wantErr: transportErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var refreshCalls atomic.Int32
			store := NewMemoryTokenStore()
			if err := store.Save("token"); err != nil {
				t.Fatal(err)
			}
			p := NewPipeline(PipelineConfig{
				Transport: &fakeTransport{fn: tt.fn},
				Store:     store,
				Refresh: func(context.Context) (string, error) {
					refreshCalls.Add(1)
					return "", errors.New("refresh must not be called")
				},
			})

			resp, err := p.Do(context.Background(), &Request{Method: "GET", Path: "/v1/accounts"})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if resp.StatusCode != tt.wantCode {
					t.Fatalf("expected %d, got %d", tt.wantCode, resp.StatusCode)
				}
			}
			if n := refreshCalls.Load(); n != 0 {
				t.Errorf("refresh called %d times for non-authorization failure", n)
			}
		})
	}
}

func TestConcurrentExpiryTriggersSingleRefresh(t *testing.T) {
	const n = 5

	gate := &tokenGate{validToken: "new-token"}
	store := NewMemoryTokenStore()
	if err := store.Save("stale-token"); err != nil {
		t.Fatal(err)
	}

	var refreshCalls atomic.Int32
	release := make(chan struct{})

	p := NewPipeline(PipelineConfig{
		Transport: &fakeTransport{fn: gate.handle},
		Store:     store,
		Refresh: func(context.Context) (string, error) {
			refreshCalls.Add(1)
			<-release
			return "new-token", nil
		},
	})

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := p.Do(context.Background(), &Request{
				Method: "GET",
				Path:   fmt.Sprintf("/v1/accounts/%d", i),
			})
			if err == nil && resp.StatusCode != http.StatusOK {
				err = fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
			results <- err
		}(i)
	}

	// The trigger holds the refresh open until the other four are queued.
	waitFor(t, "queue to fill", func() bool { return queueLen(p) == n-1 })
	close(release)
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Errorf("request failed: %v", err)
		}
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("expected exactly one refresh call, got %d", got)
	}
	if token, _ := store.Token(); token != "new-token" {
		t.Errorf("store holds %q, want %q", token, "new-token")
	}
	if served := gate.servedPaths(); len(served) != n {
		t.Errorf("expected %d replayed requests, got %d (%v)", n, len(served), served)
	}
}

func TestQueuedRequestsReplayInArrivalOrder(t *testing.T) {
	gate := &tokenGate{validToken: "new-token"}
	store := NewMemoryTokenStore()
	if err := store.Save("stale-token"); err != nil {
		t.Fatal(err)
	}

	release := make(chan struct{})
	p := NewPipeline(PipelineConfig{
		Transport: &fakeTransport{fn: gate.handle},
		Store:     store,
		Refresh: func(context.Context) (string, error) {
			<-release
			return "new-token", nil
		},
	})

	var wg sync.WaitGroup
	start := func(path string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Do(context.Background(), &Request{Method: "GET", Path: path}); err != nil {
				t.Errorf("request %s failed: %v", path, err)
			}
		}()
	}

	// The trigger enters the refresh first, then the queue fills one call at
	// a time so arrival order is known.
	start("/trigger")
	waitFor(t, "refresh to start", func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.refreshing
	})
	for i, path := range []string{"/first", "/second", "/third"} {
		start(path)
		want := i + 1
		waitFor(t, "request to queue", func() bool { return queueLen(p) == want })
	}

	close(release)
	wg.Wait()

	served := gate.servedPaths()
	if len(served) != 4 {
		t.Fatalf("expected 4 replayed requests, got %d (%v)", len(served), served)
	}
	// Queued requests replay FIFO. The trigger's own replay is ordered only
	// after the refresh, so it is checked for presence, not position.
	var queued []string
	for _, path := range served {
		if path != "/trigger" {
			queued = append(queued, path)
		}
	}
	want := []string{"/first", "/second", "/third"}
	for i := range want {
		if queued[i] != want[i] {
			t.Fatalf("replay order %v, want %v", queued, want)
		}
	}
}

func TestRefreshFailureRejectsEveryCaller(t *testing.T) {
	store := NewMemoryTokenStore()
	if err := store.Save("stale-token"); err != nil {
		t.Fatal(err)
	}

	refreshErr := errors.New("refresh cookie rejected")
	release := make(chan struct{})
	var hookCalls atomic.Int32
	var storeAtHook atomic.Value

	p := NewPipeline(PipelineConfig{
		Transport: &fakeTransport{fn: func(context.Context, *Request) (*Response, error) {
			return &Response{StatusCode: http.StatusUnauthorized}, nil
		}},
		Store: store,
		Refresh: func(context.Context) (string, error) {
			<-release
			return "", refreshErr
		},
	})
	p.onExpired = func() {
		hookCalls.Add(1)
		token, _ := store.Token()
		storeAtHook.Store(token)
	}

	const n = 3
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Do(context.Background(), &Request{Method: "GET", Path: "/v1/summary"})
			results <- err
		}()
	}

	waitFor(t, "queue to fill", func() bool { return queueLen(p) == n-1 })
	close(release)
	wg.Wait()
	close(results)

	for err := range results {
		var rerr *RefreshError
		if !errors.As(err, &rerr) {
			t.Fatalf("expected RefreshError, got %v", err)
		}
		if !errors.Is(err, refreshErr) {
			t.Fatalf("refresh error not propagated: %v", err)
		}
	}
	if got := hookCalls.Load(); got != 1 {
		t.Errorf("session-expired hook called %d times, want 1", got)
	}
	if token, _ := store.Token(); token != "" {
		t.Errorf("credential store not cleared, holds %q", token)
	}
	if v, ok := storeAtHook.Load().(string); !ok || v != "" {
		t.Errorf("store not cleared before hook fired (saw %q)", v)
	}
}

func TestReplayRejectionIsTerminal(t *testing.T) {
	store := NewMemoryTokenStore()
	if err := store.Save("stale-token"); err != nil {
		t.Fatal(err)
	}

	var refreshCalls atomic.Int32
	p := NewPipeline(PipelineConfig{
		Transport: &fakeTransport{fn: func(context.Context, *Request) (*Response, error) {
			// The server rejects even the refreshed credential.
			return &Response{StatusCode: http.StatusUnauthorized}, nil
		}},
		Store: store,
		Refresh: func(context.Context) (string, error) {
			refreshCalls.Add(1)
			return "new-token", nil
		},
	})

	_, err := p.Do(context.Background(), &Request{Method: "GET", Path: "/v1/holdings"})
	if !errors.Is(err, ErrCredentialRejected) {
		t.Fatalf("expected ErrCredentialRejected, got %v", err)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("expected exactly one refresh cycle, got %d", got)
	}
}

func TestAttacherRereadsStorePerRequest(t *testing.T) {
	var seen []string
	var mu sync.Mutex

	store := NewMemoryTokenStore()
	p := NewPipeline(PipelineConfig{
		Transport: &fakeTransport{fn: func(_ context.Context, req *Request) (*Response, error) {
			mu.Lock()
			seen = append(seen, req.Header.Get("Authorization"))
			mu.Unlock()
			return &Response{StatusCode: http.StatusOK}, nil
		}},
		Store: store,
		Refresh: func(context.Context) (string, error) {
			return "", errors.New("refresh must not be called")
		},
	})

	for _, token := range []string{"first", "second"} {
		if err := store.Save(token); err != nil {
			t.Fatal(err)
		}
		if _, err := p.Do(context.Background(), &Request{Method: "GET", Path: "/v1/accounts"}); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"Bearer first", "Bearer second"}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("attached headers %v, want %v", seen, want)
		}
	}
}

func TestQueuedCallerHonorsCancellation(t *testing.T) {
	store := NewMemoryTokenStore()
	if err := store.Save("stale-token"); err != nil {
		t.Fatal(err)
	}

	release := make(chan struct{})
	p := NewPipeline(PipelineConfig{
		Transport: &fakeTransport{fn: func(context.Context, *Request) (*Response, error) {
			return &Response{StatusCode: http.StatusUnauthorized}, nil
		}},
		Store: store,
		Refresh: func(context.Context) (string, error) {
			<-release
			return "", errors.New("rejected")
		},
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = p.Do(context.Background(), &Request{Method: "GET", Path: "/trigger"})
	}()
	waitFor(t, "refresh to start", func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.refreshing
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Do(ctx, &Request{Method: "GET", Path: "/queued"})
		done <- err
	}()
	waitFor(t, "request to queue", func() bool { return queueLen(p) == 1 })

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("canceled caller did not return")
	}

	// Settling the abandoned cycle must not block or panic.
	close(release)
	wg.Wait()
}
