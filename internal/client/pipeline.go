package client

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline-go/internal/pkg/metrics"
)

// RefreshFunc performs the single refresh network call and returns the new
// access token. The call carries no body; the server identifies the session
// through the refresh cookie held by the transport.
type RefreshFunc func(ctx context.Context) (string, error)

// PipelineConfig configures a Pipeline. Transport, Store, and Refresh are
// required. OnSessionExpired and Logger are optional.
type PipelineConfig struct {
	Transport Transport
	Store     TokenStore
	Refresh   RefreshFunc

	// OnSessionExpired is invoked once per failed refresh cycle, after every
	// queued caller has been rejected. Typical implementations redirect the
	// user to the login entry point.
	OnSessionExpired func()

	Logger *slog.Logger
}

// Pipeline routes every outgoing request through bearer-credential attachment
// and coordinates token refresh when the server reports the credential
// expired. When many concurrent requests hit an expired credential, exactly
// one refresh call is made; the rest are queued and replayed (or rejected)
// when that single refresh settles.
type Pipeline struct {
	transport Transport
	store     TokenStore
	refresh   RefreshFunc
	onExpired func()
	logger    *slog.Logger

	mu         sync.Mutex
	refreshing bool
	queue      []*pendingCall
}

// replayOutcome is delivered to a queued caller when its refresh cycle settles.
type replayOutcome struct {
	resp *Response
	err  error
}

// pendingCall holds one request that failed authorization while a refresh was
// in flight, plus the channel its caller blocks on. The channel is buffered
// so the draining goroutine never blocks on an abandoned caller.
type pendingCall struct {
	ctx    context.Context
	req    *Request
	result chan replayOutcome
}

// NewPipeline creates a Pipeline from the given configuration.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With(slog.String("component", "client"))
	}
	return &Pipeline{
		transport: cfg.Transport,
		store:     cfg.Store,
		refresh:   cfg.Refresh,
		onExpired: cfg.OnSessionExpired,
		logger:    logger,
	}
}

// Do sends one request through the pipeline. Non-authorization failures pass
// through untouched. An authorization failure either resolves transparently
// after a refresh (the caller sees only added latency) or surfaces as a
// terminal error.
func (p *Pipeline) Do(ctx context.Context, req *Request) (*Response, error) {
	return p.do(ctx, req, 0)
}

// do sends the request with the given attempt count. The attempt count is
// carried as an argument rather than mutable request state; a request is
// retried at most once (attempt 0 -> attempt 1).
func (p *Pipeline) do(ctx context.Context, req *Request, attempt int) (*Response, error) {
	resp, err := p.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	if attempt > 0 {
		// The replayed request was rejected with the refreshed credential.
		// Queueing it again could loop forever against a permanently
		// invalid session, so it fails here.
		p.logger.Warn("request rejected after credential refresh",
			slog.String("method", req.Method),
			slog.String("path", req.Path))
		return nil, ErrCredentialRejected
	}

	return p.recover(ctx, req)
}

// send attaches the current credential, if any, and hands the request to the
// transport. The store is re-read on every send so a replay automatically
// picks up the refreshed token.
func (p *Pipeline) send(ctx context.Context, req *Request) (*Response, error) {
	token, err := p.store.Token()
	if err != nil {
		return nil, err
	}

	header := make(http.Header, len(req.Header)+2)
	for key, values := range req.Header {
		header[key] = values
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	if header.Get("X-Request-Id") == "" {
		header.Set("X-Request-Id", uuid.NewString())
	}

	attached := &Request{
		Method: req.Method,
		Path:   req.Path,
		Query:  req.Query,
		Header: header,
		Body:   req.Body,
	}

	start := time.Now()
	resp, err := p.transport.Do(ctx, attached)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	metrics.RecordRequest(req.Method, status, time.Since(start), err)
	return resp, err
}

// recover handles the first authorization failure of a request: it either
// initiates the refresh cycle or joins the one already in flight.
func (p *Pipeline) recover(ctx context.Context, req *Request) (*Response, error) {
	p.mu.Lock()
	if p.refreshing {
		// Another request already triggered the refresh. Queue this one and
		// suspend the caller until the cycle settles.
		call := &pendingCall{ctx: ctx, req: req, result: make(chan replayOutcome, 1)}
		p.queue = append(p.queue, call)
		depth := len(p.queue)
		p.mu.Unlock()

		metrics.RecordQueued(depth)
		p.logger.Debug("request queued behind in-flight refresh",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
			slog.Int("queue_depth", depth))

		select {
		case outcome := <-call.result:
			return outcome.resp, outcome.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// This request is the trigger: it owns the single refresh call. The flag
	// is set before the lock is released, so no second refresh can start.
	p.refreshing = true
	p.mu.Unlock()

	p.logger.Info("token expired, attempting refresh")

	// The refresh outcome is shared by every queued caller, so one caller's
	// cancellation must not fail the whole cycle.
	token, err := p.refresh(context.WithoutCancel(ctx))
	if err != nil {
		metrics.RecordRefresh("failure")
		p.failCycle(err)
		return nil, &RefreshError{Err: err}
	}
	metrics.RecordRefresh("success")

	// The new credential must be visible in the store before any replay.
	if err := p.store.Save(token); err != nil {
		metrics.RecordRefresh("store_error")
		p.failCycle(err)
		return nil, &RefreshError{Err: err}
	}

	p.settleCycle()

	p.logger.Info("successfully refreshed token")
	return p.do(ctx, req, 1)
}

// settleCycle completes a successful refresh: it closes the cycle and replays
// every queued request, in arrival order, with the refreshed credential.
func (p *Pipeline) settleCycle() {
	queue := p.takeQueue()
	for _, call := range queue {
		if err := call.ctx.Err(); err != nil {
			call.result <- replayOutcome{err: err}
			continue
		}
		resp, err := p.do(call.ctx, call.req, 1)
		if err != nil {
			metrics.RecordReplay("error")
		} else {
			metrics.RecordReplay("success")
		}
		call.result <- replayOutcome{resp: resp, err: err}
	}
}

// failCycle completes a failed refresh: the stored credential is cleared,
// every queued caller is rejected with the refresh error, and only then does
// the session-expired hook fire.
func (p *Pipeline) failCycle(refreshErr error) {
	if err := p.store.Clear(); err != nil {
		p.logger.Error("failed to clear credential store",
			slog.String("error", err.Error()))
	}

	queue := p.takeQueue()
	rejected := &RefreshError{Err: refreshErr}
	for _, call := range queue {
		metrics.RecordReplay("rejected")
		call.result <- replayOutcome{err: rejected}
	}

	p.logger.Error("token refresh failed",
		slog.String("error", refreshErr.Error()),
		slog.Int("rejected", len(queue)))

	if p.onExpired != nil {
		p.onExpired()
	}
}

// takeQueue atomically captures the pending queue and returns the pipeline to
// the idle state. A request that fails authorization from here on starts a
// new cycle instead of joining the one being settled.
func (p *Pipeline) takeQueue() []*pendingCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	queue := p.queue
	p.queue = nil
	p.refreshing = false
	return queue
}
