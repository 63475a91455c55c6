package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mindwell-app/mindwell-backend/internal/domain"
	"github.com/mindwell-app/mindwell-backend/internal/keypool"
	"github.com/mindwell-app/mindwell-backend/internal/observability"
)

// Dispatcher executes one upstream turn with fail-over across the
// credential pool.
//
// The rotation protocol, per attempt:
//
//	ACQUIRE: take the pool's current credential; none usable ends the
//	turn as unavailable.
//	CALL:    open the upstream call under the per-call timeout.
//	On failure, auth/permission rejections invalidate the credential.
//	Retryable failures rotate to the next credential while attempts
//	remain and nothing has reached the client yet.
//
// The one-way gate: once a single fragment has been forwarded to the
// sink, no further rotation happens; the accumulated text and the
// error are handed back so the caller can emit an in-band error event.
type Dispatcher struct {
	pool    *keypool.Pool
	llm     domain.StreamClient
	limiter *rate.Limiter
	timeout time.Duration
}

// NewDispatcher wires the dispatcher. limiter is optional; when set it
// paces every upstream attempt.
func NewDispatcher(pool *keypool.Pool, llm domain.StreamClient, timeout time.Duration, limiter *rate.Limiter) *Dispatcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Dispatcher{
		pool:    pool,
		llm:     llm,
		limiter: limiter,
		timeout: timeout,
	}
}

// sinkError marks a failure writing to the client so it is never
// mistaken for an upstream fault and retried.
type sinkError struct {
	err error
}

func (e *sinkError) Error() string { return "forwarding fragment: " + e.err.Error() }
func (e *sinkError) Unwrap() error { return e.err }

// Stream runs one conversation turn, forwarding fragments to
// onFragment in upstream order. It returns the accumulated reply text
// and how many fragments reached the sink. A non-nil error with
// sent > 0 means the stream was interrupted after output reached the
// client; with sent == 0 the caller can still produce a clean error
// response.
func (d *Dispatcher) Stream(
	ctx context.Context,
	req domain.GenerateRequest,
	onFragment func(text string) error,
) (reply string, sent int, err error) {
	var buf strings.Builder

	err = d.dispatch(ctx, func() bool { return sent > 0 }, func(callCtx context.Context, cred string) error {
		return d.llm.Stream(callCtx, cred, req, func(text string) error {
			if ferr := onFragment(text); ferr != nil {
				return &sinkError{err: ferr}
			}
			sent++
			buf.WriteString(text)
			return nil
		})
	})

	return buf.String(), sent, err
}

// Generate runs a non-streaming turn under the same rotation protocol.
func (d *Dispatcher) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	var out string
	err := d.dispatch(ctx, func() bool { return false }, func(callCtx context.Context, cred string) error {
		text, gerr := d.llm.Generate(callCtx, cred, req)
		if gerr != nil {
			return gerr
		}
		out = text
		return nil
	})
	return out, err
}

// dispatch drives the credential rotation loop. opened reports whether
// output already reached the client, which forbids further retries.
// The attempt budget equals the pool size (at least 1), so each
// credential is visited at most once per turn.
func (d *Dispatcher) dispatch(
	ctx context.Context,
	opened func() bool,
	call func(callCtx context.Context, cred string) error,
) error {
	log := observability.LoggerFromContext(ctx)

	maxAttempts := d.pool.Size()
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempts := 0; attempts < maxAttempts; attempts++ {
		cred, ok := d.pool.Current()
		if !ok {
			break
		}

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := call(callCtx, cred)
		cancel()

		if err == nil {
			return nil
		}

		// Client-side faults end the turn immediately: a broken sink or a
		// canceled request is not something another credential can fix.
		var serr *sinkError
		if errors.As(err, &serr) {
			return serr.err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		upErr := asUpstream(err)
		if upErr.InvalidatesCredential() {
			log.Warn("credential rejected by provider, removing from rotation",
				"code", upErr.Code)
			d.pool.MarkInvalid(cred)
		}

		if opened() {
			// One-way gate: bytes already reached the client.
			return upErr
		}
		if !upErr.Retryable() || attempts == maxAttempts-1 {
			return upErr
		}
		if !d.pool.Next() {
			break
		}
		log.Warn("upstream attempt failed, rotating credential",
			"attempt", attempts+1, "code", upErr.Code)
	}

	return domain.ErrNoCredentials
}

// asUpstream normalizes unclassified errors, so the dispatcher never
// depends on a particular adapter doing the mapping.
func asUpstream(err error) *domain.UpstreamError {
	var upErr *domain.UpstreamError
	if errors.As(err, &upErr) {
		return upErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.UpstreamError{Code: domain.UpstreamTransient, HTTPStatus: http.StatusGatewayTimeout, Err: err}
	}
	return &domain.UpstreamError{Code: domain.UpstreamFatal, HTTPStatus: http.StatusInternalServerError, Err: err}
}
