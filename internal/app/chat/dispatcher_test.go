package chat_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mindwell-app/mindwell-backend/internal/app/chat"
	"github.com/mindwell-app/mindwell-backend/internal/domain"
	"github.com/mindwell-app/mindwell-backend/internal/keypool"
)

// scriptedStep describes one upstream attempt: fragments delivered
// before err (if any) is returned.
type scriptedStep struct {
	fragments []string
	err       error
}

// scriptedLLM plays back a fixed sequence of attempt outcomes and
// records which credential each attempt used.
type scriptedLLM struct {
	mu    sync.Mutex
	steps []scriptedStep
	creds []string
}

func (f *scriptedLLM) nextStep(cred string) scriptedStep {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds = append(f.creds, cred)
	if len(f.steps) == 0 {
		return scriptedStep{err: errors.New("script exhausted")}
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	return step
}

func (f *scriptedLLM) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.creds...)
}

func (f *scriptedLLM) Stream(ctx context.Context, cred string, _ domain.GenerateRequest, onFragment func(string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	step := f.nextStep(cred)
	for _, fr := range step.fragments {
		if err := onFragment(fr); err != nil {
			return err
		}
	}
	return step.err
}

func (f *scriptedLLM) Generate(ctx context.Context, cred string, _ domain.GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	step := f.nextStep(cred)
	if step.err != nil {
		return "", step.err
	}
	var out string
	for _, fr := range step.fragments {
		out += fr
	}
	return out, nil
}

func rateLimited() error {
	return &domain.UpstreamError{Code: domain.UpstreamRateLimited, HTTPStatus: http.StatusTooManyRequests, Err: errors.New("quota exceeded")}
}

func unauthorized() error {
	return &domain.UpstreamError{Code: domain.UpstreamUnauthorized, HTTPStatus: http.StatusUnauthorized, Err: errors.New("bad key")}
}

func fatal() error {
	return &domain.UpstreamError{Code: domain.UpstreamFatal, HTTPStatus: http.StatusBadRequest, Err: errors.New("malformed request")}
}

func collectFragments(dst *[]string) func(string) error {
	return func(text string) error {
		*dst = append(*dst, text)
		return nil
	}
}

func TestStreamRetriesOnRateLimitBeforeStreaming(t *testing.T) {
	llm := &scriptedLLM{steps: []scriptedStep{
		{err: rateLimited()},
		{fragments: []string{"hello ", "there"}},
	}}
	pool := keypool.New([]string{"k1", "k2"})
	d := chat.NewDispatcher(pool, llm, 0, nil)

	var got []string
	reply, sent, err := d.Stream(context.Background(), domain.GenerateRequest{Prompt: "hi"}, collectFragments(&got))

	require.NoError(t, err)
	require.Equal(t, "hello there", reply)
	require.Equal(t, 2, sent)
	require.Equal(t, []string{"hello ", "there"}, got)
	require.Equal(t, []string{"k1", "k2"}, llm.calls())
}

func TestStreamExhaustedRetriesNeverPartialStream(t *testing.T) {
	llm := &scriptedLLM{steps: []scriptedStep{
		{err: rateLimited()},
		{err: rateLimited()},
	}}
	pool := keypool.New([]string{"k1", "k2"})
	d := chat.NewDispatcher(pool, llm, 0, nil)

	var got []string
	reply, sent, err := d.Stream(context.Background(), domain.GenerateRequest{Prompt: "hi"}, collectFragments(&got))

	require.Error(t, err)
	var upErr *domain.UpstreamError
	require.ErrorAs(t, err, &upErr)
	require.Equal(t, domain.UpstreamRateLimited, upErr.Code)
	require.Empty(t, reply)
	require.Zero(t, sent)
	require.Empty(t, got)
	// Each credential visited at most once per turn.
	require.Equal(t, []string{"k1", "k2"}, llm.calls())
}

func TestStreamUnauthorizedInvalidatesCredential(t *testing.T) {
	llm := &scriptedLLM{steps: []scriptedStep{
		{err: unauthorized()},
		{fragments: []string{"ok"}},
	}}
	pool := keypool.New([]string{"bad", "good"})
	d := chat.NewDispatcher(pool, llm, 0, nil)

	var got []string
	reply, _, err := d.Stream(context.Background(), domain.GenerateRequest{Prompt: "hi"}, collectFragments(&got))

	require.NoError(t, err)
	require.Equal(t, "ok", reply)

	// "bad" stays out of rotation for the life of the pool.
	cur, ok := pool.Current()
	require.True(t, ok)
	require.Equal(t, "good", cur)
	require.True(t, pool.Next())
	cur, _ = pool.Current()
	require.Equal(t, "good", cur)
}

func TestStreamNoRetryAfterFirstFragment(t *testing.T) {
	llm := &scriptedLLM{steps: []scriptedStep{
		{fragments: []string{"partial "}, err: rateLimited()},
		{fragments: []string{"never used"}},
	}}
	pool := keypool.New([]string{"k1", "k2"})
	d := chat.NewDispatcher(pool, llm, 0, nil)

	var got []string
	reply, sent, err := d.Stream(context.Background(), domain.GenerateRequest{Prompt: "hi"}, collectFragments(&got))

	require.Error(t, err)
	require.Equal(t, "partial ", reply)
	require.Equal(t, 1, sent)
	require.Equal(t, []string{"partial "}, got)
	require.Equal(t, []string{"k1"}, llm.calls(), "rotation after streaming started")
}

func TestStreamFatalErrorStopsImmediately(t *testing.T) {
	llm := &scriptedLLM{steps: []scriptedStep{
		{err: fatal()},
		{fragments: []string{"never used"}},
	}}
	pool := keypool.New([]string{"k1", "k2"})
	d := chat.NewDispatcher(pool, llm, 0, nil)

	var got []string
	_, sent, err := d.Stream(context.Background(), domain.GenerateRequest{Prompt: "hi"}, collectFragments(&got))

	require.Error(t, err)
	var upErr *domain.UpstreamError
	require.ErrorAs(t, err, &upErr)
	require.Equal(t, domain.UpstreamFatal, upErr.Code)
	require.Zero(t, sent)
	require.Equal(t, []string{"k1"}, llm.calls())
}

func TestStreamEmptyPoolReportsUnavailable(t *testing.T) {
	llm := &scriptedLLM{}
	d := chat.NewDispatcher(keypool.New(nil), llm, 0, nil)

	var got []string
	_, _, err := d.Stream(context.Background(), domain.GenerateRequest{Prompt: "hi"}, collectFragments(&got))

	require.ErrorIs(t, err, domain.ErrNoCredentials)
	require.Empty(t, llm.calls())
}

func TestStreamSinkFailureIsNotRetried(t *testing.T) {
	llm := &scriptedLLM{steps: []scriptedStep{
		{fragments: []string{"a", "b"}},
		{fragments: []string{"never used"}},
	}}
	pool := keypool.New([]string{"k1", "k2"})
	d := chat.NewDispatcher(pool, llm, 0, nil)

	sinkErr := errors.New("client went away")
	_, sent, err := d.Stream(context.Background(), domain.GenerateRequest{Prompt: "hi"}, func(string) error {
		return sinkErr
	})

	require.ErrorIs(t, err, sinkErr)
	require.Zero(t, sent)
	require.Equal(t, []string{"k1"}, llm.calls())
}

func TestStreamCanceledContextEndsTurn(t *testing.T) {
	llm := &scriptedLLM{steps: []scriptedStep{{fragments: []string{"never used"}}}}
	pool := keypool.New([]string{"k1"})
	d := chat.NewDispatcher(pool, llm, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got []string
	_, _, err := d.Stream(ctx, domain.GenerateRequest{Prompt: "hi"}, collectFragments(&got))
	require.ErrorIs(t, err, context.Canceled)
}

func TestGenerateRotatesLikeStream(t *testing.T) {
	llm := &scriptedLLM{steps: []scriptedStep{
		{err: rateLimited()},
		{err: unauthorized()},
		{fragments: []string{"analysis text"}},
	}}
	pool := keypool.New([]string{"k1", "k2", "k3"})
	d := chat.NewDispatcher(pool, llm, 0, nil)

	out, err := d.Generate(context.Background(), domain.GenerateRequest{Prompt: "analyze"})

	require.NoError(t, err)
	require.Equal(t, "analysis text", out)
	require.Equal(t, []string{"k1", "k2", "k3"}, llm.calls())
}

func TestGenerateAllCredentialsExhausted(t *testing.T) {
	llm := &scriptedLLM{steps: []scriptedStep{
		{err: unauthorized()},
		{err: unauthorized()},
	}}
	pool := keypool.New([]string{"k1", "k2"})
	d := chat.NewDispatcher(pool, llm, 0, nil)

	_, err := d.Generate(context.Background(), domain.GenerateRequest{Prompt: "analyze"})
	require.Error(t, err)

	// Both keys are now invalid; subsequent turns fail fast.
	_, err = d.Generate(context.Background(), domain.GenerateRequest{Prompt: "again"})
	require.ErrorIs(t, err, domain.ErrNoCredentials)
}
