package domain

import (
	"context"
	"time"
)

// TokenVerifier resolves an opaque bearer credential to a caller
// identity, or fails with ErrUnauthenticated.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// GenerateRequest is one upstream call: the new prompt plus prior turns.
type GenerateRequest struct {
	Prompt  string
	History []Turn
}

// StreamClient is the upstream generative-AI collaborator.
//
// Stream delivers reply fragments through onFragment in emission order;
// the sequence is lazy, finite and non-restartable. Errors from
// onFragment are returned unchanged; upstream faults are returned as
// *UpstreamError.
type StreamClient interface {
	Stream(ctx context.Context, credential string, req GenerateRequest, onFragment func(text string) error) error
	Generate(ctx context.Context, credential string, req GenerateRequest) (string, error)
}

// Enricher is the best-effort video lookup collaborator.
type Enricher interface {
	Lookup(ctx context.Context, query string) ([]Video, error)
}

// SessionStore persists sessions under a single owner key. Dual-key
// reconciliation happens above this interface.
type SessionStore interface {
	// GetSession returns ErrNotFound when the ref is absent under the key.
	GetSession(ctx context.Context, ownerKey string, ref SessionRef) (*Session, error)

	// PutSession writes a full session document.
	PutSession(ctx context.Context, ownerKey string, session *Session) error

	// AppendTurns adds turns to an existing session without touching
	// prior history (merge semantics).
	AppendTurns(ctx context.Context, ownerKey string, ref SessionRef, turns []Turn, updatedAt time.Time) error

	ListSessions(ctx context.Context, ownerKey string) ([]*Session, error)

	// DeleteSession is a no-op when the ref is absent.
	DeleteSession(ctx context.Context, ownerKey string, ref SessionRef) error
}
