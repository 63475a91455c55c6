// Package sessions reconciles conversation history across the two
// addressing schemes a caller's data may live under: the stable
// subject id (primary key) and the pre-migration email alias (legacy
// key). Reads merge both copies; writes attach to whichever copy
// exists so history is never forked or silently lost.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mindwell-app/mindwell-backend/internal/domain"
	"github.com/mindwell-app/mindwell-backend/internal/observability"
)

type Reconciler struct {
	store   domain.SessionStore
	timeout time.Duration
	now     func() time.Time
}

func NewReconciler(store domain.SessionStore, storageTimeout time.Duration) *Reconciler {
	if storageTimeout <= 0 {
		storageTimeout = 10 * time.Second
	}
	return &Reconciler{
		store:   store,
		timeout: storageTimeout,
		now:     time.Now,
	}
}

// AppendTurns appends a completed turn pair to durable storage.
//
// With a ref, the session is looked up under the primary key first and
// the legacy key second, and the turns attach to whichever copy exists
// (add-only, prior turns untouched). When neither copy exists, or no
// ref was given, a fresh session is created under the primary key.
// The ref actually used is returned; callers pass a pre-generated ref
// when they need it before persistence completes.
func (r *Reconciler) AppendTurns(
	ctx context.Context,
	identity domain.Identity,
	ref domain.SessionRef,
	turns []domain.Turn,
) (domain.SessionRef, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	now := r.now()

	if ref == "" {
		ref = NewRef(now)
		return ref, r.create(ctx, identity.StableID, ref, turns, now)
	}

	ownerKey, found, err := r.locate(ctx, identity, ref)
	if err != nil {
		return ref, err
	}
	if !found {
		return ref, r.create(ctx, identity.StableID, ref, turns, now)
	}

	if err := r.store.AppendTurns(ctx, ownerKey, ref, turns, now); err != nil {
		return ref, fmt.Errorf("appending turns to %s: %w", ref, err)
	}
	return ref, nil
}

// locate finds which key a session lives under, primary first.
func (r *Reconciler) locate(ctx context.Context, identity domain.Identity, ref domain.SessionRef) (string, bool, error) {
	for _, key := range identity.Keys() {
		_, err := r.store.GetSession(ctx, key, ref)
		if err == nil {
			return key, true, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", false, fmt.Errorf("locating session %s: %w", ref, err)
		}
	}
	return "", false, nil
}

func (r *Reconciler) create(ctx context.Context, ownerKey string, ref domain.SessionRef, turns []domain.Turn, now time.Time) error {
	session := &domain.Session{
		Ref:       ref,
		Prompt:    firstText(turns, domain.RoleUser),
		Reply:     firstText(turns, domain.RoleModel),
		Turns:     turns,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.PutSession(ctx, ownerKey, session); err != nil {
		return fmt.Errorf("creating session %s: %w", ref, err)
	}
	return nil
}

// List reads under both keys and returns the merged history, newest
// first. Sessions missing a createdAt sort by the instant encoded in a
// timestamp-shaped ref, falling back to now; that fallback only
// affects display order.
func (r *Reconciler) List(ctx context.Context, identity domain.Identity) ([]*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	primary, err := r.store.ListSessions(ctx, identity.StableID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions under primary key: %w", err)
	}

	var legacy []*domain.Session
	if identity.LegacyAlias != "" {
		legacy, err = r.store.ListSessions(ctx, identity.LegacyAlias)
		if err != nil {
			return nil, fmt.Errorf("listing sessions under legacy key: %w", err)
		}
	}

	merged := Merge(primary, legacy)

	now := r.now()
	sort.SliceStable(merged, func(i, j int) bool {
		return effectiveCreatedAt(merged[i], now).After(effectiveCreatedAt(merged[j], now))
	})
	return merged, nil
}

// Merge combines the two key spaces by session reference. The
// primary-key copy wins on conflict, unless it lacks a createdAt the
// legacy copy has; then the more complete legacy copy is kept.
func Merge(primary, legacy []*domain.Session) []*domain.Session {
	byRef := make(map[domain.SessionRef]*domain.Session, len(primary)+len(legacy))
	var order []domain.SessionRef

	for _, s := range primary {
		byRef[s.Ref] = s
		order = append(order, s.Ref)
	}
	for _, s := range legacy {
		existing, ok := byRef[s.Ref]
		if !ok {
			byRef[s.Ref] = s
			order = append(order, s.Ref)
			continue
		}
		if existing.CreatedAt.IsZero() && !s.CreatedAt.IsZero() {
			byRef[s.Ref] = s
		}
	}

	out := make([]*domain.Session, 0, len(order))
	for _, ref := range order {
		out = append(out, byRef[ref])
	}
	return out
}

func effectiveCreatedAt(s *domain.Session, now time.Time) time.Time {
	if !s.CreatedAt.IsZero() {
		return s.CreatedAt
	}
	if t, ok := RefTime(s.Ref); ok {
		return t
	}
	return now
}

// Get returns the session under either key, primary first.
func (r *Reconciler) Get(ctx context.Context, identity domain.Identity, ref domain.SessionRef) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for _, key := range identity.Keys() {
		session, err := r.store.GetSession(ctx, key, ref)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("getting session %s: %w", ref, err)
		}
	}
	return nil, domain.ErrNotFound
}

// Delete removes the session under both keys concurrently. Absence
// under either key is not an error.
func (r *Reconciler) Delete(ctx context.Context, identity domain.Identity, ref domain.SessionRef) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	keys := identity.Keys()
	errs := make([]error, len(keys))

	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			if err := r.store.DeleteSession(ctx, key, ref); err != nil && !errors.Is(err, domain.ErrNotFound) {
				errs[i] = err
			}
		}(i, key)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("deleting session %s: %w", ref, err)
	}
	return nil
}

// PersistTurn is the fire-and-forget variant of AppendTurns used after
// a reply has already been streamed: it runs detached from the request
// context under its own bounded timeout, and failures are logged, never
// surfaced: the turn already succeeded from the caller's perspective.
// The returned channel closes when the attempt finishes.
func (r *Reconciler) PersistTurn(
	ctx context.Context,
	identity domain.Identity,
	ref domain.SessionRef,
	turns []domain.Turn,
) <-chan struct{} {
	log := observability.LoggerFromContext(ctx).With("session_ref", ref)
	detached := context.WithoutCancel(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := r.AppendTurns(detached, identity, ref, turns); err != nil {
			log.Error("session persistence failed (non-critical)", "error", err)
		}
	}()
	return done
}

func firstText(turns []domain.Turn, role domain.Role) string {
	for _, t := range turns {
		if t.Role == role {
			return t.Text()
		}
	}
	return ""
}
