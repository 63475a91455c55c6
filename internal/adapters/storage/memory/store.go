// Package memory is the in-process storage backend, used in local mode
// and by tests. One Store implements every storage port.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mindwell-app/mindwell-backend/internal/domain"
)

type Store struct {
	mu sync.RWMutex

	// sessions is keyed ownerKey -> ref, mirroring the document layout
	// chatbot/{ownerKey}/sessions/{ref} of the firestore backend.
	sessions   map[string]map[domain.SessionRef]*domain.Session
	reports    map[string][]*domain.MoodReport
	referrals  map[string]*domain.Referral
	users      map[string]*domain.UserProfile
	counselors map[string]*domain.CounselorProfile
}

func NewStore() *Store {
	return &Store{
		sessions:   make(map[string]map[domain.SessionRef]*domain.Session),
		reports:    make(map[string][]*domain.MoodReport),
		referrals:  make(map[string]*domain.Referral),
		users:      make(map[string]*domain.UserProfile),
		counselors: make(map[string]*domain.CounselorProfile),
	}
}

// ─────────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────────

func (s *Store) GetSession(ctx context.Context, ownerKey string, ref domain.SessionRef) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[ownerKey][ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copySession(sess), nil
}

func (s *Store) PutSession(ctx context.Context, ownerKey string, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions[ownerKey] == nil {
		s.sessions[ownerKey] = make(map[domain.SessionRef]*domain.Session)
	}
	s.sessions[ownerKey][session.Ref] = copySession(session)
	return nil
}

func (s *Store) AppendTurns(ctx context.Context, ownerKey string, ref domain.SessionRef, turns []domain.Turn, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[ownerKey][ref]
	if !ok {
		return domain.ErrNotFound
	}
	sess.Turns = append(sess.Turns, turns...)
	sess.UpdatedAt = updatedAt
	return nil
}

func (s *Store) ListSessions(ctx context.Context, ownerKey string) ([]*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Session
	for _, sess := range s.sessions[ownerKey] {
		out = append(out, copySession(sess))
	}
	return out, nil
}

func (s *Store) DeleteSession(ctx context.Context, ownerKey string, ref domain.SessionRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions[ownerKey], ref)
	return nil
}

// ─────────────────────────────────────────────
// ReportStore implementation
// ─────────────────────────────────────────────

func (s *Store) AppendReport(ctx context.Context, ownerKey string, report *domain.MoodReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *report
	s.reports[ownerKey] = append(s.reports[ownerKey], &cp)
	return nil
}

func (s *Store) ListReports(ctx context.Context, ownerKey string, limit int) ([]*domain.MoodReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.MoodReport
	for _, r := range s.reports[ownerKey] {
		cp := *r
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────
// ReferralStore implementation
// ─────────────────────────────────────────────

func (s *Store) CreateReferral(ctx context.Context, referral *domain.Referral) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *referral
	s.referrals[referral.ID] = &cp
	return nil
}

func (s *Store) GetReferral(ctx context.Context, id string) (*domain.Referral, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.referrals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// UpdateReferral applies mutate under the store lock, giving the same
// all-or-nothing semantics as the firestore transaction.
func (s *Store) UpdateReferral(ctx context.Context, id string, mutate func(*domain.Referral) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.referrals[id]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *r
	if err := mutate(&cp); err != nil {
		return err
	}
	s.referrals[id] = &cp
	return nil
}

// ─────────────────────────────────────────────
// ProfileStore implementation
// ─────────────────────────────────────────────

func (s *Store) GetUserProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetCounselorProfile(ctx context.Context, id string) (*domain.CounselorProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.counselors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Seed helpers for local mode and tests.

func (s *Store) SeedUserProfile(p *domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.users[p.ID] = &cp
}

func (s *Store) SeedCounselorProfile(p *domain.CounselorProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.counselors[p.ID] = &cp
}

func copySession(in *domain.Session) *domain.Session {
	out := *in
	out.Turns = make([]domain.Turn, len(in.Turns))
	copy(out.Turns, in.Turns)
	return &out
}
