// Package firestore is the durable storage backend. The document
// layout matches the production database:
//
//	chatbot/{ownerKey}/sessions/{ref}      conversation sessions
//	moodReports/{ownerKey}/entries/{id}    mood assessment reports
//	referrals/{id}                         counselor referrals
//	users/{id}, counselors/{id}            profiles
//
// ownerKey is either the stable subject id or the legacy email alias;
// the reconciler above this package decides which keys to touch.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mindwell-app/mindwell-backend/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store for the given project.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol(ownerKey string) *firestore.CollectionRef {
	return s.client.Collection("chatbot").Doc(ownerKey).Collection("sessions")
}

func (s *Store) sessionDoc(ownerKey string, ref domain.SessionRef) *firestore.DocumentRef {
	return s.sessionsCol(ownerKey).Doc(string(ref))
}

func (s *Store) reportsCol(ownerKey string) *firestore.CollectionRef {
	return s.client.Collection("moodReports").Doc(ownerKey).Collection("entries")
}

func (s *Store) referralDoc(id string) *firestore.DocumentRef {
	return s.client.Collection("referrals").Doc(id)
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type turnDoc struct {
	Role   string         `firestore:"role"`
	Parts  []partDoc      `firestore:"parts"`
	Videos []domain.Video `firestore:"videos,omitempty"`
}

type partDoc struct {
	Text string `firestore:"text"`
}

type sessionDoc struct {
	Prompt    string    `firestore:"prompt"`
	Reply     string    `firestore:"reply"`
	History   []turnDoc `firestore:"history"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func toTurnDocs(turns []domain.Turn) []turnDoc {
	out := make([]turnDoc, 0, len(turns))
	for _, t := range turns {
		parts := make([]partDoc, 0, len(t.Parts))
		for _, p := range t.Parts {
			parts = append(parts, partDoc{Text: p.Text})
		}
		out = append(out, turnDoc{
			Role:   string(t.Role),
			Parts:  parts,
			Videos: t.Videos,
		})
	}
	return out
}

func fromTurnDocs(docs []turnDoc) []domain.Turn {
	out := make([]domain.Turn, 0, len(docs))
	for _, d := range docs {
		parts := make([]domain.Part, 0, len(d.Parts))
		for _, p := range d.Parts {
			parts = append(parts, domain.Part{Text: p.Text})
		}
		out = append(out, domain.Turn{
			Role:   domain.Role(d.Role),
			Parts:  parts,
			Videos: d.Videos,
		})
	}
	return out
}

func fromSessionDoc(ref domain.SessionRef, doc sessionDoc) *domain.Session {
	return &domain.Session{
		Ref:       ref,
		Prompt:    doc.Prompt,
		Reply:     doc.Reply,
		Turns:     fromTurnDocs(doc.History),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) GetSession(ctx context.Context, ownerKey string, ref domain.SessionRef) (*domain.Session, error) {
	snap, err := s.sessionDoc(ownerKey, ref).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}
	return fromSessionDoc(ref, doc), nil
}

func (s *Store) PutSession(ctx context.Context, ownerKey string, session *domain.Session) error {
	doc := sessionDoc{
		Prompt:    session.Prompt,
		Reply:     session.Reply,
		History:   toTurnDocs(session.Turns),
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}

	if _, err := s.sessionDoc(ownerKey, session.Ref).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore PutSession: %w", err)
	}
	return nil
}

// AppendTurns merges new turns into the history array without touching
// prior entries.
func (s *Store) AppendTurns(ctx context.Context, ownerKey string, ref domain.SessionRef, turns []domain.Turn, updatedAt time.Time) error {
	elems := make([]any, 0, len(turns))
	for _, t := range toTurnDocs(turns) {
		elems = append(elems, t)
	}

	_, err := s.sessionDoc(ownerKey, ref).Set(ctx, map[string]any{
		"history":   firestore.ArrayUnion(elems...),
		"updatedAt": updatedAt,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("firestore AppendTurns: %w", err)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context, ownerKey string) ([]*domain.Session, error) {
	iter := s.sessionsCol(ownerKey).Documents(ctx)
	defer iter.Stop()

	var out []*domain.Session
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListSessions: %w", err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode sessionDoc: %w", err)
		}
		out = append(out, fromSessionDoc(domain.SessionRef(snap.Ref.ID), doc))
	}
	return out, nil
}

func (s *Store) DeleteSession(ctx context.Context, ownerKey string, ref domain.SessionRef) error {
	// Delete is a no-op for absent docs, matching the port contract.
	if _, err := s.sessionDoc(ownerKey, ref).Delete(ctx); err != nil {
		return fmt.Errorf("firestore DeleteSession: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// ReportStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendReport(ctx context.Context, ownerKey string, report *domain.MoodReport) error {
	if _, err := s.reportsCol(ownerKey).Doc(report.ID).Set(ctx, report); err != nil {
		return fmt.Errorf("firestore AppendReport: %w", err)
	}
	return nil
}

func (s *Store) ListReports(ctx context.Context, ownerKey string, limit int) ([]*domain.MoodReport, error) {
	q := s.reportsCol(ownerKey).OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.MoodReport
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListReports: %w", err)
		}

		var report domain.MoodReport
		if err := snap.DataTo(&report); err != nil {
			return nil, fmt.Errorf("decode moodReport: %w", err)
		}
		report.ID = snap.Ref.ID
		out = append(out, &report)
	}
	return out, nil
}

// ─────────────────────────────────────────
// ReferralStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateReferral(ctx context.Context, referral *domain.Referral) error {
	if _, err := s.referralDoc(referral.ID).Create(ctx, referral); err != nil {
		return fmt.Errorf("firestore CreateReferral: %w", err)
	}
	return nil
}

func (s *Store) GetReferral(ctx context.Context, id string) (*domain.Referral, error) {
	snap, err := s.referralDoc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetReferral: %w", err)
	}

	var referral domain.Referral
	if err := snap.DataTo(&referral); err != nil {
		return nil, fmt.Errorf("decode referral: %w", err)
	}
	referral.ID = id
	return &referral, nil
}

// UpdateReferral runs mutate inside a transaction so the status check
// and the write are atomic.
func (s *Store) UpdateReferral(ctx context.Context, id string, mutate func(*domain.Referral) error) error {
	docRef := s.referralDoc(id)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if notFound(err) {
				return domain.ErrNotFound
			}
			return err
		}

		var referral domain.Referral
		if err := snap.DataTo(&referral); err != nil {
			return fmt.Errorf("decode referral: %w", err)
		}
		referral.ID = id

		if err := mutate(&referral); err != nil {
			return err
		}
		return tx.Set(docRef, &referral)
	})
	if err != nil {
		return fmt.Errorf("firestore UpdateReferral: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// ProfileStore implementation
// ─────────────────────────────────────────

func (s *Store) GetUserProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	snap, err := s.client.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetUserProfile: %w", err)
	}

	var profile domain.UserProfile
	if err := snap.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("decode userProfile: %w", err)
	}
	profile.ID = id
	return &profile, nil
}

func (s *Store) GetCounselorProfile(ctx context.Context, id string) (*domain.CounselorProfile, error) {
	snap, err := s.client.Collection("counselors").Doc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetCounselorProfile: %w", err)
	}

	var profile domain.CounselorProfile
	if err := snap.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("decode counselorProfile: %w", err)
	}
	profile.ID = id
	return &profile, nil
}
