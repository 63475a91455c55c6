// Package referrals handles the student-to-counselor referral workflow:
// a student files a request, a counselor accepts or rejects it. The
// accept path must observe a pending request and flip it atomically,
// which is why the store exposes a read-modify-write primitive.
package referrals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mindwell-app/mindwell-backend/internal/domain"
	"github.com/mindwell-app/mindwell-backend/internal/observability"
)

var (
	// ErrInvalidAction means the respond action is not accept/reject.
	ErrInvalidAction = errors.New("invalid action, must be 'accept' or 'reject'")

	// ErrAlreadyResponded means an accept raced a prior response.
	ErrAlreadyResponded = errors.New("request has already been responded to")
)

const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

type Service struct {
	store    domain.ReferralStore
	profiles domain.ProfileStore
	now      func() time.Time
}

func NewService(store domain.ReferralStore, profiles domain.ProfileStore) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		now:      time.Now,
	}
}

type CreateInput struct {
	StudentID string
	College   string
	Message   string
}

// Create files a pending referral, snapshotting the student's profile
// into the request so counselors see it without a second lookup.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Referral, error) {
	profile, err := s.profiles.GetUserProfile(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}

	referral := &domain.Referral{
		ID:           uuid.NewString(),
		StudentID:    in.StudentID,
		StudentName:  profile.Name,
		StudentEmail: profile.Email,
		College:      in.College,
		Message:      in.Message,
		Status:       domain.ReferralPending,
		CreatedAt:    s.now(),
	}

	if err := s.store.CreateReferral(ctx, referral); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info("referral created",
		"referral_id", referral.ID, "student_id", in.StudentID)
	return referral, nil
}

// Respond applies a counselor's decision. Accepting requires the
// request to still be pending; the check and the status flip happen in
// one atomic read-modify-write so two counselors cannot both accept.
func (s *Service) Respond(ctx context.Context, referralID, counselorID, action string) error {
	if action != ActionAccept && action != ActionReject {
		return ErrInvalidAction
	}

	var counselorName string
	if action == ActionAccept {
		counselor, err := s.profiles.GetCounselorProfile(ctx, counselorID)
		if err != nil {
			return err
		}
		counselorName = counselor.Name
	}

	now := s.now()
	err := s.store.UpdateReferral(ctx, referralID, func(r *domain.Referral) error {
		if action == ActionAccept {
			if r.Status != domain.ReferralPending {
				return ErrAlreadyResponded
			}
			r.Status = domain.ReferralAccepted
			r.CounselorID = counselorID
			r.CounselorName = counselorName
			r.RespondedAt = &now
			return nil
		}
		r.Status = domain.ReferralRejected
		r.CounselorID = ""
		r.CounselorName = ""
		r.RespondedAt = &now
		return nil
	})
	if err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Info("referral responded",
		"referral_id", referralID, "action", action)
	return nil
}
