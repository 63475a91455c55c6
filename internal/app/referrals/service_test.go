package referrals_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mindwell-app/mindwell-backend/internal/adapters/storage/memory"
	"github.com/mindwell-app/mindwell-backend/internal/app/referrals"
	"github.com/mindwell-app/mindwell-backend/internal/domain"
)

func newReferralService(t *testing.T) (*referrals.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.SeedUserProfile(&domain.UserProfile{ID: "stu-1", Name: "Asha", Email: "asha@college.example"})
	store.SeedCounselorProfile(&domain.CounselorProfile{ID: "cou-1", Name: "Dr. Mehta"})
	return referrals.NewService(store, store), store
}

func TestCreateSnapshotsStudentProfile(t *testing.T) {
	svc, store := newReferralService(t)

	referral, err := svc.Create(context.Background(), referrals.CreateInput{
		StudentID: "stu-1",
		College:   "City College",
		Message:   "exam stress",
	})
	require.NoError(t, err)
	require.NotEmpty(t, referral.ID)
	require.Equal(t, "Asha", referral.StudentName)
	require.Equal(t, "asha@college.example", referral.StudentEmail)
	require.Equal(t, domain.ReferralPending, referral.Status)
	require.False(t, referral.CreatedAt.IsZero())

	stored, err := store.GetReferral(context.Background(), referral.ID)
	require.NoError(t, err)
	require.Equal(t, referral.StudentName, stored.StudentName)
}

func TestCreateUnknownStudentFails(t *testing.T) {
	svc, _ := newReferralService(t)

	_, err := svc.Create(context.Background(), referrals.CreateInput{StudentID: "ghost"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRespondAcceptRecordsCounselor(t *testing.T) {
	svc, store := newReferralService(t)
	referral, err := svc.Create(context.Background(), referrals.CreateInput{StudentID: "stu-1"})
	require.NoError(t, err)

	require.NoError(t, svc.Respond(context.Background(), referral.ID, "cou-1", referrals.ActionAccept))

	stored, err := store.GetReferral(context.Background(), referral.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReferralAccepted, stored.Status)
	require.Equal(t, "cou-1", stored.CounselorID)
	require.Equal(t, "Dr. Mehta", stored.CounselorName)
	require.NotNil(t, stored.RespondedAt)
}

func TestRespondSecondAcceptLosesRace(t *testing.T) {
	svc, _ := newReferralService(t)
	referral, err := svc.Create(context.Background(), referrals.CreateInput{StudentID: "stu-1"})
	require.NoError(t, err)

	require.NoError(t, svc.Respond(context.Background(), referral.ID, "cou-1", referrals.ActionAccept))

	err = svc.Respond(context.Background(), referral.ID, "cou-1", referrals.ActionAccept)
	require.ErrorIs(t, err, referrals.ErrAlreadyResponded)
}

func TestRespondRejectNeedsNoPendingState(t *testing.T) {
	svc, store := newReferralService(t)
	referral, err := svc.Create(context.Background(), referrals.CreateInput{StudentID: "stu-1"})
	require.NoError(t, err)

	require.NoError(t, svc.Respond(context.Background(), referral.ID, "cou-1", referrals.ActionAccept))
	require.NoError(t, svc.Respond(context.Background(), referral.ID, "cou-1", referrals.ActionReject))

	stored, err := store.GetReferral(context.Background(), referral.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReferralRejected, stored.Status)
	require.Empty(t, stored.CounselorID)
}

func TestRespondValidation(t *testing.T) {
	svc, _ := newReferralService(t)
	referral, err := svc.Create(context.Background(), referrals.CreateInput{StudentID: "stu-1"})
	require.NoError(t, err)

	err = svc.Respond(context.Background(), referral.ID, "cou-1", "approve")
	require.ErrorIs(t, err, referrals.ErrInvalidAction)

	err = svc.Respond(context.Background(), "missing-id", "cou-1", referrals.ActionAccept)
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.Respond(context.Background(), referral.ID, "unknown-counselor", referrals.ActionAccept)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
