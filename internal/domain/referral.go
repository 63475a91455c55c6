package domain

import (
	"context"
	"time"
)

// ReferralStatus tracks the approval state of a counselor referral.
type ReferralStatus string

const (
	ReferralPending  ReferralStatus = "pending"
	ReferralAccepted ReferralStatus = "accepted"
	ReferralRejected ReferralStatus = "rejected"
)

// Referral is a student's request to be connected with a counselor.
type Referral struct {
	ID           string         `json:"id" firestore:"-"`
	StudentID    string         `json:"student_id" firestore:"studentId"`
	StudentName  string         `json:"student_name" firestore:"studentName"`
	StudentEmail string         `json:"student_email" firestore:"studentEmail"`
	College      string         `json:"college" firestore:"college"`
	Message      string         `json:"message" firestore:"message"`
	Status       ReferralStatus `json:"status" firestore:"status"`

	CounselorID   string     `json:"counselor_id,omitempty" firestore:"counselorId"`
	CounselorName string     `json:"counselor_name,omitempty" firestore:"counselorName"`
	CreatedAt     time.Time  `json:"created_at" firestore:"createdAt"`
	RespondedAt   *time.Time `json:"responded_at,omitempty" firestore:"respondedAt"`
}

// UserProfile is the stored student profile a referral draws from.
type UserProfile struct {
	ID    string `firestore:"-"`
	Name  string `firestore:"name"`
	Email string `firestore:"email"`
}

// CounselorProfile identifies a counselor who can accept referrals.
type CounselorProfile struct {
	ID   string `firestore:"-"`
	Name string `firestore:"name"`
}

// ReferralStore persists referrals. UpdateReferral is the atomic
// read-modify-write the accept/reject workflow depends on: mutate is
// applied to the current document and the result written back in one
// transaction; if mutate errors, nothing is written.
type ReferralStore interface {
	CreateReferral(ctx context.Context, referral *Referral) error
	GetReferral(ctx context.Context, id string) (*Referral, error)
	UpdateReferral(ctx context.Context, id string, mutate func(*Referral) error) error
}

// ProfileStore reads the user and counselor profiles referrals reference.
type ProfileStore interface {
	GetUserProfile(ctx context.Context, id string) (*UserProfile, error)
	GetCounselorProfile(ctx context.Context, id string) (*CounselorProfile, error)
}
