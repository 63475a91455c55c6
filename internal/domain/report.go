package domain

import (
	"context"
	"time"
)

// Answer is one question/answer pair from the mood assessment form.
type Answer struct {
	Question string `json:"question" firestore:"question"`
	Answer   string `json:"answer" firestore:"answer"`
}

// MoodReport is the stored result of one mood assessment: the raw
// answers plus the model's analysis.
type MoodReport struct {
	ID        string    `json:"id" firestore:"-"`
	Answers   []Answer  `json:"answers" firestore:"answers"`
	Analysis  string    `json:"analysis" firestore:"analysis"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

// ReportStore defines the minimum operations to persist mood reports.
type ReportStore interface {
	AppendReport(ctx context.Context, ownerKey string, report *MoodReport) error
	ListReports(ctx context.Context, ownerKey string, limit int) ([]*MoodReport, error)
}
