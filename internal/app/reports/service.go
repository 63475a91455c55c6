// Package reports turns mood-assessment answers into a stored analysis.
package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mindwell-app/mindwell-backend/internal/app/chat"
	"github.com/mindwell-app/mindwell-backend/internal/domain"
	"github.com/mindwell-app/mindwell-backend/internal/observability"
)

type Service struct {
	dispatcher *chat.Dispatcher
	store      domain.ReportStore
	timeout    time.Duration
	now        func() time.Time
}

func NewService(dispatcher *chat.Dispatcher, store domain.ReportStore, storageTimeout time.Duration) *Service {
	if storageTimeout <= 0 {
		storageTimeout = 10 * time.Second
	}
	return &Service{
		dispatcher: dispatcher,
		store:      store,
		timeout:    storageTimeout,
		now:        time.Now,
	}
}

// Analyze runs the assessment transcript through the model under the
// same credential rotation as chat, then stores the report under the
// caller's primary key. Storage failure is logged only: the analysis
// was already produced and is returned regardless.
func (s *Service) Analyze(ctx context.Context, identity domain.Identity, answers []domain.Answer) (string, error) {
	analysis, err := s.dispatcher.Generate(ctx, domain.GenerateRequest{
		Prompt: transcript(answers),
	})
	if err != nil {
		return "", err
	}

	now := s.now()
	report := &domain.MoodReport{
		ID:        now.UTC().Format(time.RFC3339),
		Answers:   answers,
		Analysis:  analysis,
		CreatedAt: now,
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.store.AppendReport(storeCtx, identity.StableID, report); err != nil {
		observability.LoggerFromContext(ctx).Error("mood report persistence failed (non-critical)",
			"user_id", identity.StableID, "error", err)
	}

	return analysis, nil
}

// transcript formats the answers the way the model prompt expects.
func transcript(answers []domain.Answer) string {
	var b strings.Builder
	b.WriteString("The user completed a mood assessment. Review their answers and reply with a short, warm reflection on how they seem to be doing and one or two gentle suggestions.\n")
	for i, qa := range answers {
		fmt.Fprintf(&b, "\nQ%d: %s\nA%d: %s\n", i+1, qa.Question, i+1, qa.Answer)
	}
	return b.String()
}
