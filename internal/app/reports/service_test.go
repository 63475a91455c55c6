package reports_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mindwell-app/mindwell-backend/internal/adapters/llm"
	"github.com/mindwell-app/mindwell-backend/internal/adapters/storage/memory"
	"github.com/mindwell-app/mindwell-backend/internal/app/chat"
	"github.com/mindwell-app/mindwell-backend/internal/app/reports"
	"github.com/mindwell-app/mindwell-backend/internal/domain"
	"github.com/mindwell-app/mindwell-backend/internal/keypool"
)

var answers = []domain.Answer{
	{Question: "How did you sleep this week?", Answer: "Restlessly"},
	{Question: "How is your appetite?", Answer: "Normal"},
}

func newReportService(keys []string) (*reports.Service, *memory.Store) {
	store := memory.NewStore()
	dispatcher := chat.NewDispatcher(keypool.New(keys), llm.NewMockLLM(), 0, nil)
	return reports.NewService(dispatcher, store, 0), store
}

func TestAnalyzeStoresReportUnderPrimaryKey(t *testing.T) {
	svc, store := newReportService([]string{"k1"})
	id := domain.Identity{StableID: "u1", LegacyAlias: "u1@old.example"}

	analysis, err := svc.Analyze(context.Background(), id, answers)
	require.NoError(t, err)
	require.NotEmpty(t, analysis)

	got, err := store.ListReports(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, analysis, got[0].Analysis)
	require.Equal(t, answers, got[0].Answers)

	legacy, err := store.ListReports(context.Background(), "u1@old.example", 0)
	require.NoError(t, err)
	require.Empty(t, legacy)
}

func TestAnalyzeTranscriptIncludesEveryAnswer(t *testing.T) {
	svc, _ := newReportService([]string{"k1"})

	// The mock model echoes the prompt, so the transcript formatting is
	// visible in the returned analysis.
	analysis, err := svc.Analyze(context.Background(), domain.Identity{StableID: "u1"}, answers)
	require.NoError(t, err)
	require.Contains(t, analysis, "Q1: How did you sleep this week?")
	require.Contains(t, analysis, "A2: Normal")
}

func TestAnalyzeFailsWithoutCredentials(t *testing.T) {
	svc, store := newReportService(nil)

	_, err := svc.Analyze(context.Background(), domain.Identity{StableID: "u1"}, answers)
	require.ErrorIs(t, err, domain.ErrNoCredentials)

	got, lerr := store.ListReports(context.Background(), "u1", 0)
	require.NoError(t, lerr)
	require.Empty(t, got)
}
