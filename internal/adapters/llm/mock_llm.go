package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/mindwell-app/mindwell-backend/internal/domain"
)

// MockLLM is a local stand-in for Gemini: it echoes the prompt back as
// a few fragments so streaming paths can be exercised without a key.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) reply(req domain.GenerateRequest) string {
	return fmt.Sprintf("Te escucho. Dijiste %q. Main sun raha hoon — bata, kya chal raha hai?", req.Prompt)
}

func (m *MockLLM) Stream(
	ctx context.Context,
	_ string,
	req domain.GenerateRequest,
	onFragment func(text string) error,
) error {
	for _, word := range strings.SplitAfter(m.reply(req), " ") {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onFragment(word); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockLLM) Generate(ctx context.Context, _ string, req domain.GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.reply(req), nil
}
