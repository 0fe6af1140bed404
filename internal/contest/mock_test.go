package contest

import (
	"context"

	"github.com/LPDavidbdeb/court-sub000/internal/llm"
)

// MockLLM returns canned responses. ResponseQueue, when set, is consumed one
// response per call before falling back to Response.
type MockLLM struct {
	Response      string
	ResponseQueue []string
	Err           error
	Prompts       []string
}

func (m *MockLLM) next(prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		r := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return r, nil
	}
	return m.Response, nil
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return m.next(prompt)
}

func (m *MockLLM) GenerateJSON(ctx context.Context, prompt, model string, temperature float32) (string, error) {
	return m.next(prompt)
}

func (m *MockLLM) GenerateVision(ctx context.Context, prompt string, images []llm.Image) (string, error) {
	return m.next(prompt)
}
