package ai

import (
	"context"
	"errors"
)

// MockCompletionService is a configurable CompletionService for tests.
type MockCompletionService struct {
	CompleteFunc     func(ctx context.Context, messages []Message) (string, error)
	CompleteJSONFunc func(ctx context.Context, messages []Message, out any) error
}

func (m *MockCompletionService) Complete(ctx context.Context, messages []Message) (string, error) {
	if m.CompleteFunc == nil {
		return "", errors.New("mock: Complete not configured")
	}
	return m.CompleteFunc(ctx, messages)
}

func (m *MockCompletionService) CompleteJSON(ctx context.Context, messages []Message, out any) error {
	if m.CompleteJSONFunc == nil {
		return errors.New("mock: CompleteJSON not configured")
	}
	return m.CompleteJSONFunc(ctx, messages, out)
}

// MockEmbeddingService is a configurable EmbeddingService for tests.
type MockEmbeddingService struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *MockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc == nil {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return m.EmbedFunc(ctx, text)
}

var (
	_ CompletionService = (*MockCompletionService)(nil)
	_ EmbeddingService  = (*MockEmbeddingService)(nil)
)
