package genai

import (
	"context"
	"sync/atomic"

	"github.com/prepdeck/backend/internal/model"
)

// Mock is a Generator for tests. GenerateFunc supplies the behavior;
// Calls counts invocations.
type Mock struct {
	GenerateFunc func(ctx context.Context, subject, topic string) (model.Question, error)
	Calls        atomic.Int64
}

// Generate delegates to GenerateFunc.
func (m *Mock) Generate(ctx context.Context, subject, topic string) (model.Question, error) {
	m.Calls.Add(1)
	return m.GenerateFunc(ctx, subject, topic)
}
