package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aihub/school-assistant/internal/knowledge"
)

// MockEmbedder 嵌入协作方mock
type MockEmbedder struct {
	mock.Mock
	model string
	dims  int
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	vec, _ := args.Get(0).([]float32)
	return vec, args.Error(1)
}

func (m *MockEmbedder) Dimensions() int { return m.dims }
func (m *MockEmbedder) ModelID() string { return m.model }
func (m *MockEmbedder) Ready() bool     { return true }

// MockGenerator 生成协作方mock
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, messages []knowledge.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func (m *MockGenerator) Ready() bool { return true }
