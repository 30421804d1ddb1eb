package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zlnvch/whiteboard/models"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Publish(ctx context.Context, channel string, message []byte) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

func (m *MockCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

func (m *MockCache) GetCanvas(ctx context.Context, canvasId string) (models.Canvas, error) {
	args := m.Called(ctx, canvasId)
	return args.Get(0).(models.Canvas), args.Error(1)
}

func (m *MockCache) SetCanvas(ctx context.Context, canvas models.Canvas) error {
	args := m.Called(ctx, canvas)
	return args.Error(0)
}

func (m *MockCache) InvalidateCanvases(ctx context.Context, canvasIds []string) error {
	args := m.Called(ctx, canvasIds)
	return args.Error(0)
}
