package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zlnvch/whiteboard/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetCanvas(ctx context.Context, canvasId string) (models.Canvas, error) {
	args := m.Called(ctx, canvasId)
	return args.Get(0).(models.Canvas), args.Error(1)
}

func (m *MockStore) SaveSnapshot(ctx context.Context, canvasId string, snapshot models.Snapshot) error {
	args := m.Called(ctx, canvasId, snapshot)
	return args.Error(0)
}
