package store

import (
	"context"
	"errors"

	"github.com/zlnvch/whiteboard/models"
)

type CanvasStore interface {
	GetCanvas(ctx context.Context, canvasId string) (models.Canvas, error)
	// SaveSnapshot overwrites elements and history of an existing canvas.
	// Owner, shared users and name are never touched.
	SaveSnapshot(ctx context.Context, canvasId string, snapshot models.Snapshot) error
}

// ErrItemNotFound is also returned when a conditional update finds no item.
var ErrItemNotFound = errors.New("item does not exist")
