package cache

import (
	"context"
	"errors"

	"github.com/zlnvch/whiteboard/models"
)

type CanvasCache interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error

	// GetCanvas returns ErrCacheMiss when the canvas is not cached.
	GetCanvas(ctx context.Context, canvasId string) (models.Canvas, error)
	SetCanvas(ctx context.Context, canvas models.Canvas) error
	InvalidateCanvases(ctx context.Context, canvasIds []string) error
}

var ErrCacheMiss = errors.New("cache miss")
