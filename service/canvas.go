package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/zlnvch/whiteboard/cache"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
	"github.com/zlnvch/whiteboard/worker"
)

// LoadCanvas reads through the cache. Cache failures fall back to the store.
func (s *Service) LoadCanvas(ctx context.Context, canvasId string) (models.Canvas, error) {
	if err := ValidateCanvasId(canvasId); err != nil {
		return models.Canvas{}, err
	}

	canvas, err := s.Cache.GetCanvas(ctx, canvasId)
	if err == nil {
		return canvas, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("Cache read failed for canvas %s: %v", canvasId, err)
	}

	canvas, err = s.Store.GetCanvas(ctx, canvasId)
	if errors.Is(err, store.ErrItemNotFound) {
		return models.Canvas{}, ErrCanvasNotFound
	}
	if err != nil {
		return models.Canvas{}, fmt.Errorf("load canvas %s: %w", canvasId, err)
	}

	if err := s.Cache.SetCanvas(ctx, canvas); err != nil {
		log.Printf("Cache fill failed for canvas %s: %v", canvasId, err)
	}

	return canvas, nil
}

// SaveSnapshot queues the write to the store and replaces the cached canvas
// contents. canvas must already be authorized. Once the snapshot batcher is
// stopping it returns ErrUnavailable and touches nothing.
func (s *Service) SaveSnapshot(ctx context.Context, canvas models.Canvas, snapshot models.Snapshot) error {
	if err := ValidateSnapshot(snapshot); err != nil {
		return err
	}

	canvas.Elements = snapshot.Elements
	canvas.History = snapshot.History
	canvas.Updated = time.Now().UnixMilli()

	// Queue first: a refused write must not leave the cache ahead of the store
	err := s.SnapshotBatcher.Enqueue(ctx, worker.PendingSnapshot{CanvasId: canvas.Id, Snapshot: snapshot})
	if errors.Is(err, worker.ErrBatcherStopped) {
		return ErrUnavailable
	}
	if err != nil {
		return err
	}

	if err := s.Cache.SetCanvas(ctx, canvas); err != nil {
		// The store write still lands; the next load refills the cache.
		log.Printf("Cache write failed for canvas %s: %v", canvas.Id, err)
		if err := s.Cache.InvalidateCanvases(ctx, []string{canvas.Id}); err != nil {
			log.Printf("Cache invalidate failed for canvas %s: %v", canvas.Id, err)
		}
	}

	return nil
}
