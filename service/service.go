package service

import (
	"github.com/zlnvch/whiteboard/cache"
	"github.com/zlnvch/whiteboard/store"
	"github.com/zlnvch/whiteboard/worker"
)

type Service struct {
	Store           store.CanvasStore
	Cache           cache.CanvasCache
	SnapshotBatcher *worker.SnapshotBatcher
	JWTSecret       []byte
}

func NewService(
	store store.CanvasStore,
	cache cache.CanvasCache,
	snapshotBatcher *worker.SnapshotBatcher,
	jwtSecret []byte,
) *Service {
	return &Service{
		Store:           store,
		Cache:           cache,
		SnapshotBatcher: snapshotBatcher,
		JWTSecret:       jwtSecret,
	}
}
