package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/zlnvch/whiteboard/metrics"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
)

type PendingSnapshot struct {
	CanvasId string
	Snapshot models.Snapshot
}

type SnapshotBatcher struct {
	WriteCh        chan PendingSnapshot
	canvasStore    store.CanvasStore
	metrics        *metrics.Metrics
	tickerInterval time.Duration

	// enqueueMu is held for reading by senders; Run takes it for writing
	// after closing stopping, so no send can land after the final drain.
	enqueueMu sync.RWMutex
	stopping  chan struct{}
}

// ErrBatcherStopped is returned by Enqueue once Run has begun its final flush.
var ErrBatcherStopped = errors.New("snapshot batcher stopped")

const (
	maxPendingCanvases = 64
	maxFlushAttempts   = 5
	flushTimeout       = 5 * time.Second
)

// Saves for the same canvas are coalesced: only the latest snapshot queued
// before a flush is written.
func NewSnapshotBatcher(canvasStore store.CanvasStore, tickerInterval time.Duration, m *metrics.Metrics) *SnapshotBatcher {
	return &SnapshotBatcher{
		WriteCh:        make(chan PendingSnapshot, 1024), // buffer to absorb bursts
		canvasStore:    canvasStore,
		metrics:        m,
		tickerInterval: tickerInterval,
		stopping:       make(chan struct{}),
	}
}

// Enqueue hands a snapshot to Run. Once the batcher is stopping it returns
// ErrBatcherStopped instead of accepting a write that would never be flushed.
func (b *SnapshotBatcher) Enqueue(ctx context.Context, item PendingSnapshot) error {
	b.enqueueMu.RLock()
	defer b.enqueueMu.RUnlock()

	select {
	case <-b.stopping:
		return ErrBatcherStopped
	default:
	}

	select {
	case b.WriteCh <- item:
		return nil
	case <-b.stopping:
		return ErrBatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *SnapshotBatcher) Run(shutdownCtx context.Context) {
	ticker := time.NewTicker(b.tickerInterval)
	defer ticker.Stop()

	pending := make(map[string]models.Snapshot, maxPendingCanvases)
	attempts := make(map[string]int, maxPendingCanvases)

	flush := func() {
		for canvasId, snapshot := range pending {
			// Not derived from shutdownCtx so pending writes still finish on shutdown
			ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			err := b.canvasStore.SaveSnapshot(ctx, canvasId, snapshot)
			cancel()

			switch {
			case err == nil:
				b.metrics.RecordFlush("ok")
			case errors.Is(err, store.ErrItemNotFound):
				// Canvas was deleted after the save was accepted
				log.Printf("Dropping snapshot for missing canvas %s", canvasId)
				b.metrics.RecordFlush("not_found")
			default:
				attempts[canvasId]++
				if attempts[canvasId] < maxFlushAttempts {
					log.Printf("Error writing snapshot for canvas %s, will retry: %v", canvasId, err)
					b.metrics.RecordFlush("retry")
					continue
				}
				log.Printf("Giving up on snapshot for canvas %s after %d attempts: %v", canvasId, attempts[canvasId], err)
				b.metrics.RecordFlush("failed")
			}

			delete(pending, canvasId)
			delete(attempts, canvasId)
		}
	}

	enqueue := func(item PendingSnapshot) {
		pending[item.CanvasId] = item.Snapshot
		// A newer snapshot gets a fresh set of attempts
		delete(attempts, item.CanvasId)
		if len(pending) >= maxPendingCanvases {
			flush()
		}
	}

	for {
		select {
		case item := <-b.WriteCh:
			enqueue(item)

		case <-ticker.C:
			flush()

		case <-shutdownCtx.Done():
			close(b.stopping)
			// Wait out senders that got past the stopping check
			b.enqueueMu.Lock()
			b.enqueueMu.Unlock()
		drain:
			for {
				select {
				case item := <-b.WriteCh:
					enqueue(item)
				default:
					break drain
				}
			}
			flush()
			return
		}
	}
}
