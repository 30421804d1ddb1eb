package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/zlnvch/whiteboard/cache"
	"github.com/zlnvch/whiteboard/mq"
)

// CanvasChangedMessage is sent by the canvas CRUD service whenever owner,
// shared users or name change, or the canvas is deleted.
type CanvasChangedMessage struct {
	CanvasId string `json:"canvasId"`
	Reason   string `json:"reason"`
}

type MQConsumer struct {
	canvasChangedQueue mq.MessageQueue
	canvasCache        cache.CanvasCache
}

func NewMQConsumer(canvasChangedQueue mq.MessageQueue, canvasCache cache.CanvasCache) *MQConsumer {
	return &MQConsumer{
		canvasChangedQueue: canvasChangedQueue,
		canvasCache:        canvasCache,
	}
}

const (
	visibilityTimeout = 30
	// A message whose canvas still fails to invalidate after this many
	// deliveries is dropped; the cache TTL bounds how long it stays stale.
	maxReceives = 5
)

func (mqConsumer *MQConsumer) Run(shutdownCtx context.Context) {
	for {
		msg, err := mqConsumer.canvasChangedQueue.Receive(shutdownCtx, visibilityTimeout)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("mqConsumer receive error: %v", err)
			continue
		}

		if msg == nil {
			continue
		}

		mqConsumer.handle(msg)
	}
}

func (mqConsumer *MQConsumer) handle(msg *mq.Message) {
	// timeout should be a little less than queue visibility timeout
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(visibilityTimeout-1)*time.Second)
	defer cancel()

	var changedMsg CanvasChangedMessage
	if err := json.Unmarshal([]byte(msg.Body), &changedMsg); err != nil || changedMsg.CanvasId == "" {
		log.Printf("Discarding malformed canvas changed message: %q", msg.Body)
		if err := mqConsumer.canvasChangedQueue.Delete(ctx, msg); err != nil {
			log.Printf("mqConsumer delete error: %v", err)
		}
		return
	}

	// Next join re-reads owner and shared users from the store
	if err := mqConsumer.canvasCache.InvalidateCanvases(ctx, []string{changedMsg.CanvasId}); err != nil {
		log.Printf("Failed to invalidate canvas %s (delivery %d): %v", changedMsg.CanvasId, msg.ReceiveCount, err)
		if msg.ReceiveCount < maxReceives {
			return
		}
		log.Printf("Giving up on canvas changed message for %s", changedMsg.CanvasId)
	}

	if err := mqConsumer.canvasChangedQueue.Delete(ctx, msg); err != nil {
		log.Printf("mqConsumer delete error: %v", err)
	}
}
