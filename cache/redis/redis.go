package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zlnvch/whiteboard/cache"
	"github.com/zlnvch/whiteboard/models"
)

type RedisCanvasCache struct {
	client redis.UniversalClient
}

func NewRedisCanvasCache(ctx context.Context, devMode bool, redisEndpoint string) (*RedisCanvasCache, error) {
	var client redis.UniversalClient
	if devMode {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
			// AWS elasticache endpoints require TLS
			TLSConfig: &tls.Config{},
		})
	}

	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return NewRedisCanvasCacheFromClient(client), nil
}

func NewRedisCanvasCacheFromClient(client redis.UniversalClient) *RedisCanvasCache {
	return &RedisCanvasCache{client: client}
}

func (redisCache *RedisCanvasCache) Publish(ctx context.Context, channel string, message []byte) error {
	return redisCache.client.Publish(ctx, channel, message).Err()
}

func (redisCache *RedisCanvasCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	pubsub := redisCache.client.Subscribe(ctx, channel)
	// Ensure subscription is established
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		log.Printf("Pubsub channel closed: %s", channel)
		return err
	}

	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()

	return nil
}

// Hash tag keeps every key of one canvas in the same cluster slot
func buildCanvasKey(canvasId string) string {
	return "canvas:{" + canvasId + "}"
}

const cacheTTL = 10 * time.Minute

const (
	fieldMeta     = "meta"
	fieldElements = "elements"
	fieldHistory  = "history"
)

type canvasMeta struct {
	Id      string   `json:"id"`
	Name    string   `json:"name"`
	Owner   string   `json:"owner"`
	Shared  []string `json:"shared"`
	Updated int64    `json:"updated"`
}

// A canvas is one hash: access metadata in one field, elements and history
// in the others, so the whole thing expires together.
func (redisCache *RedisCanvasCache) GetCanvas(ctx context.Context, canvasId string) (models.Canvas, error) {
	key := buildCanvasKey(canvasId)

	values, err := redisCache.client.HGetAll(ctx, key).Result()
	if err != nil {
		return models.Canvas{}, err
	}
	metaRaw, ok := values[fieldMeta]
	if !ok {
		return models.Canvas{}, cache.ErrCacheMiss
	}

	var meta canvasMeta
	if err := json.Unmarshal([]byte(metaRaw), &meta); err != nil {
		return models.Canvas{}, fmt.Errorf("corrupt cached canvas %s: %w", canvasId, err)
	}

	canvas := models.Canvas{
		Id:       meta.Id,
		Name:     meta.Name,
		Owner:    meta.Owner,
		Shared:   meta.Shared,
		Elements: []json.RawMessage{},
		History:  [][]json.RawMessage{},
		Updated:  meta.Updated,
	}
	if raw := values[fieldElements]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &canvas.Elements); err != nil {
			return models.Canvas{}, fmt.Errorf("corrupt cached elements %s: %w", canvasId, err)
		}
	}
	if raw := values[fieldHistory]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &canvas.History); err != nil {
			return models.Canvas{}, fmt.Errorf("corrupt cached history %s: %w", canvasId, err)
		}
	}

	// Refresh TTL
	if err := redisCache.client.Expire(ctx, key, cacheTTL).Err(); err != nil {
		log.Printf("Failed to refresh TTL for canvas %s: %v", canvasId, err)
	}

	return canvas, nil
}

func (redisCache *RedisCanvasCache) SetCanvas(ctx context.Context, canvas models.Canvas) error {
	metaBytes, err := json.Marshal(canvasMeta{
		Id:      canvas.Id,
		Name:    canvas.Name,
		Owner:   canvas.Owner,
		Shared:  canvas.Shared,
		Updated: canvas.Updated,
	})
	if err != nil {
		return err
	}
	elements := canvas.Elements
	if elements == nil {
		elements = []json.RawMessage{}
	}
	elementsBytes, err := json.Marshal(elements)
	if err != nil {
		return err
	}
	history := canvas.History
	if history == nil {
		history = [][]json.RawMessage{}
	}
	historyBytes, err := json.Marshal(history)
	if err != nil {
		return err
	}

	key := buildCanvasKey(canvas.Id)
	pipe := redisCache.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fieldMeta, metaBytes, fieldElements, elementsBytes, fieldHistory, historyBytes)
	pipe.Expire(ctx, key, cacheTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (redisCache *RedisCanvasCache) InvalidateCanvases(ctx context.Context, canvasIds []string) error {
	if len(canvasIds) == 0 {
		return nil
	}

	// In Redis Cluster, keys with different hash tags hash to different slots,
	// so each canvas is deleted separately.
	for _, canvasId := range canvasIds {
		if err := redisCache.client.Del(ctx, buildCanvasKey(canvasId)).Err(); err != nil {
			return err
		}
	}

	return nil
}
