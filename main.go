package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zlnvch/whiteboard/api"
	"github.com/zlnvch/whiteboard/cache/redis"
	"github.com/zlnvch/whiteboard/config"
	"github.com/zlnvch/whiteboard/metrics"
	"github.com/zlnvch/whiteboard/mq/sqsmq"
	"github.com/zlnvch/whiteboard/store/dynamo"
)

const shutdownGrace = 10 * time.Second

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	canvasStore, err := dynamo.NewDynamoCanvasStore(ctx, cfg.DevMode, cfg.DynamoDBEndpoint, cfg.DynamoDBTable)
	if err != nil {
		log.Fatalf("Failed to create dynamodb store: %v", err)
	}

	canvasChangedQueue, err := sqsmq.NewSQSMessageQueue(ctx, cfg.DevMode, cfg.SQSEndpoint, cfg.CanvasChangedQueue)
	if err != nil {
		log.Fatalf("Failed to create SQS MQ: %v", err)
	}

	canvasCache, err := redis.NewRedisCanvasCache(ctx, cfg.DevMode, cfg.RedisEndpoint)
	if err != nil {
		log.Fatalf("Failed to create redis cache: %v", err)
	}

	shutdownCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	whiteboardApi := api.NewWhiteboardAPI(canvasStore, canvasChangedQueue, canvasCache, cfg, metrics.New(), shutdownCtx)

	mux := http.NewServeMux()
	whiteboardApi.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    ":" + cfg.HostPort,
		Handler: mux,
	}

	go func() {
		log.Printf("Starting server on host port: %s\n", cfg.HostPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	log.Printf("Server shutting down...")

	// Hijacked websocket connections are closed by their pumps, not by Shutdown
	graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(graceCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	// Only now: saves from requests drained by Shutdown above must still flush
	whiteboardApi.Shutdown()
	log.Printf("Pending snapshots flushed")
}
