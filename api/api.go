package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zlnvch/whiteboard/api/rest"
	"github.com/zlnvch/whiteboard/api/ws"
	"github.com/zlnvch/whiteboard/cache"
	"github.com/zlnvch/whiteboard/config"
	"github.com/zlnvch/whiteboard/metrics"
	"github.com/zlnvch/whiteboard/mq"
	"github.com/zlnvch/whiteboard/registry"
	"github.com/zlnvch/whiteboard/service"
	"github.com/zlnvch/whiteboard/store"
	"github.com/zlnvch/whiteboard/worker"
)

type WhiteboardAPI struct {
	restHandler *rest.Handler
	wsHandler   *ws.Handler
	wsUpgrader  websocket.Upgrader
	shutdownCtx context.Context
	stopFlush   context.CancelFunc
	workers     sync.WaitGroup
}

// NewWhiteboardAPI wires the service and starts the background workers. The
// hub and queue consumer stop when shutdownCtx is done. The snapshot batcher
// keeps accepting saves until Shutdown, so requests still draining out of the
// HTTP server are persisted.
func NewWhiteboardAPI(
	canvasStore store.CanvasStore,
	canvasChangedQueue mq.MessageQueue,
	canvasCache cache.CanvasCache,
	cfg config.Config,
	m *metrics.Metrics,
	shutdownCtx context.Context,
) *WhiteboardAPI {
	whiteboardAPI := &WhiteboardAPI{shutdownCtx: shutdownCtx}

	// Without the bus every room is local to this instance
	var bus cache.CanvasCache
	if cfg.EnableCrossInstanceBus {
		bus = canvasCache
	}
	wsHub := ws.NewHub(registry.New[*ws.Client](), bus, m)
	whiteboardAPI.goWorker(shutdownCtx, wsHub.Run)

	flushCtx, stopFlush := context.WithCancel(context.Background())
	whiteboardAPI.stopFlush = stopFlush
	snapshotBatcher := worker.NewSnapshotBatcher(canvasStore, cfg.SnapshotFlushInterval, m)
	whiteboardAPI.goWorker(flushCtx, snapshotBatcher.Run)

	if canvasChangedQueue != nil {
		mqConsumer := worker.NewMQConsumer(canvasChangedQueue, canvasCache)
		whiteboardAPI.goWorker(shutdownCtx, mqConsumer.Run)
	}

	svc := service.NewService(canvasStore, canvasCache, snapshotBatcher, cfg.JWTSecret)

	whiteboardAPI.restHandler = rest.NewHandler(svc)
	whiteboardAPI.wsHandler = ws.NewHandler(svc, wsHub, m)
	whiteboardAPI.wsUpgrader = whiteboardAPI.wsHandler.NewWsUpgrader(cfg.AllowedOrigins)

	return whiteboardAPI
}

func (whiteboardAPI *WhiteboardAPI) goWorker(ctx context.Context, run func(context.Context)) {
	whiteboardAPI.workers.Add(1)
	go func() {
		defer whiteboardAPI.workers.Done()
		run(ctx)
	}()
}

// Shutdown stops the snapshot batcher, which flushes what it holds and then
// refuses new saves, and returns once every background worker has exited.
// Call it after the HTTP server has stopped serving requests.
func (whiteboardAPI *WhiteboardAPI) Shutdown() {
	whiteboardAPI.stopFlush()
	whiteboardAPI.workers.Wait()
}

func (whiteboardAPI *WhiteboardAPI) RegisterRoutes(mux *http.ServeMux) {
	// Health check endpoint (no auth required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /canvas/{id}", whiteboardAPI.restHandler.HandleGetCanvas)
	mux.HandleFunc("PUT /canvas/{id}/snapshot", whiteboardAPI.restHandler.HandleSaveSnapshot)

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		whiteboardAPI.wsHandler.ServeWS(whiteboardAPI.wsUpgrader, w, r, whiteboardAPI.shutdownCtx)
	})
}
