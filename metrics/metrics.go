package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ActiveConnections prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	JoinsTotal        *prometheus.CounterVec
	BroadcastsTotal   *prometheus.CounterVec
	DroppedTotal      prometheus.Counter
	SnapshotFlushes   *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

func New() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "whiteboard_active_connections",
				Help: "Current number of open realtime connections",
			}),
			ActiveRooms: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "whiteboard_active_rooms",
				Help: "Current number of canvases with at least one local member",
			}),
			JoinsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "whiteboard_joins_total",
				Help: "Total number of joinCanvas requests by result",
			}, []string{"result"}),
			BroadcastsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "whiteboard_broadcasts_total",
				Help: "Total number of drawing events fanned out by event type",
			}, []string{"event"}),
			DroppedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "whiteboard_dropped_deliveries_total",
				Help: "Total number of deliveries dropped because a recipient buffer was full",
			}),
			SnapshotFlushes: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "whiteboard_snapshot_flushes_total",
				Help: "Total number of snapshot writes to the store by result",
			}, []string{"result"}),
		}
	})
	return metricsInstance
}

func (m *Metrics) ConnectionOpened() {
	if m == nil || m.ActiveConnections == nil {
		return
	}
	m.ActiveConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil || m.ActiveConnections == nil {
		return
	}
	m.ActiveConnections.Dec()
}

func (m *Metrics) SetRooms(n int) {
	if m == nil || m.ActiveRooms == nil {
		return
	}
	m.ActiveRooms.Set(float64(n))
}

func (m *Metrics) RecordJoin(result string) {
	if m == nil || m.JoinsTotal == nil {
		return
	}
	m.JoinsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordBroadcast(event string) {
	if m == nil || m.BroadcastsTotal == nil {
		return
	}
	m.BroadcastsTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) RecordDropped() {
	if m == nil || m.DroppedTotal == nil {
		return
	}
	m.DroppedTotal.Inc()
}

func (m *Metrics) RecordFlush(result string) {
	if m == nil || m.SnapshotFlushes == nil {
		return
	}
	m.SnapshotFlushes.WithLabelValues(result).Inc()
}
