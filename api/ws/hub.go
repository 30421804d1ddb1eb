package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/zlnvch/whiteboard/cache"
	"github.com/zlnvch/whiteboard/metrics"
	"github.com/zlnvch/whiteboard/registry"
	"github.com/zlnvch/whiteboard/service"
)

const (
	publishTimeout = 2 * time.Second
	subscribeRetry = 2 * time.Second
)

// relayEnvelope wraps a broadcast for other server instances.
type relayEnvelope struct {
	Origin  string          `json:"origin"`
	Sender  string          `json:"sender"`
	Payload json.RawMessage `json:"payload"`
}

// Hub delivers room broadcasts to local clients and relays them to other
// instances over the bus. Membership is held by the registry; Run owns the
// per-room bus subscriptions.
type Hub struct {
	instanceId             string
	registry               *registry.Registry[*Client]
	bus                    cache.CanvasCache
	metrics                *metrics.Metrics
	roomChangedCh          chan string
	stopped                chan struct{}
	roomToSubscriberCancel map[string]context.CancelFunc
	subscribeRetry         time.Duration
}

// NewHub creates a hub. A nil bus keeps every broadcast on this instance.
func NewHub(reg *registry.Registry[*Client], bus cache.CanvasCache, m *metrics.Metrics) *Hub {
	return &Hub{
		instanceId:             uuid.Must(uuid.NewV4()).String(),
		registry:               reg,
		bus:                    bus,
		metrics:                m,
		roomChangedCh:          make(chan string, 1024),
		stopped:                make(chan struct{}),
		roomToSubscriberCancel: make(map[string]context.CancelFunc),
		subscribeRetry:         subscribeRetry,
	}
}

func roomChannel(canvasId string) string {
	return "canvas:" + canvasId
}

func (h *Hub) Open(client *Client) {
	h.metrics.ConnectionOpened()
}

// Close removes the client from its room. Safe to call any number of times;
// only the first call has an effect.
func (h *Hub) Close(client *Client) {
	client.closeOnce.Do(func() {
		if canvasId, left := h.registry.Leave(client); left {
			h.roomChanged(canvasId)
		}
		client.cancel()
		h.metrics.ConnectionClosed()
	})
}

// Join places the client in canvasId, leaving any previous room.
func (h *Hub) Join(client *Client, canvasId string) {
	previous, moved := h.registry.Join(client, canvasId)
	if !moved {
		return
	}
	if previous != "" {
		h.roomChanged(previous)
	}
	h.roomChanged(canvasId)
}

func (h *Hub) RoomOf(client *Client) (string, bool) {
	return h.registry.RoomOf(client.ID())
}

func (h *Hub) RoomSize(canvasId string) int {
	return h.registry.Size(canvasId)
}

func (h *Hub) roomChanged(canvasId string) {
	h.metrics.SetRooms(h.registry.Rooms())
	if h.bus == nil {
		return
	}
	select {
	case h.roomChangedCh <- canvasId:
	case <-h.stopped:
	}
}

// Broadcast delivers message to every member of canvasId except sender, on
// this instance and through the bus. Local delivery happens even when the
// relay fails.
func (h *Hub) Broadcast(canvasId string, sender *Client, message []byte) error {
	h.deliverLocal(canvasId, sender.ID(), message)

	if h.bus == nil {
		return nil
	}

	envelope, err := json.Marshal(relayEnvelope{Origin: h.instanceId, Sender: sender.ID(), Payload: message})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.bus.Publish(ctx, roomChannel(canvasId), envelope); err != nil {
		return fmt.Errorf("%w: relay to %s: %v", service.ErrTransport, canvasId, err)
	}
	return nil
}

func (h *Hub) deliverLocal(canvasId string, exceptId string, message []byte) {
	for _, member := range h.registry.MembersOf(canvasId) {
		if member.ID() == exceptId {
			continue
		}
		if !member.Deliver(message) {
			h.metrics.RecordDropped()
		}
	}
}

func (h *Hub) handleRelayed(canvasId string, messageBytes []byte) {
	var envelope relayEnvelope
	if err := json.Unmarshal(messageBytes, &envelope); err != nil {
		log.Printf("Failed to unmarshal relayed message on %s: %v", canvasId, err)
		return
	}
	// Own publications were already delivered locally
	if envelope.Origin == h.instanceId {
		return
	}
	h.deliverLocal(canvasId, envelope.Sender, envelope.Payload)
}

// Run keeps one bus subscription per room with local members. It returns when
// shutdownCtx is done.
func (h *Hub) Run(shutdownCtx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case canvasId := <-h.roomChangedCh:
			h.reconcile(shutdownCtx, canvasId)

		case <-shutdownCtx.Done():
			for canvasId, cancel := range h.roomToSubscriberCancel {
				cancel()
				delete(h.roomToSubscriberCancel, canvasId)
			}
			return
		}
	}
}

func (h *Hub) reconcile(shutdownCtx context.Context, canvasId string) {
	cancel, subscribed := h.roomToSubscriberCancel[canvasId]
	occupied := h.registry.Size(canvasId) > 0

	switch {
	case occupied && !subscribed:
		ctx, subCancel := context.WithCancel(shutdownCtx)
		channel := roomChannel(canvasId)
		err := h.bus.Subscribe(ctx, channel, func(messageBytes []byte) {
			h.handleRelayed(canvasId, messageBytes)
		})
		if err != nil {
			subCancel()
			log.Printf("Failed to create redis sub for channel %s, retrying in %v: %v", channel, h.subscribeRetry, err)
			// Reconciling again resubscribes if the room is still occupied
			time.AfterFunc(h.subscribeRetry, func() { h.roomChanged(canvasId) })
			return
		}
		h.roomToSubscriberCancel[canvasId] = subCancel

	case !occupied && subscribed:
		cancel()
		delete(h.roomToSubscriberCancel, canvasId)
	}
}
