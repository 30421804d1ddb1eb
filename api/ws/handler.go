package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zlnvch/whiteboard/metrics"
	"github.com/zlnvch/whiteboard/service"
)

const (
	subprotocol = "whiteboard-v1"
	joinTimeout = 5 * time.Second
)

// Event names
const (
	eventJoinCanvas      = "joinCanvas"
	eventLoadCanvas      = "loadCanvas"
	eventUnauthorized    = "unauthorized"
	eventDrawing         = "drawing"
	eventDrawingUpdate   = "drawingUpdate"
	eventDrawingComplete = "drawingComplete"
	eventError           = "error"
)

// Messages sent back to the client
const (
	msgNoToken           = "Access Denied: No Token"
	msgInvalidToken      = "Access Denied: Invalid Token"
	msgCanvasNotFound    = "Canvas not found"
	msgNotAuthorized     = "You are not authorized to join this canvas"
	msgJoinFailed        = "An error occurred while joining the canvas"
	msgDrawingFailed     = "Failed to broadcast drawing"
	msgCompleteFailed    = "Failed to broadcast completed drawing"
	msgNotInCanvas       = "Join the canvas before drawing"
	msgInvalidElement    = "Invalid element"
	msgInvalidMessage    = "Invalid message format"
	msgUnknownEvent      = "Unknown event type"
	msgInternalError     = "Internal server error"
	msgUnsupportedFrames = "Only text messages are supported"
)

type Handler struct {
	Service *service.Service
	Hub     *Hub
	Metrics *metrics.Metrics
}

func NewHandler(svc *service.Service, hub *Hub, m *metrics.Metrics) *Handler {
	return &Handler{
		Service: svc,
		Hub:     hub,
		Metrics: m,
	}
}

// NewWsUpgrader accepts requests without an Origin header (non-browser
// clients) and requests from one of allowedOrigins.
func (h *Handler) NewWsUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, origin)
		},
		Subprotocols: []string{subprotocol},
	}
}

// handshakeToken reads the credential from the Authorization header, or from
// the second Sec-WebSocket-Protocol entry since browsers cannot set headers.
func handshakeToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return service.BearerToken(auth)
	}

	protocols := strings.Split(r.Header.Get("Sec-WebSocket-Protocol"), ",")
	if len(protocols) == 2 && strings.TrimSpace(protocols[0]) == subprotocol {
		return service.BearerToken(protocols[1])
	}
	return ""
}

// ServeWS handles websocket requests from the peer. A missing or invalid
// credential does not refuse the upgrade: the connection stays
// unauthenticated and every join is answered with unauthorized.
func (h *Handler) ServeWS(wsUpgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request, shutdownCtx context.Context) {
	token := handshakeToken(r)

	identity, authErr := h.Service.AuthenticateToken(token)
	if authErr != nil && !errors.Is(authErr, service.ErrMissingCredential) {
		log.Printf("WS handshake with invalid credential: %v", authErr)
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade ws connection: %v", err)
		return
	}

	client := NewClient(h.Hub, conn, token, identity, h.HandleWsMessage)
	h.Hub.Open(client)

	// Start pumps
	go client.ReadPump()
	go client.WritePump(shutdownCtx)
}

// Websocket message structs
type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinMessage struct {
	CanvasId string `json:"canvasId"`
}

type drawingMessage struct {
	CanvasId string          `json:"canvasId"`
	Element  json.RawMessage `json:"element"`
}

type responseMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type errorData struct {
	Message string `json:"message"`
}

// HandleWsMessage runs on the client's read goroutine, so events from one
// connection are handled one at a time and in order.
func (h *Handler) HandleWsMessage(client *Client, messageType int, messageBytes []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic handling message from %s (user %q): %v", client.ID(), client.UserId(), r)
			h.sendToClient(client, eventError, errorData{Message: msgInternalError})
		}
	}()

	if messageType != websocket.TextMessage {
		h.sendToClient(client, eventError, errorData{Message: msgUnsupportedFrames})
		return
	}

	var msg message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		log.Printf("Invalid JSON: %v", err)
		h.sendToClient(client, eventError, errorData{Message: msgInvalidMessage})
		return
	}

	switch msg.Type {
	case eventJoinCanvas:
		h.handleJoinCanvas(client, msg.Data)

	case eventDrawing:
		h.handleDrawing(client, msg.Data, eventDrawingUpdate, msgDrawingFailed)

	case eventDrawingComplete:
		h.handleDrawing(client, msg.Data, eventDrawingComplete, msgCompleteFailed)

	default:
		log.Printf("Unknown message type: %v", msg.Type)
		h.sendToClient(client, eventError, errorData{Message: msgUnknownEvent})
	}
}

func (h *Handler) handleJoinCanvas(client *Client, data json.RawMessage) {
	var joinMsg joinMessage
	if err := json.Unmarshal(data, &joinMsg); err != nil {
		log.Printf("Invalid joinCanvas data: %v", err)
		h.sendToClient(client, eventError, errorData{Message: msgJoinFailed})
		return
	}

	ctx, cancel := context.WithTimeout(client.ctx, joinTimeout)
	defer cancel()

	identity, canvas, err := h.Service.Authorize(ctx, client.credential, joinMsg.CanvasId)
	if err != nil {
		h.rejectJoin(client, joinMsg.CanvasId, err)
		return
	}

	client.identity = identity
	h.Hub.Join(client, canvas.Id)
	h.Metrics.RecordJoin("ok")
	log.Printf("User %s joined canvas %s on connection %s", client.UserId(), canvas.Id, client.ID())

	elements := canvas.Elements
	if elements == nil {
		elements = []json.RawMessage{}
	}
	h.sendToClient(client, eventLoadCanvas, elements)
}

// rejectJoin answers a failed join. The client keeps whatever room it had.
func (h *Handler) rejectJoin(client *Client, canvasId string, err error) {
	var reason string
	switch {
	case errors.Is(err, service.ErrMissingCredential):
		reason = msgNoToken
	case errors.Is(err, service.ErrInvalidCredential):
		reason = msgInvalidToken
	case errors.Is(err, service.ErrCanvasNotFound):
		reason = msgCanvasNotFound
	case errors.Is(err, service.ErrNotAuthorized):
		reason = msgNotAuthorized
	default:
		log.Printf("Error joining canvas %s for user %q: %v", canvasId, client.UserId(), err)
		h.Metrics.RecordJoin("error")
		h.sendToClient(client, eventError, errorData{Message: msgJoinFailed})
		return
	}

	log.Printf("Join of canvas %s refused for user %q: %v", canvasId, client.UserId(), err)
	h.Metrics.RecordJoin("unauthorized")
	h.sendToClient(client, eventUnauthorized, errorData{Message: reason})
}

func (h *Handler) handleDrawing(client *Client, data json.RawMessage, outEvent string, failMessage string) {
	var drawMsg drawingMessage
	if err := json.Unmarshal(data, &drawMsg); err != nil {
		log.Printf("Invalid %s data: %v", outEvent, err)
		h.sendToClient(client, eventError, errorData{Message: failMessage})
		return
	}

	room, inRoom := h.Hub.RoomOf(client)
	if !inRoom || room != drawMsg.CanvasId {
		h.sendToClient(client, eventError, errorData{Message: msgNotInCanvas})
		return
	}

	if _, err := service.ValidateElement(drawMsg.Element); err != nil {
		log.Printf("Rejected element from user %s on canvas %s: %v", client.UserId(), room, err)
		h.sendToClient(client, eventError, errorData{Message: msgInvalidElement})
		return
	}

	// The element is relayed exactly as the client sent it
	out, err := json.Marshal(responseMessage{Type: outEvent, Data: drawMsg.Element})
	if err != nil {
		log.Printf("Error marshaling %s: %v", outEvent, err)
		h.sendToClient(client, eventError, errorData{Message: failMessage})
		return
	}

	if err := h.Hub.Broadcast(room, client, out); err != nil {
		log.Printf("Broadcast on canvas %s failed: %v", room, err)
		h.sendToClient(client, eventError, errorData{Message: failMessage})
		return
	}
	h.Metrics.RecordBroadcast(outEvent)
}

func (h *Handler) sendToClient(client *Client, eventType string, data any) {
	respBytes, err := json.Marshal(responseMessage{Type: eventType, Data: data})
	if err != nil {
		log.Printf("Error marshaling response JSON: %v", err)
		return
	}
	if !client.Deliver(respBytes) {
		h.Metrics.RecordDropped()
	}
}
