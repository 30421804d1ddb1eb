package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/service"
)

// Snapshot bodies carry whole canvases
const maxSnapshotBodyBytes = 8 << 20

type Handler struct {
	Service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{Service: svc}
}

type canvasResponse struct {
	Id       string              `json:"id"`
	Name     string              `json:"name"`
	Elements []json.RawMessage   `json:"elements"`
	History  [][]json.RawMessage `json:"history"`
}

func (h *Handler) HandleGetCanvas(w http.ResponseWriter, r *http.Request) {
	_, canvas, err := h.Service.Authorize(r.Context(), r.Header.Get("Authorization"), r.PathValue("id"))
	if err != nil {
		h.sendError(w, err)
		return
	}

	resp := canvasResponse{
		Id:       canvas.Id,
		Name:     canvas.Name,
		Elements: canvas.Elements,
		History:  canvas.History,
	}
	if resp.Elements == nil {
		resp.Elements = []json.RawMessage{}
	}
	if resp.History == nil {
		resp.History = [][]json.RawMessage{}
	}
	h.sendResponse(w, http.StatusOK, resp)
}

type saveSnapshotResponse struct {
	Success bool `json:"success"`
}

func (h *Handler) HandleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	_, canvas, err := h.Service.Authorize(r.Context(), r.Header.Get("Authorization"), r.PathValue("id"))
	if err != nil {
		h.sendError(w, err)
		return
	}

	var snapshot models.Snapshot
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSnapshotBodyBytes)).Decode(&snapshot); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.SaveSnapshot(r.Context(), canvas, snapshot); err != nil {
		h.sendError(w, err)
		return
	}

	h.sendResponse(w, http.StatusAccepted, saveSnapshotResponse{Success: true})
}

func (h *Handler) sendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredential):
		http.Error(w, "invalid token", http.StatusUnauthorized)
	case errors.Is(err, service.ErrNotAuthorized):
		http.Error(w, "not authorized", http.StatusForbidden)
	case errors.Is(err, service.ErrCanvasNotFound):
		http.Error(w, "canvas not found", http.StatusNotFound)
	case errors.Is(err, service.ErrMalformedEvent):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrUnavailable):
		w.Header().Set("Retry-After", "5")
		http.Error(w, "shutting down, retry later", http.StatusServiceUnavailable)
	default:
		log.Printf("Canvas request failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) sendResponse(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
