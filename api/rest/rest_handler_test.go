package rest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/whiteboard/api/rest"
	"github.com/zlnvch/whiteboard/cache"
	cachemocks "github.com/zlnvch/whiteboard/cache/mocks"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/service"
	"github.com/zlnvch/whiteboard/store"
	storemocks "github.com/zlnvch/whiteboard/store/mocks"
	"github.com/zlnvch/whiteboard/worker"
)

var testSecret = []byte("secret")

var testCanvas = models.Canvas{
	Id:       "c1",
	Name:     "Sketch",
	Owner:    "alice",
	Shared:   []string{"bob"},
	Elements: []json.RawMessage{json.RawMessage(`{"id":0,"type":"line"}`)},
}

func setupHandler(t *testing.T) (*http.ServeMux, *cachemocks.MockCache, *worker.SnapshotBatcher) {
	t.Helper()
	mockStore := new(storemocks.MockStore)
	mockCache := new(cachemocks.MockCache)
	mockCache.On("GetCanvas", mock.Anything, "c1").Return(testCanvas, nil)
	mockCache.On("GetCanvas", mock.Anything, mock.Anything).Return(models.Canvas{}, cache.ErrCacheMiss)
	mockStore.On("GetCanvas", mock.Anything, mock.Anything).Return(models.Canvas{}, store.ErrItemNotFound)

	batcher := worker.NewSnapshotBatcher(mockStore, time.Hour, nil)
	h := rest.NewHandler(service.NewService(mockStore, mockCache, batcher, testSecret))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /canvas/{id}", h.HandleGetCanvas)
	mux.HandleFunc("PUT /canvas/{id}/snapshot", h.HandleSaveSnapshot)
	return mux, mockCache, batcher
}

func bearer(t *testing.T, userId string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userId,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(mux *http.ServeMux, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestGetCanvas(t *testing.T) {
	mux, _, _ := setupHandler(t)

	rec := serve(mux, http.MethodGet, "/canvas/c1", bearer(t, "bob"), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"c1","name":"Sketch","elements":[{"id":0,"type":"line"}],"history":[]}`, rec.Body.String())
}

func TestGetCanvas_Errors(t *testing.T) {
	mux, _, _ := setupHandler(t)

	tests := []struct {
		name   string
		path   string
		auth   string
		status int
	}{
		{"no token", "/canvas/c1", "", http.StatusUnauthorized},
		{"bad token", "/canvas/c1", "Bearer nope", http.StatusUnauthorized},
		{"stranger", "/canvas/c1", bearer(t, "mallory"), http.StatusForbidden},
		{"missing canvas", "/canvas/c9", bearer(t, "alice"), http.StatusNotFound},
		{"malformed id", "/canvas/bad.id", bearer(t, "alice"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, http.MethodGet, tt.path, tt.auth, "")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestSaveSnapshot_Accepted(t *testing.T) {
	mux, mockCache, batcher := setupHandler(t)
	mockCache.On("SetCanvas", mock.Anything, mock.MatchedBy(func(c models.Canvas) bool {
		return c.Id == "c1" && len(c.Elements) == 2
	})).Return(nil).Once()

	body := `{"elements":[{"id":0,"type":"line"},{"id":1,"type":"text","text":"hi"}],"history":[[]]}`
	rec := serve(mux, http.MethodPut, "/canvas/c1/snapshot", bearer(t, "alice"), body)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	select {
	case pending := <-batcher.WriteCh:
		assert.Equal(t, "c1", pending.CanvasId)
		assert.Len(t, pending.Snapshot.Elements, 2)
	default:
		assert.Fail(t, "snapshot was not queued")
	}
	mockCache.AssertExpectations(t)
}

func TestSaveSnapshot_Rejected(t *testing.T) {
	mux, mockCache, batcher := setupHandler(t)

	tests := []struct {
		name   string
		auth   string
		body   string
		status int
	}{
		{"stranger", bearer(t, "mallory"), `{"elements":[]}`, http.StatusForbidden},
		{"invalid json", bearer(t, "alice"), `{"elements":`, http.StatusBadRequest},
		{"invalid element", bearer(t, "alice"), `{"elements":[{"type":"hexagon"}]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, http.MethodPut, "/canvas/c1/snapshot", tt.auth, tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	assert.Len(t, batcher.WriteCh, 0)
	mockCache.AssertNotCalled(t, "SetCanvas", mock.Anything, mock.Anything)
}
