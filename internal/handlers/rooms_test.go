package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossy-p/conference-rooms/config"
	"github.com/mossy-p/conference-rooms/internal/credentials"
	"github.com/mossy-p/conference-rooms/internal/metrics"
	"github.com/mossy-p/conference-rooms/internal/models"
	"github.com/mossy-p/conference-rooms/internal/rooms"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	registry *rooms.Registry
	issuer   *credentials.Issuer
	hub      *Hub
	metrics  *metrics.Metrics
}

func newTestServer(t *testing.T, lk config.LiveKitConfig) *testServer {
	t.Helper()
	cfg := &config.Config{AllowedOrigins: []string{"*"}, LiveKit: lk}
	issuer := credentials.NewIssuer(lk, false)
	registry := rooms.NewRegistry(issuer)
	hub := NewHub()
	m := metrics.New()
	return &testServer{
		router:   NewRouter(cfg, registry, issuer, hub, m),
		registry: registry,
		issuer:   issuer,
		hub:      hub,
		metrics:  m,
	}
}

func validLiveKit() config.LiveKitConfig {
	return config.LiveKitConfig{APIKey: "APIhandlerkey", APISecret: "handler-test-secret-value"}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Host = "conf.example.com"
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRoomLifecycle(t *testing.T) {
	s := newTestServer(t, validLiveKit())

	w := s.do(t, http.MethodPost, "/api/rooms", gin.H{"roomName": "standup", "hostName": "alice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.CreateRoomResponse](t, w)
	assert.True(t, created.Success)
	assert.Equal(t, "standup", created.Room.ID)
	assert.Equal(t, "standup", created.Room.Name)
	assert.Equal(t, "alice", created.Room.Host)
	assert.Equal(t, "http://conf.example.com/room/standup", created.Room.JoinURL)
	assert.NotEmpty(t, created.Room.CreatedAt)

	claims, err := s.issuer.Parse(created.Room.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "standup", claims.Video.Room)

	w = s.do(t, http.MethodGet, "/api/rooms/standup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.GetRoomResponse](t, w)
	assert.True(t, got.Success)
	assert.Equal(t, []string{"alice"}, got.Room.Participants)
	assert.Equal(t, created.Room.CreatedAt, got.Room.CreatedAt)
	assert.Equal(t, "http://conf.example.com/room/standup", got.Room.JoinURL)

	w = s.do(t, http.MethodPost, "/api/rooms/standup/join", gin.H{"participantName": "bob"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	joined := decode[models.JoinRoomResponse](t, w)
	assert.True(t, joined.Success)
	assert.Equal(t, []string{"alice", "bob"}, joined.Room.Participants)
	assert.Equal(t, "alice", joined.Room.Host)

	claims, err = s.issuer.Parse(joined.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Subject)
	assert.Equal(t, "standup", claims.Video.Room)
	assert.True(t, claims.Video.RoomJoin)

	w = s.do(t, http.MethodGet, "/api/rooms/standup", nil)
	got = decode[models.GetRoomResponse](t, w)
	assert.Equal(t, []string{"alice", "bob"}, got.Room.Participants)

	w = s.do(t, http.MethodDelete, "/api/rooms/standup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	deleted := decode[models.DeleteRoomResponse](t, w)
	assert.True(t, deleted.Success)
	assert.Equal(t, "Room deleted successfully", deleted.Message)

	w = s.do(t, http.MethodGet, "/api/rooms/standup", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Room not found", decode[models.ErrorResponse](t, w).Error)
}

func TestCreateRoomValidation(t *testing.T) {
	s := newTestServer(t, validLiveKit())

	for name, body := range map[string]any{
		"missing host": gin.H{"roomName": "standup"},
		"missing room": gin.H{"hostName": "alice"},
		"empty host":   gin.H{"roomName": "standup", "hostName": ""},
		"no body":      nil,
		"bad json":     "{",
	} {
		t.Run(name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/rooms", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Room name and host name are required", decode[models.ErrorResponse](t, w).Error)
		})
	}
	assert.Zero(t, s.registry.Len())
}

func TestCreateRoomConflict(t *testing.T) {
	s := newTestServer(t, validLiveKit())

	w := s.do(t, http.MethodPost, "/api/rooms", gin.H{"roomName": "standup", "hostName": "alice"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/api/rooms", gin.H{"roomName": "standup", "hostName": "mallory"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Room already exists", decode[models.ErrorResponse](t, w).Error)

	room, err := s.registry.GetRoom("standup")
	require.NoError(t, err)
	assert.Equal(t, "alice", room.Host)
}

func TestCreateRoomWithoutCredentials(t *testing.T) {
	s := newTestServer(t, config.LiveKitConfig{})

	w := s.do(t, http.MethodPost, "/api/rooms", gin.H{"roomName": "standup", "hostName": "alice"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[models.ErrorResponse](t, w)
	assert.Equal(t, "Failed to create room", resp.Error)
	assert.Contains(t, resp.Details, "not configured")

	assert.Zero(t, s.registry.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.TokensIssued.WithLabelValues("error")))
}

func TestJoinRoomErrors(t *testing.T) {
	s := newTestServer(t, validLiveKit())

	w := s.do(t, http.MethodPost, "/api/rooms/missing/join", gin.H{"participantName": "bob"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Room not found", decode[models.ErrorResponse](t, w).Error)

	w = s.do(t, http.MethodPost, "/api/rooms/missing/join", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Participant name is required", decode[models.ErrorResponse](t, w).Error)
}

func TestJoinRoomTwiceKeepsRoster(t *testing.T) {
	s := newTestServer(t, validLiveKit())
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/rooms", gin.H{"roomName": "standup", "hostName": "alice"}).Code)

	first := decode[models.JoinRoomResponse](t, s.do(t, http.MethodPost, "/api/rooms/standup/join", gin.H{"participantName": "bob"}))
	second := decode[models.JoinRoomResponse](t, s.do(t, http.MethodPost, "/api/rooms/standup/join", gin.H{"participantName": "bob"}))

	assert.Equal(t, first.Room.Participants, second.Room.Participants)
	assert.NotEmpty(t, second.AccessToken)
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.RoomJoins))
}

func TestListRooms(t *testing.T) {
	s := newTestServer(t, validLiveKit())

	w := s.do(t, http.MethodGet, "/api/rooms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"rooms":[]}`, w.Body.String())

	for _, id := range []string{"a", "b", "c"} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/rooms", gin.H{"roomName": id, "hostName": "host"}).Code)
	}
	s.do(t, http.MethodPost, "/api/rooms/a/join", gin.H{"participantName": "bob"})
	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/rooms/b", nil).Code)

	list := decode[models.ListRoomsResponse](t, s.do(t, http.MethodGet, "/api/rooms", nil))
	assert.True(t, list.Success)
	require.Len(t, list.Rooms, 2)
	assert.Equal(t, "a", list.Rooms[0].ID)
	assert.Equal(t, 2, list.Rooms[0].ParticipantCount)
	assert.Equal(t, "c", list.Rooms[1].ID)
	assert.Equal(t, 1, list.Rooms[1].ParticipantCount)

	assert.Equal(t, 3.0, testutil.ToFloat64(s.metrics.RoomsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.RoomsDeleted))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.RoomsActive))
}

func TestDeleteMissingRoom(t *testing.T) {
	s := newTestServer(t, validLiveKit())

	w := s.do(t, http.MethodDelete, "/api/rooms/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Room not found", decode[models.ErrorResponse](t, w).Error)
}

func TestJoinURLScheme(t *testing.T) {
	s := newTestServer(t, validLiveKit())

	body, err := json.Marshal(gin.H{"roomName": "standup", "hostName": "alice"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/rooms", bytes.NewReader(body))
	req.Host = "meet.example.com:8443"
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "https://meet.example.com:8443/room/standup", decode[models.CreateRoomResponse](t, w).Room.JoinURL)
}
