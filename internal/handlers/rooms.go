package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/conference-rooms/internal/metrics"
	"github.com/mossy-p/conference-rooms/internal/models"
	"github.com/mossy-p/conference-rooms/internal/rooms"
	"github.com/rs/zerolog/log"
)

// RoomHandler serves the room API and the roster event feed.
type RoomHandler struct {
	registry *rooms.Registry
	hub      *Hub
	metrics  *metrics.Metrics
}

func NewRoomHandler(registry *rooms.Registry, hub *Hub, m *metrics.Metrics) *RoomHandler {
	return &RoomHandler{registry: registry, hub: hub, metrics: m}
}

// CreateRoom handles POST /api/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Room name and host name are required"})
		return
	}

	room, err := h.registry.CreateRoom(req.RoomName, req.HostName)
	if err != nil {
		switch {
		case errors.Is(err, rooms.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Room name and host name are required"})
		case errors.Is(err, rooms.ErrAlreadyExists):
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: "Room already exists"})
		default:
			h.metrics.TokenIssued(err)
			log.Error().Str("module", "handlers.rooms").Err(err).Msg("error creating room")
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create room", Details: err.Error()})
		}
		return
	}

	h.metrics.TokenIssued(nil)
	h.metrics.RoomsCreated.Inc()
	h.metrics.RoomsActive.Set(float64(h.registry.Len()))

	c.JSON(http.StatusCreated, models.CreateRoomResponse{
		Success: true,
		Room: models.CreatedRoom{
			ID:          room.ID,
			Name:        room.Name,
			Host:        room.Host,
			CreatedAt:   models.FormatTimestamp(room.CreatedAt),
			AccessToken: room.AccessToken,
			JoinURL:     joinURL(c, room.ID),
		},
	})
}

// GetRoom handles GET /api/rooms/:roomId
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := c.Param("roomId")

	room, err := h.registry.GetRoom(roomID)
	if err != nil {
		if errors.Is(err, rooms.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Room not found"})
			return
		}
		log.Error().Str("module", "handlers.rooms").Err(err).Msg("error getting room")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get room information"})
		return
	}

	c.JSON(http.StatusOK, models.GetRoomResponse{
		Success: true,
		Room: models.RoomDetails{
			ID:           room.ID,
			Name:         room.Name,
			Host:         room.Host,
			CreatedAt:    models.FormatTimestamp(room.CreatedAt),
			Participants: room.Participants,
			JoinURL:      joinURL(c, room.ID),
		},
	})
}

// JoinRoom handles POST /api/rooms/:roomId/join
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	roomID := c.Param("roomId")

	var req models.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Participant name is required"})
		return
	}

	token, room, added, err := h.registry.JoinRoom(roomID, req.ParticipantName)
	if err != nil {
		switch {
		case errors.Is(err, rooms.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Participant name is required"})
		case errors.Is(err, rooms.ErrNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Room not found"})
		default:
			h.metrics.TokenIssued(err)
			log.Error().Str("module", "handlers.rooms").Err(err).Msg("error joining room")
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to join room", Details: err.Error()})
		}
		return
	}

	h.metrics.TokenIssued(nil)
	h.metrics.RoomJoins.Inc()

	if added {
		event := newEvent(models.EventTypeParticipantJoined, room.ID)
		event.Participant = req.ParticipantName
		event.Participants = room.Participants
		h.hub.Broadcast(event)
	}

	c.JSON(http.StatusOK, models.JoinRoomResponse{
		Success:     true,
		AccessToken: token,
		Room: models.JoinedRoom{
			ID:           room.ID,
			Name:         room.Name,
			Host:         room.Host,
			Participants: room.Participants,
		},
	})
}

// ListRooms handles GET /api/rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	summaries := h.registry.ListRooms()

	list := make([]models.RoomListItem, 0, len(summaries))
	for _, s := range summaries {
		list = append(list, models.RoomListItem{
			ID:               s.ID,
			Name:             s.Name,
			Host:             s.Host,
			CreatedAt:        models.FormatTimestamp(s.CreatedAt),
			ParticipantCount: s.ParticipantCount,
		})
	}

	c.JSON(http.StatusOK, models.ListRoomsResponse{Success: true, Rooms: list})
}

// DeleteRoom handles DELETE /api/rooms/:roomId
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	roomID := c.Param("roomId")

	if err := h.registry.DeleteRoom(roomID); err != nil {
		if errors.Is(err, rooms.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Room not found"})
			return
		}
		log.Error().Str("module", "handlers.rooms").Err(err).Msg("error deleting room")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to delete room"})
		return
	}

	h.metrics.RoomsDeleted.Inc()
	h.metrics.RoomsActive.Set(float64(h.registry.Len()))

	h.hub.Broadcast(newEvent(models.EventTypeRoomDeleted, roomID))
	h.hub.CloseRoom(roomID)

	c.JSON(http.StatusOK, models.DeleteRoomResponse{Success: true, Message: "Room deleted successfully"})
}

// joinURL builds <scheme>://<host>/room/<roomId> from the inbound request.
func joinURL(c *gin.Context, roomID string) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/room/%s", scheme, c.Request.Host, roomID)
}
