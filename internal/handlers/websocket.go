package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/conference-rooms/internal/models"
	"github.com/mossy-p/conference-rooms/internal/rooms"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Watcher is a websocket connection subscribed to one room's roster events.
type Watcher struct {
	RoomID string
	Conn   *websocket.Conn
	Send   chan []byte
	once   sync.Once
}

func (w *Watcher) close() {
	w.once.Do(func() { close(w.Send) })
}

// Hub fans roster events out to the watchers of each room.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*Watcher]struct{}
}

func NewHub() *Hub {
	return &Hub{watchers: make(map[string]map[*Watcher]struct{})}
}

// add registers w and queues the snapshot as its first message. The
// snapshot is taken under the hub lock so no later broadcast can be missed.
func (h *Hub) add(w *Watcher, snapshot func() (models.RoomEvent, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	event, err := snapshot()
	if err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	w.Send <- data

	set, ok := h.watchers[w.RoomID]
	if !ok {
		set = make(map[*Watcher]struct{})
		h.watchers[w.RoomID] = set
	}
	set[w] = struct{}{}
	return nil
}

func (h *Hub) remove(w *Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[w.RoomID]
	if !ok {
		return
	}
	if _, ok := set[w]; !ok {
		return
	}
	delete(set, w)
	w.close()
	if len(set) == 0 {
		delete(h.watchers, w.RoomID)
	}
}

// Watchers returns how many connections watch roomID.
func (h *Hub) Watchers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[roomID])
}

// Broadcast sends event to every watcher of event.RoomID. A watcher whose
// buffer is full misses the event.
func (h *Hub) Broadcast(event models.RoomEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Str("module", "handlers.hub").Err(err).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for w := range h.watchers[event.RoomID] {
		select {
		case w.Send <- data:
		default:
			log.Warn().Str("module", "handlers.hub").Str("room", event.RoomID).Msg("watcher buffer full, dropping event")
		}
	}
}

// CloseRoom disconnects every watcher of roomID.
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers[roomID] {
		w.close()
	}
	delete(h.watchers, roomID)
}

func newEvent(t models.EventType, roomID string) models.RoomEvent {
	return models.RoomEvent{
		Type:      t,
		RoomID:    roomID,
		Timestamp: models.FormatTimestamp(time.Now()),
	}
}

// WatchRoom upgrades the request to a websocket that streams roster events
// for the room. The first message is always a roster snapshot.
func (h *RoomHandler) WatchRoom(c *gin.Context) {
	roomID := c.Param("roomId")

	if _, err := h.registry.GetRoom(roomID); err != nil {
		if errors.Is(err, rooms.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to watch room"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Str("module", "handlers.ws").Err(err).Msg("failed to upgrade connection")
		return
	}

	w := &Watcher{
		RoomID: roomID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
	}
	err = h.hub.add(w, func() (models.RoomEvent, error) {
		room, err := h.registry.GetRoom(roomID)
		if err != nil {
			return models.RoomEvent{}, err
		}
		snap := newEvent(models.EventTypeRoster, roomID)
		snap.Participants = room.Participants
		return snap, nil
	})
	if err != nil {
		// The room went away between the lookup and the upgrade.
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room not found"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	log.Info().Str("module", "handlers.ws").Str("room", roomID).Msg("watcher connected")

	go w.writePump()
	go w.readPump(h.hub)
}

// readPump discards client frames; it only exists to notice disconnects
// and answer pongs.
func (w *Watcher) readPump(hub *Hub) {
	defer func() {
		hub.remove(w)
		w.Conn.Close()
		log.Info().Str("module", "handlers.ws").Str("room", w.RoomID).Msg("watcher disconnected")
	}()

	w.Conn.SetReadLimit(maxMessageSize)
	w.Conn.SetReadDeadline(time.Now().Add(pongWait))
	w.Conn.SetPongHandler(func(string) error {
		w.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := w.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Str("module", "handlers.ws").Err(err).Msg("websocket error")
			}
			return
		}
	}
}

func (w *Watcher) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		w.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-w.Send:
			w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				w.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := w.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().Str("module", "handlers.ws").Err(err).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
