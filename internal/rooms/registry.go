// Package rooms holds the in-memory room registry.
package rooms

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/mossy-p/conference-rooms/internal/models"
	"github.com/rs/zerolog/log"
)

// Issuer produces an access token for identity in roomID.
type Issuer interface {
	Issue(roomID, identity string) (string, error)
}

// Registry owns every Room. All methods are safe for concurrent use and
// return copies, so callers never share a roster slice with the registry.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*models.Room
	order  []string
	issuer Issuer
	now    func() time.Time
}

func NewRegistry(issuer Issuer) *Registry {
	return &Registry{
		rooms:  make(map[string]*models.Room),
		issuer: issuer,
		now:    time.Now,
	}
}

// CreateRoom registers roomID with hostName as its first participant and
// stores the host's access token on the room.
func (r *Registry) CreateRoom(roomID, hostName string) (models.Room, error) {
	if roomID == "" || hostName == "" {
		return models.Room{}, fmt.Errorf("%w: room id and host name are required", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomID]; exists {
		return models.Room{}, fmt.Errorf("%w: %s", ErrAlreadyExists, roomID)
	}

	token, err := r.issuer.Issue(roomID, hostName)
	if err != nil {
		return models.Room{}, fmt.Errorf("issue host token: %w", err)
	}

	room := &models.Room{
		ID:           roomID,
		Name:         roomID,
		Host:         hostName,
		CreatedAt:    r.now(),
		Participants: []string{hostName},
		AccessToken:  token,
	}
	r.rooms[roomID] = room
	r.order = append(r.order, roomID)

	log.Info().Str("module", "rooms.registry").Str("room", roomID).Str("host", hostName).Msg("room created")
	return snapshot(room), nil
}

func (r *Registry) GetRoom(roomID string) (models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return models.Room{}, fmt.Errorf("%w: %s", ErrNotFound, roomID)
	}
	return snapshot(room), nil
}

// JoinRoom issues a fresh token for participantName and adds the name to
// the roster unless it is already there. The returned bool reports whether
// the roster grew.
func (r *Registry) JoinRoom(roomID, participantName string) (string, models.Room, bool, error) {
	if participantName == "" {
		return "", models.Room{}, false, fmt.Errorf("%w: participant name is required", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return "", models.Room{}, false, fmt.Errorf("%w: %s", ErrNotFound, roomID)
	}

	token, err := r.issuer.Issue(roomID, participantName)
	if err != nil {
		return "", models.Room{}, false, fmt.Errorf("issue participant token: %w", err)
	}

	added := !slices.Contains(room.Participants, participantName)
	if added {
		room.Participants = append(room.Participants, participantName)
		log.Info().Str("module", "rooms.registry").Str("room", roomID).Str("participant", participantName).Msg("participant joined")
	}
	return token, snapshot(room), added, nil
}

// ListRooms returns every room in creation order.
func (r *Registry) ListRooms() []models.RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.RoomSummary, 0, len(r.order))
	for _, id := range r.order {
		room := r.rooms[id]
		out = append(out, models.RoomSummary{
			ID:               room.ID,
			Name:             room.Name,
			Host:             room.Host,
			CreatedAt:        room.CreatedAt,
			ParticipantCount: len(room.Participants),
		})
	}
	return out
}

func (r *Registry) DeleteRoom(roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, roomID)
	}
	delete(r.rooms, roomID)
	if i := slices.Index(r.order, roomID); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}

	log.Info().Str("module", "rooms.registry").Str("room", roomID).Msg("room deleted")
	return nil
}

// Len returns the number of active rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func snapshot(room *models.Room) models.Room {
	cp := *room
	cp.Participants = slices.Clone(room.Participants)
	return cp
}
