package models

// EventType represents the type of roster event pushed to room watchers
type EventType string

const (
	EventTypeRoster            EventType = "roster"
	EventTypeParticipantJoined EventType = "participant_joined"
	EventTypeRoomDeleted       EventType = "room_deleted"
)

// RoomEvent is a message sent on the /ws/rooms/:roomId feed
type RoomEvent struct {
	Type         EventType `json:"type"`
	RoomID       string    `json:"roomId"`
	Participant  string    `json:"participant,omitempty"`
	Participants []string  `json:"participants,omitempty"`
	Timestamp    string    `json:"timestamp"`
}
