package models

import "time"

// TimestampLayout renders times the way browsers print Date.toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp formats t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Room is a conferencing session tracked by the registry.
type Room struct {
	ID           string
	Name         string
	Host         string
	CreatedAt    time.Time
	Participants []string
	// AccessToken is the credential issued to the host at creation.
	AccessToken string
}

// RoomSummary is a Room with its roster collapsed to a count.
type RoomSummary struct {
	ID               string
	Name             string
	Host             string
	CreatedAt        time.Time
	ParticipantCount int
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	RoomName string `json:"roomName" binding:"required"`
	HostName string `json:"hostName" binding:"required"`
}

// JoinRoomRequest is the request body for joining a room
type JoinRoomRequest struct {
	ParticipantName string `json:"participantName" binding:"required"`
}

type CreatedRoom struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Host        string `json:"host"`
	CreatedAt   string `json:"createdAt"`
	AccessToken string `json:"accessToken"`
	JoinURL     string `json:"joinUrl"`
}

type CreateRoomResponse struct {
	Success bool        `json:"success"`
	Room    CreatedRoom `json:"room"`
}

type RoomDetails struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Host         string   `json:"host"`
	CreatedAt    string   `json:"createdAt"`
	Participants []string `json:"participants"`
	JoinURL      string   `json:"joinUrl"`
}

type GetRoomResponse struct {
	Success bool        `json:"success"`
	Room    RoomDetails `json:"room"`
}

type JoinedRoom struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Host         string   `json:"host"`
	Participants []string `json:"participants"`
}

type JoinRoomResponse struct {
	Success     bool       `json:"success"`
	AccessToken string     `json:"accessToken"`
	Room        JoinedRoom `json:"room"`
}

type RoomListItem struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Host             string `json:"host"`
	CreatedAt        string `json:"createdAt"`
	ParticipantCount int    `json:"participantCount"`
}

type ListRoomsResponse struct {
	Success bool           `json:"success"`
	Rooms   []RoomListItem `json:"rooms"`
}

type DeleteRoomResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status            string `json:"status"`
	Timestamp         string `json:"timestamp"`
	LivekitConfigured bool   `json:"livekitConfigured"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
