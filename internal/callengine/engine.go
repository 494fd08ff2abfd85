package callengine

import "context"

// JoinInfo contains what a participant needs to connect to a media room.
type JoinInfo struct {
	URL      string `json:"url"`       // WebSocket URL (e.g., ws://localhost:7880)
	Token    string `json:"token"`     // access token for the media backend
	RoomName string `json:"room_name"` // backend room name
	Identity string `json:"identity"`  // participant identity in the room
}

// Engine abstracts the media backend that hosts call rooms.
type Engine interface {
	// RoomName maps a call room id to the backend room name.
	RoomName(roomID int64) string

	// JoinInfo creates join credentials for account in the given call room.
	JoinInfo(ctx context.Context, roomID int64, account, nickname string) (*JoinInfo, error)
}
