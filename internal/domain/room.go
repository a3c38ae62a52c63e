package domain

import (
	"slices"
	"strings"
	"time"
)

const privatePrefix = "private"

type (
	RoomName string
	RoomID   int64
)

type Room struct {
	ID        RoomID    `json:"id"`
	Name      RoomName  `json:"name"`
	IsGroup   bool      `json:"is_group"`
	CreatorID UserID    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PrivateRoomName derives the room name for a 1:1 chat. The pair is sorted so
// both participants resolve to the same room whoever starts the chat.
func PrivateRoomName(a, b string) RoomName {
	pair := []string{a, b}
	slices.Sort(pair)
	return RoomName(privatePrefix + "_" + strings.Join(pair, "_"))
}

// CanDelete reports whether userID may delete the room: its creator always can,
// and either participant can drop a private room.
func (r Room) CanDelete(userID UserID) bool {
	return !r.IsGroup || r.CreatorID == userID
}
