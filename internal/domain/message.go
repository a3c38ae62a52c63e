package domain

import "time"

// ClockLayout is how live chat messages stamp their time.
const ClockLayout = "15:04"

type MessageID int64

// Message is immutable once persisted; Timestamp is assigned by the store in UTC.
type Message struct {
	ID        MessageID `json:"id"`
	RoomID    RoomID    `json:"room_id"`
	Room      RoomName  `json:"room"`
	SenderID  UserID    `json:"sender_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
