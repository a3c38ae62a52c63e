package protocol

import (
	"time"

	"github.com/dkeye/tiger/internal/domain"
	"github.com/samber/lo"
)

type RoomPayload struct {
	Room string `json:"room" validate:"required,max=128"`
}

type SendMessagePayload struct {
	Room    string `json:"room" validate:"required,max=128"`
	Message string `json:"message" validate:"required,max=4096"`
}

type PrivateChatPayload struct {
	Recipient string `json:"recipient" validate:"required,alphanum,max=36"`
}

type GroupChatPayload struct {
	GroupName string `json:"groupName" validate:"required,max=128"`
}

type UserEvent struct {
	Username string `json:"username"`
}

type UserLeftGroupEvent struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

type ChatMessage struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Room      string `json:"room,omitempty"`
}

type HistoryEntry struct {
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Room      string `json:"room"`
	Timestamp string `json:"timestamp"`
}

type ChatHistoryEvent struct {
	History []HistoryEntry `json:"history"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

type ConnectedEvent struct {
	SID string `json:"sid"`
}

type WhoAmIEvent struct {
	SID      string   `json:"sid"`
	Username string   `json:"username"`
	Rooms    []string `json:"rooms"`
}

// NewChatMessage renders a persisted message for live delivery.
func NewChatMessage(m domain.Message) ChatMessage {
	return ChatMessage{
		Sender:    m.Sender,
		Message:   m.Content,
		Timestamp: m.Timestamp.UTC().Format(domain.ClockLayout),
		Room:      string(m.Room),
	}
}

// SystemNotice is a server generated receive_message for a room.
func SystemNotice(room domain.RoomName, text string, at time.Time) ChatMessage {
	return ChatMessage{
		Sender:    domain.SystemSender,
		Message:   text,
		Timestamp: at.UTC().Format(domain.ClockLayout),
		Room:      string(room),
	}
}

func NewChatHistory(msgs []domain.Message) ChatHistoryEvent {
	return ChatHistoryEvent{History: lo.Map(msgs, func(m domain.Message, _ int) HistoryEntry {
		return HistoryEntry{
			Content:   m.Content,
			Sender:    m.Sender,
			Room:      string(m.Room),
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		}
	})}
}
