package entity

import "time"

type ChatMessageType string

const (
	ChatUser   ChatMessageType = "USER"
	ChatSystem ChatMessageType = "SYSTEM"
)

const MaxChatMessageLength = 500

type ChatMessage struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"room_id"`
	AuthorID  string          `json:"author_id,omitempty"`
	Text      string          `json:"text"`
	Type      ChatMessageType `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}
