package domain

import "time"

// ChatMessage is an immutable entry in a room's chat history. The id is the
// creation time in milliseconds, which is unique enough for a two-party room.
type ChatMessage struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChatMessage(sender string, content string) *ChatMessage {
	now := time.Now()
	return &ChatMessage{
		ID:        now.UnixMilli(),
		Sender:    sender,
		Content:   content,
		Timestamp: now.UTC(),
	}
}
