package domain

import (
	"sync"
	"time"
)

// Room holds the ephemeral shared state of one call: the collaborative editor
// text (last-writer-wins) and the append-only chat history. Rooms are created
// lazily on first join and live in memory only.
type Room struct {
	Mutex         sync.RWMutex
	ID            string
	EditorContent string
	Messages      []*ChatMessage
	CreatedAt     time.Time
}

func NewRoom(id string) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now().UTC(),
	}
}

func (r *Room) AppendMessage(msg *ChatMessage) {
	r.Mutex.Lock()
	r.Messages = append(r.Messages, msg)
	r.Mutex.Unlock()
}

func (r *Room) SetEditorContent(content string) {
	r.Mutex.Lock()
	r.EditorContent = content
	r.Mutex.Unlock()
}

// Snapshot returns a deep copy of the room state for onboarding a joiner.
func (r *Room) Snapshot() RoomData {
	r.Mutex.RLock()
	defer r.Mutex.RUnlock()

	messages := make([]ChatMessage, 0, len(r.Messages))
	for _, msg := range r.Messages {
		messages = append(messages, *msg)
	}

	return RoomData{
		EditorContent: r.EditorContent,
		Messages:      messages,
	}
}

// RoomData is the state snapshot sent to a joining connection.
type RoomData struct {
	EditorContent string        `json:"editorContent"`
	Messages      []ChatMessage `json:"messages"`
}
