package client

import (
	"sync"
	"time"

	"github.com/codepair/peercall/internal/domain"
)

// editorUpdateGap is the minimum spacing between emitted editor updates. The
// first edit after the gap emits immediately; edits inside the gap only
// update local state and may be overwritten by a later remote update.
const editorUpdateGap = 100 * time.Millisecond

// EditorSync keeps the shared editor text in step with the room. Conflict
// policy is last-writer-wins on the full content, no merging.
type EditorSync struct {
	channel Channel
	roomID  string
	selfID  string

	mu       sync.Mutex
	content  string
	lastEmit time.Time
	now      func() time.Time
	onChange func(content string)
}

func NewEditorSync(channel Channel, roomID string) *EditorSync {
	return &EditorSync{
		channel: channel,
		roomID:  roomID,
		selfID:  channel.ConnectionID(),
		now:     time.Now,
	}
}

// OnChange registers a callback fired when a remote update replaces the
// local content.
func (e *EditorSync) OnChange(fn func(content string)) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

func (e *EditorSync) Seed(data domain.RoomData) {
	e.mu.Lock()
	e.content = data.EditorContent
	e.mu.Unlock()
}

// LocalEdit records an edit and emits it unless one was emitted within the
// cooldown window.
func (e *EditorSync) LocalEdit(content string) {
	e.mu.Lock()
	e.content = content
	now := e.now()
	if now.Sub(e.lastEmit) < editorUpdateGap {
		e.mu.Unlock()
		return
	}
	e.lastEmit = now
	e.mu.Unlock()

	_ = e.channel.Send(domain.NewEvent(domain.EventEditorUpdate, domain.EditorUpdatePayload{
		Content: content,
		RoomID:  e.roomID,
	}))
}

// ApplyRemote overwrites local content with an update from another sender.
// The own echo never arrives (the relay skips the sender), but the sender id
// is checked anyway.
func (e *EditorSync) ApplyRemote(payload domain.EditorUpdatePayload) {
	if payload.From == e.selfID {
		return
	}

	e.mu.Lock()
	e.content = payload.Content
	onChange := e.onChange
	e.mu.Unlock()

	if onChange != nil {
		onChange(payload.Content)
	}
}

func (e *EditorSync) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content
}

// ChatSync keeps the append-only chat history. Outgoing messages are
// fire-and-forget; the authoritative copy comes back as the server echo.
type ChatSync struct {
	channel Channel
	roomID  string
	selfID  string

	mu        sync.Mutex
	messages  []domain.ChatMessage
	onMessage func(msg domain.ChatMessage)
}

func NewChatSync(channel Channel, roomID string) *ChatSync {
	return &ChatSync{
		channel: channel,
		roomID:  roomID,
		selfID:  channel.ConnectionID(),
	}
}

func (c *ChatSync) OnMessage(fn func(msg domain.ChatMessage)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

func (c *ChatSync) Seed(data domain.RoomData) {
	c.mu.Lock()
	c.messages = append([]domain.ChatMessage(nil), data.Messages...)
	c.mu.Unlock()
}

func (c *ChatSync) Send(content string) error {
	return c.channel.Send(domain.NewEvent(domain.EventChatMessage, domain.ChatSendPayload{
		Message: content,
		RoomID:  c.roomID,
	}))
}

func (c *ChatSync) Apply(msg domain.ChatMessage) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	onMessage := c.onMessage
	c.mu.Unlock()

	if onMessage != nil {
		onMessage(msg)
	}
}

// IsMine reports whether the message was sent by this connection.
func (c *ChatSync) IsMine(msg domain.ChatMessage) bool {
	return msg.Sender == c.selfID
}

func (c *ChatSync) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ChatMessage(nil), c.messages...)
}
