package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Participant represents one live connection on the messaging channel. The
// socket is written only by the connection's write pump, which drains Events.
type Participant struct {
	ID       string
	JoinedAt time.Time
	Mutex    sync.RWMutex
	Socket   *websocket.Conn
	Events   chan Event
	closed   bool
}

func NewParticipant() *Participant {
	return &Participant{
		ID:       uuid.New().String(),
		JoinedAt: time.Now().UTC(),
		Events:   make(chan Event, 32),
	}
}

// EnqueueEvent queues an outbound event without blocking. It reports false
// when the event was dropped, either because the participant's buffer is full
// or the connection is already torn down.
func (p *Participant) EnqueueEvent(event Event) bool {
	p.Mutex.RLock()
	defer p.Mutex.RUnlock()

	if p.closed {
		return false
	}

	select {
	case p.Events <- event:
		return true
	default:
		return false
	}
}

// CloseEvents ends the event stream. Safe to call once concurrent senders can
// no longer reach the participant through room membership.
func (p *Participant) CloseEvents() {
	p.Mutex.Lock()
	defer p.Mutex.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.Events)
}
