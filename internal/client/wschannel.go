package client

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	httpapi "github.com/codepair/peercall/internal/api/http"
	"github.com/codepair/peercall/internal/domain"
)

// WSChannel is the websocket implementation of Channel. The connection id is
// assigned by the server and delivered in the handshake response header.
type WSChannel struct {
	conn         *websocket.Conn
	connectionID string
	events       chan domain.Event

	writeMu sync.Mutex
}

func DialWSChannel(ctx context.Context, url string) (*WSChannel, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	ch := &WSChannel{
		conn:         conn,
		connectionID: resp.Header.Get(httpapi.ConnectionIDHeader),
		events:       make(chan domain.Event, 32),
	}

	go ch.readLoop()

	return ch, nil
}

func (c *WSChannel) readLoop() {
	defer close(c.events)
	for {
		var event domain.Event
		if err := c.conn.ReadJSON(&event); err != nil {
			return
		}
		c.events <- event
	}
}

func (c *WSChannel) Send(event domain.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(event)
}

func (c *WSChannel) Events() <-chan domain.Event {
	return c.events
}

func (c *WSChannel) ConnectionID() string {
	return c.connectionID
}

func (c *WSChannel) Close() error {
	return c.conn.Close()
}
