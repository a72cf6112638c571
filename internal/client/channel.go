package client

import "github.com/codepair/peercall/internal/domain"

// Channel is the bidirectional messaging channel between a client and the
// signaling relay. Delivery is assumed reliable and ordered per connection;
// the channel closes its Events stream when the transport drops.
type Channel interface {
	Send(event domain.Event) error
	Events() <-chan domain.Event
	ConnectionID() string
	Close() error
}
