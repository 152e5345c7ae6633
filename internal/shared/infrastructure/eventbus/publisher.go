package eventbus

import (
	"context"
	"errors"
)

// Header names carried on every message.
const (
	HeaderMessageKey    = "message-key"
	HeaderMessageType   = "message-type"
	HeaderCorrelationID = "correlation-id"
)

var ErrPublisherClosed = errors.New("publisher is closed")

// Message is a keyed payload addressed to a named channel.
type Message struct {
	Channel string
	Key     string
	Payload []byte
	Headers map[string]string
}

// Publisher sends messages to a broker. A nil error means the broker
// accepted the message.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	// Ping reports whether the broker is reachable.
	Ping(ctx context.Context) error
	Close() error
}
