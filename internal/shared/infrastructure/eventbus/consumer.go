package eventbus

import (
	"context"
	"errors"
	"time"
)

// ErrMalformedMessage is returned by consumers for payloads that cannot be
// decoded. Such messages are never redelivered.
var ErrMalformedMessage = errors.New("malformed message")

// EventConsumer handles messages from one or more channels.
type EventConsumer interface {
	// Channels returns the channel names this consumer reads.
	Channels() []string

	Handle(ctx context.Context, msg *ConsumedMessage) error
}

// ConsumedMessage is a message received from the bus.
type ConsumedMessage struct {
	Channel    string
	Key        string
	Payload    []byte
	Headers    map[string]string
	ReceivedAt time.Time
}

// Header returns a header value or "".
func (m *ConsumedMessage) Header(name string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[name]
}

// Consumer delivers messages to registered consumers.
type Consumer interface {
	// Start begins consuming messages. This is a blocking call.
	Start(ctx context.Context) error

	RegisterConsumer(consumer EventConsumer)

	Close() error
}
