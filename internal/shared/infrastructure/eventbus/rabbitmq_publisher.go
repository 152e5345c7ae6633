package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange all task channels are routed through.
const ExchangeName = "tasks.events"

// RabbitMQConfig configures the RabbitMQ publisher.
type RabbitMQConfig struct {
	URL      string
	Exchange string
	// Channels are declared as durable queues bound by their own name, so
	// messages survive until a consumer starts. Messages a consumer rejects
	// are dead-lettered to the "<exchange>.rejected" queue.
	Channels []string
	Logger   *slog.Logger
}

// Publish failures reported by the broker.
var (
	ErrPublishNacked = errors.New("broker rejected message")
	ErrUnroutable    = errors.New("message not routed to any queue")
)

// RabbitMQPublisher publishes messages to a topic exchange, using the
// channel name as routing key. The channel runs in confirm mode and every
// message is mandatory, so Publish returns only after the broker has
// acknowledged or returned it.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	returns  chan amqp.Return
	exchange string
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewRabbitMQPublisher connects, declares the exchange, declares and binds
// one durable queue per configured channel, and enables publisher confirms.
func NewRabbitMQPublisher(cfg RabbitMQConfig) (*RabbitMQPublisher, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Exchange == "" {
		cfg.Exchange = ExchangeName
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch, cfg.Exchange, cfg.Channels); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	returns := ch.NotifyReturn(make(chan amqp.Return, 1))

	cfg.Logger.Info("RabbitMQ publisher connected",
		"exchange", cfg.Exchange,
		"channels", cfg.Channels,
	)

	return &RabbitMQPublisher{
		conn:     conn,
		channel:  ch,
		returns:  returns,
		exchange: cfg.Exchange,
		logger:   cfg.Logger,
	}, nil
}

// deadLetterExchange receives messages rejected by a consumer without requeue.
func deadLetterExchange(exchange string) string { return exchange + ".dlx" }

// rejectedQueue holds rejected messages as they were delivered.
func rejectedQueue(exchange string) string { return exchange + ".rejected" }

func declareTopology(ch *amqp.Channel, exchange string, channels []string) error {
	err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	dlx := deadLetterExchange(exchange)
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange: %w", err)
	}
	rejected := rejectedQueue(exchange)
	if _, err := ch.QueueDeclare(rejected, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", rejected, err)
	}
	if err := ch.QueueBind(rejected, "", dlx, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", rejected, err)
	}

	args := amqp.Table{"x-dead-letter-exchange": dlx}
	for _, name := range channels {
		if _, err := ch.QueueDeclare(name, true, false, false, false, args); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
		if err := ch.QueueBind(name, name, exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", name, err)
		}
	}
	return nil
}

// Publish sends the message and waits for the broker confirm. Sends are
// serialized on the single AMQP channel, so at most one message is in flight.
func (p *RabbitMQPublisher) Publish(ctx context.Context, msg Message) error {
	headers := amqp.Table{HeaderMessageKey: msg.Key}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		return ErrPublisherClosed
	}

	drainReturns(p.returns)

	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(ctx,
		p.exchange,
		msg.Channel, // routing key
		true,        // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    msg.Headers[HeaderMessageType] + ":" + msg.Key,
			Headers:      headers,
			Body:         msg.Payload,
		},
	)
	if err == nil {
		err = awaitConfirm(ctx, confirm, p.returns)
	}
	if err != nil {
		p.logger.Error("failed to publish message",
			"channel", msg.Channel,
			"key", msg.Key,
			"error", err,
		)
		return err
	}

	p.logger.Debug("message published",
		"channel", msg.Channel,
		"key", msg.Key,
		"size", len(msg.Payload),
	)
	return nil
}

// confirmation is the broker acknowledgement of one published message.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// awaitConfirm waits for the broker ack. A nack fails with ErrPublishNacked.
// The broker sends basic.return before the ack of an unroutable mandatory
// message, so a pending return after the ack means nothing was queued.
func awaitConfirm(ctx context.Context, confirm confirmation, returns <-chan amqp.Return) error {
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait for publish confirm: %w", err)
	}
	if !acked {
		return ErrPublishNacked
	}
	select {
	case ret, ok := <-returns:
		if ok {
			return fmt.Errorf("%w: %s (%d %s)", ErrUnroutable, ret.RoutingKey, ret.ReplyCode, ret.ReplyText)
		}
	default:
	}
	return nil
}

func drainReturns(returns <-chan amqp.Return) {
	for {
		select {
		case _, ok := <-returns:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Ping reports an error when the connection has dropped.
func (p *RabbitMQPublisher) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// Close closes the publisher connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("error closing channel", "error", err)
		}
		p.channel = nil
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return err
		}
		p.conn = nil
	}

	p.logger.Info("RabbitMQ publisher closed")
	return nil
}
