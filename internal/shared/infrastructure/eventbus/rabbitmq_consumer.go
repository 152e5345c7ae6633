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

// RabbitMQConsumer reads the durable queue of every registered channel.
type RabbitMQConsumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	exchange  string
	registry  *ConsumerRegistry
	logger    *slog.Logger
	mu        sync.Mutex
	running   bool
	closeChan chan struct{}
	closeOnce sync.Once
}

// RabbitMQConsumerConfig configures the RabbitMQ consumer.
type RabbitMQConsumerConfig struct {
	URL      string
	Exchange string
	// Prefetch bounds unacknowledged deliveries per queue. Defaults to 1,
	// which keeps per-key ordering.
	Prefetch int
	Logger   *slog.Logger
}

// NewRabbitMQConsumer connects and declares the exchange.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig, registry *ConsumerRegistry) (*RabbitMQConsumer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Exchange == "" {
		cfg.Exchange = ExchangeName
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if registry == nil {
		registry = NewConsumerRegistry(cfg.Logger)
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

	if err := declareTopology(ch, cfg.Exchange, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	cfg.Logger.Info("RabbitMQ consumer connected", "exchange", cfg.Exchange)

	return &RabbitMQConsumer{
		conn:      conn,
		channel:   ch,
		exchange:  cfg.Exchange,
		registry:  registry,
		logger:    cfg.Logger,
		closeChan: make(chan struct{}),
	}, nil
}

// RegisterConsumer registers a consumer and declares its channel queues.
func (c *RabbitMQConsumer) RegisterConsumer(consumer EventConsumer) {
	c.registry.Register(consumer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := declareTopology(c.channel, c.exchange, consumer.Channels()); err != nil {
		c.logger.Error("failed to declare consumer queues",
			"channels", consumer.Channels(),
			"error", err,
		)
	}
}

// Start consumes every registered channel until ctx is cancelled or Close
// is called. Each queue is processed sequentially.
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	channels := c.registry.Channels()
	deliveries := make(map[string]<-chan amqp.Delivery, len(channels))
	for _, name := range channels {
		msgs, err := c.channel.Consume(
			name,
			"",    // consumer tag (auto-generated)
			false, // auto-ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to consume %s: %w", name, err)
		}
		deliveries[name] = msgs
	}

	c.logger.Info("started consuming", "channels", channels)

	errCh := make(chan error, len(deliveries))
	var wg sync.WaitGroup
	for name, msgs := range deliveries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- c.consumeQueue(ctx, name, msgs)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		c.logger.Info("consumer context cancelled, stopping")
		err = ctx.Err()
	case <-c.closeChan:
		c.logger.Info("consumer close requested, stopping")
	case err = <-errCh:
	}

	c.stop()
	wg.Wait()
	return err
}

func (c *RabbitMQConsumer) consumeQueue(ctx context.Context, name string, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closeChan:
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed unexpectedly", name)
			}
			c.settle(msg, c.processMessage(ctx, name, msg))
		}
	}
}

// settle acks handled messages. A malformed message is rejected at once;
// any other failure is requeued once. Rejected messages are dead-lettered
// by the broker.
func (c *RabbitMQConsumer) settle(msg amqp.Delivery, err error) {
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			c.logger.Error("failed to ack message", "error", ackErr)
		}
		return
	}

	requeue := shouldRequeue(err, msg.Redelivered)
	c.logger.Error("failed to process message",
		"routing_key", msg.RoutingKey,
		"requeue", requeue,
		"error", err,
	)
	if nackErr := msg.Nack(false, requeue); nackErr != nil {
		c.logger.Error("failed to nack message", "error", nackErr)
	}
}

func shouldRequeue(err error, redelivered bool) bool {
	return !redelivered && !errors.Is(err, ErrMalformedMessage)
}

func (c *RabbitMQConsumer) processMessage(ctx context.Context, channel string, msg amqp.Delivery) error {
	consumed := &ConsumedMessage{
		Channel:    channel,
		Payload:    msg.Body,
		Headers:    make(map[string]string, len(msg.Headers)),
		ReceivedAt: time.Now(),
	}
	for k, v := range msg.Headers {
		if s, ok := v.(string); ok {
			consumed.Headers[k] = s
		}
	}
	consumed.Key = consumed.Headers[HeaderMessageKey]

	start := time.Now()
	if err := c.registry.Dispatch(ctx, consumed); err != nil {
		return err
	}

	c.logger.Debug("message processed",
		"channel", channel,
		"key", consumed.Key,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (c *RabbitMQConsumer) stop() {
	c.closeOnce.Do(func() { close(c.closeChan) })
}

// Close stops consumption and closes the connection.
func (c *RabbitMQConsumer) Close() error {
	c.stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false

	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			c.logger.Warn("error closing channel", "error", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return err
		}
	}

	c.logger.Info("RabbitMQ consumer closed")
	return nil
}
