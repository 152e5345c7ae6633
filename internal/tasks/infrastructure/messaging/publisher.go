package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/eventbus"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrPublishFailure wraps every transport rejection resolved on a Future.
	ErrPublishFailure = errors.New("publish failure")
	// ErrPublisherSaturated is returned when the send queue is full.
	ErrPublisherSaturated = errors.New("publisher saturated")
)

// PublisherConfig holds configuration for the event publisher.
type PublisherConfig struct {
	// QueueSize bounds the number of messages waiting for the sender.
	QueueSize int
	// SendTimeout bounds a single transport call.
	SendTimeout time.Duration
}

// DefaultPublisherConfig returns sensible defaults.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		QueueSize:   1024,
		SendTimeout: 5 * time.Second,
	}
}

type sendJob struct {
	ctx       context.Context
	msg       eventbus.Message
	eventType string
	future    *Future
	// event is set for task events; only those are dead-lettered.
	event []byte
}

// EventPublisher sends task events and side-channel messages through a single
// sender goroutine, so messages leave in submission order. Callers never wait
// for the transport; they get a Future instead.
type EventPublisher struct {
	transport eventbus.Publisher
	metrics   *observability.MessagingMetrics
	config    PublisherConfig
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	queue  chan sendJob
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewEventPublisher creates a publisher over transport and starts its sender.
func NewEventPublisher(transport eventbus.Publisher, metrics *observability.MessagingMetrics, config PublisherConfig, logger *slog.Logger) *EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMessagingMetrics(logger)
	}
	defaults := DefaultPublisherConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = defaults.SendTimeout
	}

	p := &EventPublisher{
		transport: transport,
		metrics:   metrics,
		config:    config,
		logger:    logger,
		tracer:    otel.Tracer("taskcore/messaging"),
		now:       time.Now,
		queue:     make(chan sendJob, config.QueueSize),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish submits a task event to channel. A missing correlation id is taken
// from ctx, or generated.
func (p *EventPublisher) Publish(ctx context.Context, event task.Event, channel string) *Future {
	if event.CorrelationID == "" {
		id := observability.CorrelationIDFromContext(ctx)
		if id == "" {
			id = uuid.NewString()
		}
		event = event.WithCorrelationID(id)
	}
	eventType := string(event.EventType)
	p.metrics.RecordPublished(eventType)

	payload, err := sonic.Marshal(event)
	if err != nil {
		err = fmt.Errorf("%w: encode %s: %w", ErrPublishFailure, eventType, err)
		p.metrics.RecordPublishFailure(eventType, err)
		return resolvedFuture(err)
	}

	p.logger.Debug("publishing task event",
		"event_type", eventType,
		"task_id", event.TaskID,
		"channel", channel,
		observability.CorrelationIDKey, event.CorrelationID,
	)

	return p.enqueue(ctx, sendJob{
		msg: eventbus.Message{
			Channel: channel,
			Key:     event.Key(),
			Payload: payload,
			Headers: map[string]string{
				eventbus.HeaderMessageType:   eventType,
				eventbus.HeaderCorrelationID: event.CorrelationID,
			},
		},
		eventType: eventType,
		event:     payload,
	})
}

// PublishEvent submits a task event to the task-events channel.
func (p *EventPublisher) PublishEvent(ctx context.Context, event task.Event) *Future {
	return p.Publish(ctx, event, ChannelTaskEvents)
}

// PublishBatch submits every event to the task-events channel. The returned
// future resolves after all members, with the joined member failures.
func (p *EventPublisher) PublishBatch(ctx context.Context, events []task.Event) *Future {
	futures := make([]*Future, 0, len(events))
	for _, event := range events {
		futures = append(futures, p.Publish(ctx, event, ChannelTaskEvents))
	}

	batch := newFuture()
	go func() {
		var errs []error
		for _, f := range futures {
			<-f.Done()
			if err := f.Err(); err != nil {
				errs = append(errs, err)
			}
		}
		p.metrics.RecordBatch(len(events), len(errs) > 0)
		p.logger.Info("published event batch", "batch_size", len(events), "failed", len(errs))
		batch.resolve(errors.Join(errs...))
	}()
	return batch
}

// PublishNotification submits a user notification keyed by user id.
func (p *EventPublisher) PublishNotification(ctx context.Context, userID, message, notificationType string) *Future {
	n := NewNotification(userID, message, notificationType, p.now())
	p.logger.Info("publishing notification", "user_id", userID, "type", notificationType)
	return p.publishValue(ctx, ChannelNotifications, userID, TypeNotification, n)
}

// PublishAnalytics submits an analytics record keyed by board id.
func (p *EventPublisher) PublishAnalytics(ctx context.Context, eventType, userID, boardID string, data map[string]any) *Future {
	a := NewAnalyticsEvent(eventType, userID, boardID, data, p.now())
	return p.publishValue(ctx, ChannelAnalytics, boardID, TypeAnalytics, a)
}

func (p *EventPublisher) publishValue(ctx context.Context, channel, key, messageType string, value any) *Future {
	p.metrics.RecordPublished(messageType)
	payload, err := sonic.Marshal(value)
	if err != nil {
		err = fmt.Errorf("%w: encode %s: %w", ErrPublishFailure, messageType, err)
		p.metrics.RecordPublishFailure(messageType, err)
		return resolvedFuture(err)
	}
	headers := map[string]string{eventbus.HeaderMessageType: messageType}
	if id := observability.CorrelationIDFromContext(ctx); id != "" {
		headers[eventbus.HeaderCorrelationID] = id
	}
	return p.enqueue(ctx, sendJob{
		msg:       eventbus.Message{Channel: channel, Key: key, Payload: payload, Headers: headers},
		eventType: messageType,
	})
}

// enqueue hands a job to the sender. It never blocks: a full queue fails the
// future immediately.
func (p *EventPublisher) enqueue(ctx context.Context, job sendJob) *Future {
	job.ctx = context.WithoutCancel(ctx)
	job.future = newFuture()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		err := fmt.Errorf("%w: %w", ErrPublishFailure, eventbus.ErrPublisherClosed)
		p.metrics.RecordPublishFailure(job.eventType, err)
		job.future.resolve(err)
		return job.future
	}

	select {
	case p.queue <- job:
	default:
		err := fmt.Errorf("%w: %w", ErrPublishFailure, ErrPublisherSaturated)
		p.metrics.RecordPublishFailure(job.eventType, err)
		job.future.resolve(err)
	}
	return job.future
}

func (p *EventPublisher) run() {
	defer p.wg.Done()
	for job := range p.queue {
		p.send(job)
	}
}

func (p *EventPublisher) send(job sendJob) {
	ctx, span := p.tracer.Start(job.ctx, "messaging.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.destination", job.msg.Channel),
			attribute.String("messaging.message_type", job.eventType),
		),
	)
	defer span.End()

	start := time.Now()
	err := p.transportPublish(ctx, job.msg)
	if err == nil {
		p.metrics.RecordPublishSuccess(job.eventType, time.Since(start))
		p.logger.Debug("message published",
			"channel", job.msg.Channel,
			"key", job.msg.Key,
			"message_type", job.eventType,
		)
		job.future.resolve(nil)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.metrics.RecordPublishFailure(job.eventType, err)
	p.logger.Error("failed to publish message",
		"channel", job.msg.Channel,
		"key", job.msg.Key,
		"message_type", job.eventType,
		"error", err,
	)

	if job.event != nil && job.msg.Channel != ChannelDeadLetter {
		p.deadLetter(ctx, job, err)
	}
	job.future.resolve(fmt.Errorf("%w: %s: %w", ErrPublishFailure, job.msg.Channel, err))
}

// deadLetter routes a rejected task event to the dead-letter channel once.
// Its own failure is logged and dropped.
func (p *EventPublisher) deadLetter(ctx context.Context, job sendJob, cause error) {
	dlq := DeadLetterMessage{
		MessageID:     uuid.NewString(),
		OriginalEvent: job.event,
		EventType:     job.eventType,
		TaskID:        job.msg.Key,
		ErrorMessage:  cause.Error(),
		FailedAt:      p.now().UTC(),
		RetryCount:    0,
	}
	payload, err := sonic.Marshal(dlq)
	if err != nil {
		p.logger.Error("failed to encode dead-letter message", "task_id", job.msg.Key, "error", err)
		return
	}

	headers := map[string]string{eventbus.HeaderMessageType: TypeDeadLetter}
	if id := job.msg.Headers[eventbus.HeaderCorrelationID]; id != "" {
		headers[eventbus.HeaderCorrelationID] = id
	}
	msg := eventbus.Message{Channel: ChannelDeadLetter, Key: job.msg.Key, Payload: payload, Headers: headers}
	if err := p.transportPublish(ctx, msg); err != nil {
		p.logger.Error("failed to send message to dead-letter channel",
			"task_id", job.msg.Key,
			"event_type", job.eventType,
			"error", err,
		)
		return
	}
	p.metrics.RecordDeadLetter(job.eventType)
}

func (p *EventPublisher) transportPublish(ctx context.Context, msg eventbus.Message) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.SendTimeout)
	defer cancel()
	return p.transport.Publish(ctx, msg)
}

// IsAvailable reports whether the transport is reachable.
func (p *EventPublisher) IsAvailable(ctx context.Context) bool {
	if err := p.transport.Ping(ctx); err != nil {
		p.logger.Warn("event transport health check failed", "error", err)
		return false
	}
	return true
}

// Ping returns the transport health error, if any.
func (p *EventPublisher) Ping(ctx context.Context) error {
	return p.transport.Ping(ctx)
}

// Metrics returns the collector this publisher reports to.
func (p *EventPublisher) Metrics() *observability.MessagingMetrics { return p.metrics }

// QueueDepth returns the number of messages waiting for the sender.
func (p *EventPublisher) QueueDepth() int { return len(p.queue) }

// Close stops accepting messages, drains the queue and closes the transport.
func (p *EventPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("event publisher stopped")
	return p.transport.Close()
}
