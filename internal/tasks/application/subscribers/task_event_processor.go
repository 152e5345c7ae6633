package subscribers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/eventbus"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/messaging"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// TaskEventProcessor consumes the task-events channel and dispatches each
// event to the handler for its variant.
type TaskEventProcessor struct {
	metrics *observability.MessagingMetrics
	logger  *slog.Logger

	mu        sync.Mutex
	processed map[task.EventType]int64
}

var _ eventbus.EventConsumer = (*TaskEventProcessor)(nil)

// NewTaskEventProcessor creates a new task event processor.
func NewTaskEventProcessor(metrics *observability.MessagingMetrics, logger *slog.Logger) *TaskEventProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMessagingMetrics(logger)
	}
	return &TaskEventProcessor{
		metrics:   metrics,
		logger:    logger,
		processed: make(map[task.EventType]int64),
	}
}

// Channels returns the channels this processor reads.
func (p *TaskEventProcessor) Channels() []string {
	return []string{messaging.ChannelTaskEvents}
}

// Handle decodes and dispatches one task event.
func (p *TaskEventProcessor) Handle(ctx context.Context, msg *eventbus.ConsumedMessage) error {
	return consume(ctx, p.metrics, msg, "TaskEvent", func(ctx context.Context) error {
		event, err := task.DecodeEvent(msg.Payload)
		if err != nil {
			return malformed(msg.Channel, err)
		}

		if err := p.dispatch(event); err != nil {
			return malformed(msg.Channel, err)
		}

		p.mu.Lock()
		p.processed[event.EventType]++
		p.mu.Unlock()
		return nil
	})
}

// dispatch routes an event by its type tag.
func (p *TaskEventProcessor) dispatch(event task.Event) error {
	switch event.EventType {
	case task.EventTaskCreated:
		payload, err := payloadAs[task.CreatedPayload](event)
		if err != nil {
			return err
		}
		p.handleCreated(event, payload)
	case task.EventTaskUpdated:
		payload, err := payloadAs[task.UpdatedPayload](event)
		if err != nil {
			return err
		}
		p.handleUpdated(event, payload)
	case task.EventTaskStatusChanged:
		payload, err := payloadAs[task.StatusChangedPayload](event)
		if err != nil {
			return err
		}
		p.handleStatusChanged(event, payload)
	case task.EventTaskDeleted:
		payload, err := payloadAs[task.DeletedPayload](event)
		if err != nil {
			return err
		}
		p.handleDeleted(event, payload)
	case task.EventTaskAssigned:
		payload, err := payloadAs[task.AssignedPayload](event)
		if err != nil {
			return err
		}
		p.handleAssigned(event, payload)
	case task.EventTaskOverdue:
		payload, err := payloadAs[task.OverduePayload](event)
		if err != nil {
			return err
		}
		p.handleOverdue(event, payload)
	default:
		return fmt.Errorf("%w: %q", task.ErrUnknownEventType, event.EventType)
	}
	return nil
}

// payloadAs returns the payload of event as the variant its tag names.
func payloadAs[T task.Payload](event task.Event) (T, error) {
	payload, ok := event.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s event carries a %T payload", event.EventType, event.Payload)
	}
	return payload, nil
}

func (p *TaskEventProcessor) handleCreated(event task.Event, payload task.CreatedPayload) {
	p.logger.Info("task created",
		"task_id", event.TaskID,
		"board_id", event.BoardID,
		"title", payload.Title,
		"priority", payload.Priority,
		observability.CorrelationIDKey, event.CorrelationID,
	)
}

func (p *TaskEventProcessor) handleUpdated(event task.Event, payload task.UpdatedPayload) {
	fields := make([]string, 0, len(payload.ChangedFields))
	for name := range payload.ChangedFields {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	p.logger.Info("task updated",
		"task_id", event.TaskID,
		"board_id", event.BoardID,
		"changed_fields", fields,
		observability.CorrelationIDKey, event.CorrelationID,
	)
}

func (p *TaskEventProcessor) handleStatusChanged(event task.Event, payload task.StatusChangedPayload) {
	p.logger.Info("task status changed",
		"task_id", event.TaskID,
		"old_status", payload.OldStatus,
		"new_status", payload.NewStatus,
		"reason", payload.Reason,
		observability.CorrelationIDKey, event.CorrelationID,
	)
}

func (p *TaskEventProcessor) handleDeleted(event task.Event, payload task.DeletedPayload) {
	p.logger.Info("task deleted",
		"task_id", event.TaskID,
		"board_id", event.BoardID,
		"reason", payload.Reason,
		observability.CorrelationIDKey, event.CorrelationID,
	)
}

func (p *TaskEventProcessor) handleAssigned(event task.Event, payload task.AssignedPayload) {
	p.logger.Info("task assigned",
		"task_id", event.TaskID,
		"assigned_to", payload.AssignedTo,
		"assigned_by", payload.AssignedBy,
		observability.CorrelationIDKey, event.CorrelationID,
	)
}

func (p *TaskEventProcessor) handleOverdue(event task.Event, payload task.OverduePayload) {
	p.logger.Warn("task overdue",
		"task_id", event.TaskID,
		"title", payload.Title,
		"days_overdue", payload.DaysOverdue,
		observability.CorrelationIDKey, event.CorrelationID,
	)
}

// Processed returns how many events of each type were handled.
func (p *TaskEventProcessor) Processed() map[task.EventType]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[task.EventType]int64, len(p.processed))
	for k, v := range p.processed {
		out[k] = v
	}
	return out
}
