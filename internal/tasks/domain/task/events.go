package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/value_objects"
	"github.com/google/uuid"
)

// EventType discriminates the payload variant of an Event.
type EventType string

const (
	EventTaskCreated       EventType = "TaskCreated"
	EventTaskUpdated       EventType = "TaskUpdated"
	EventTaskStatusChanged EventType = "TaskStatusChanged"
	EventTaskDeleted       EventType = "TaskDeleted"
	EventTaskAssigned      EventType = "TaskAssigned"
	EventTaskOverdue       EventType = "TaskOverdue"
)

// EventSchemaVersion is stamped on every envelope.
const EventSchemaVersion = 1

// Changed-field keys carried by TaskUpdated.
const (
	FieldAssignedTo = "assignedTo"
	FieldBoardID    = "boardId"
)

var ErrUnknownEventType = errors.New("unknown event type")

// Envelope holds the metadata common to every task event.
type Envelope struct {
	EventID       string    `json:"eventId"`
	EventType     EventType `json:"eventType"`
	TaskID        string    `json:"taskId"`
	UserID        string    `json:"userId,omitempty"`
	BoardID       string    `json:"boardId"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CausationID   string    `json:"causationId,omitempty"`
	Version       int       `json:"version"`
}

// Payload is implemented by the closed set of event payload variants.
type Payload interface {
	EventType() EventType
}

// TaskData is the full task snapshot carried by created and updated events.
type TaskData struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Status      Status                 `json:"status"`
	Priority    value_objects.Priority `json:"priority"`
	AssignedTo  string                 `json:"assignedTo,omitempty"`
	DueDate     *time.Time             `json:"dueDate,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// FieldChange records the old and new value of a changed field.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type CreatedPayload struct {
	TaskData
}

type UpdatedPayload struct {
	TaskData
	ChangedFields map[string]FieldChange `json:"changedFields,omitempty"`
}

type StatusChangedPayload struct {
	OldStatus Status    `json:"oldStatus"`
	NewStatus Status    `json:"newStatus"`
	ChangedAt time.Time `json:"changedAt"`
	Reason    string    `json:"reason,omitempty"`
}

type DeletedPayload struct {
	Title     string    `json:"title"`
	Reason    string    `json:"reason,omitempty"`
	DeletedAt time.Time `json:"deletedAt"`
}

type AssignedPayload struct {
	AssignedTo string    `json:"assignedTo"`
	AssignedBy string    `json:"assignedBy,omitempty"`
	AssignedAt time.Time `json:"assignedAt"`
	Message    string    `json:"message,omitempty"`
}

type OverduePayload struct {
	Title        string    `json:"title"`
	DueDate      time.Time `json:"dueDate"`
	OverdueSince time.Time `json:"overdueSince"`
	DaysOverdue  int       `json:"daysOverdue"`
}

func (CreatedPayload) EventType() EventType       { return EventTaskCreated }
func (UpdatedPayload) EventType() EventType       { return EventTaskUpdated }
func (StatusChangedPayload) EventType() EventType { return EventTaskStatusChanged }
func (DeletedPayload) EventType() EventType       { return EventTaskDeleted }
func (AssignedPayload) EventType() EventType      { return EventTaskAssigned }
func (OverduePayload) EventType() EventType       { return EventTaskOverdue }

// Event is an envelope plus exactly one payload variant. Treat it as a value:
// the With* methods return modified copies.
type Event struct {
	Envelope
	Payload Payload `json:"payload"`
}

// EventMeta carries the contextual fields of an envelope.
type EventMeta struct {
	UserID        string
	CorrelationID string
	CausationID   string
	Now           time.Time
}

func newEvent(s Snapshot, meta EventMeta, eventType EventType) Event {
	now := meta.Now
	if now.IsZero() {
		now = time.Now()
	}
	userID := meta.UserID
	if userID == "" {
		userID = s.AssignedTo
	}
	return Event{
		Envelope: Envelope{
			EventID:       uuid.NewString(),
			EventType:     eventType,
			TaskID:        s.ID.String(),
			UserID:        userID,
			BoardID:       s.BoardID,
			Timestamp:     now.UTC(),
			CorrelationID: meta.CorrelationID,
			CausationID:   meta.CausationID,
			Version:       EventSchemaVersion,
		},
	}
}

func dataOf(s Snapshot) TaskData {
	return TaskData{
		Title:       s.Title,
		Description: s.Description,
		Status:      s.Status,
		Priority:    s.Priority,
		AssignedTo:  s.AssignedTo,
		DueDate:     copyTime(s.DueDate),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// NewTaskCreated builds a TaskCreated event.
func NewTaskCreated(s Snapshot, meta EventMeta) Event {
	ev := newEvent(s, meta, EventTaskCreated)
	ev.Payload = CreatedPayload{TaskData: dataOf(s)}
	return ev
}

// NewTaskUpdated builds a TaskUpdated event with the given changed fields.
func NewTaskUpdated(s Snapshot, changes map[string]FieldChange, meta EventMeta) Event {
	copied := make(map[string]FieldChange, len(changes))
	for k, v := range changes {
		copied[k] = v
	}
	ev := newEvent(s, meta, EventTaskUpdated)
	ev.Payload = UpdatedPayload{TaskData: dataOf(s), ChangedFields: copied}
	return ev
}

// NewTaskStatusChanged builds a TaskStatusChanged event.
func NewTaskStatusChanged(s Snapshot, oldStatus Status, reason string, meta EventMeta) Event {
	ev := newEvent(s, meta, EventTaskStatusChanged)
	ev.Payload = StatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: s.Status,
		ChangedAt: ev.Timestamp,
		Reason:    reason,
	}
	return ev
}

// NewTaskDeleted builds a TaskDeleted event.
func NewTaskDeleted(s Snapshot, reason string, meta EventMeta) Event {
	ev := newEvent(s, meta, EventTaskDeleted)
	ev.Payload = DeletedPayload{Title: s.Title, Reason: reason, DeletedAt: ev.Timestamp}
	return ev
}

// NewTaskAssigned builds a TaskAssigned event for the task's current assignee.
func NewTaskAssigned(s Snapshot, assignedBy, message string, meta EventMeta) Event {
	ev := newEvent(s, meta, EventTaskAssigned)
	ev.Payload = AssignedPayload{
		AssignedTo: s.AssignedTo,
		AssignedBy: assignedBy,
		AssignedAt: ev.Timestamp,
		Message:    message,
	}
	return ev
}

// NewTaskOverdue builds a TaskOverdue event. The snapshot must have a due date.
func NewTaskOverdue(s Snapshot, meta EventMeta) Event {
	ev := newEvent(s, meta, EventTaskOverdue)
	var due time.Time
	if s.DueDate != nil {
		due = s.DueDate.UTC()
	}
	ev.Payload = OverduePayload{
		Title:        s.Title,
		DueDate:      due,
		OverdueSince: due,
		DaysOverdue:  DaysOverdue(due, ev.Timestamp),
	}
	return ev
}

// DaysOverdue returns the whole days elapsed since due, or 0 if not past.
func DaysOverdue(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due) / (24 * time.Hour))
}

// Key returns the partition key for the event.
func (e Event) Key() string { return e.TaskID }

// WithCorrelationID returns a copy carrying the given correlation id.
func (e Event) WithCorrelationID(id string) Event {
	e.CorrelationID = id
	return e
}

type wireEvent struct {
	Envelope
	Payload json.RawMessage `json:"payload"`
}

// UnmarshalJSON decodes the payload variant named by eventType.
func (e *Event) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeEvent(data)
	if err != nil {
		return err
	}
	*e = decoded
	return nil
}

// DecodeEvent parses a serialized event, selecting the payload by its tag.
func DecodeEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("decode event envelope: %w", err)
	}

	var payload Payload
	var err error
	switch w.EventType {
	case EventTaskCreated:
		var p CreatedPayload
		err = decodePayload(w.Payload, &p)
		payload = p
	case EventTaskUpdated:
		var p UpdatedPayload
		err = decodePayload(w.Payload, &p)
		payload = p
	case EventTaskStatusChanged:
		var p StatusChangedPayload
		err = decodePayload(w.Payload, &p)
		payload = p
	case EventTaskDeleted:
		var p DeletedPayload
		err = decodePayload(w.Payload, &p)
		payload = p
	case EventTaskAssigned:
		var p AssignedPayload
		err = decodePayload(w.Payload, &p)
		payload = p
	case EventTaskOverdue:
		var p OverduePayload
		err = decodePayload(w.Payload, &p)
		payload = p
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEventType, w.EventType)
	}
	if err != nil {
		return Event{}, fmt.Errorf("decode %s payload: %w", w.EventType, err)
	}

	return Event{Envelope: w.Envelope, Payload: payload}, nil
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
