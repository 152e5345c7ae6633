// Package messaging publishes task events and their side-channel messages.
package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Channel names.
const (
	ChannelTaskEvents    = "task-events"
	ChannelNotifications = "task-notifications"
	ChannelAnalytics     = "task-analytics"
	ChannelDeadLetter    = "task-events-dlq"
)

// Channels returns every channel the publisher writes to.
func Channels() []string {
	return []string{ChannelTaskEvents, ChannelNotifications, ChannelAnalytics, ChannelDeadLetter}
}

// Message type labels used for headers and metrics of non-event messages.
const (
	TypeNotification = "Notification"
	TypeAnalytics    = "Analytics"
	TypeDeadLetter   = "DeadLetter"
)

// Notification types emitted by the task service.
const (
	NotificationTaskCompleted = "task_completed"
	NotificationTaskOverdue   = "task_overdue"
)

// Notification is a user-facing message keyed by user id.
type Notification struct {
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalyticsEvent is a free-form analytics record keyed by board id.
type AnalyticsEvent struct {
	EventID   string         `json:"eventId"`
	EventType string         `json:"eventType"`
	UserID    string         `json:"userId,omitempty"`
	BoardID   string         `json:"boardId"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// DeadLetterMessage wraps an event the transport rejected.
type DeadLetterMessage struct {
	MessageID     string          `json:"messageId"`
	OriginalEvent json.RawMessage `json:"originalEvent"`
	EventType     string          `json:"eventType"`
	TaskID        string          `json:"taskId"`
	ErrorMessage  string          `json:"errorMessage"`
	FailedAt      time.Time       `json:"failedAt"`
	RetryCount    int             `json:"retryCount"`
}

// NewNotification builds a notification stamped with now.
func NewNotification(userID, message, notificationType string, now time.Time) Notification {
	return Notification{
		EventID:   uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Type:      notificationType,
		Timestamp: now.UTC(),
	}
}

// NewAnalyticsEvent builds an analytics record stamped with now.
func NewAnalyticsEvent(eventType, userID, boardID string, data map[string]any, now time.Time) AnalyticsEvent {
	return AnalyticsEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		UserID:    userID,
		BoardID:   boardID,
		Data:      data,
		Timestamp: now.UTC(),
	}
}
