// Package deadletter models task events the transport rejected, archived for
// operator review.
package deadletter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidRecord = errors.New("invalid dead-letter record")

// Record is one archived dead-letter message.
type Record struct {
	ID            uuid.UUID `json:"id"`
	MessageID     string    `json:"messageId"`
	EventType     string    `json:"eventType"`
	TaskID        string    `json:"taskId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	ErrorMessage  string    `json:"errorMessage"`
	Payload       []byte    `json:"payload"`
	RetryCount    int       `json:"retryCount"`
	FailedAt      time.Time `json:"failedAt"`
	ArchivedAt    time.Time `json:"archivedAt"`
}

// Validate checks the fields required for archiving.
func (r Record) Validate() error {
	switch {
	case r.MessageID == "":
		return errors.Join(ErrInvalidRecord, errors.New("messageId is required"))
	case r.TaskID == "":
		return errors.Join(ErrInvalidRecord, errors.New("taskId is required"))
	case len(r.Payload) == 0:
		return errors.Join(ErrInvalidRecord, errors.New("payload is required"))
	}
	return nil
}

// Repository archives dead-letter records. Save is idempotent on MessageID.
type Repository interface {
	Save(ctx context.Context, r *Record) error
	// List returns records newest first.
	List(ctx context.Context, limit, offset int) ([]*Record, error)
	Count(ctx context.Context) (int64, error)
	// DeleteOlderThan removes records that failed before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
