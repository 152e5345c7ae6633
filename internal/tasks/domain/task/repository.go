package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for task persistence.
// FindByID returns ErrNotFound when the task does not exist.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)
	Save(ctx context.Context, task *Task) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	FindByBoardID(ctx context.Context, boardID string) ([]*Task, error)
	FindByAssignedTo(ctx context.Context, userID string) ([]*Task, error)
	FindByStatus(ctx context.Context, status Status) ([]*Task, error)
	FindByBoardIDAndStatus(ctx context.Context, boardID string, status Status) ([]*Task, error)
	FindByBoardIDOrderByCreatedAtDesc(ctx context.Context, boardID string) ([]*Task, error)
	FindByAssignedToAndStatus(ctx context.Context, userID string, status Status) ([]*Task, error)
	// FindOverdue returns tasks with due date before now that are not DONE.
	FindOverdue(ctx context.Context, now time.Time) ([]*Task, error)
	CountByBoardIDAndStatus(ctx context.Context, boardID string, status Status) (int64, error)
}
