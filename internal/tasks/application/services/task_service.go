// Package services composes the task command and query handlers into the
// task orchestration service.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/commands"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/dto"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/queries"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
)

// Cache is the task keyspace as used by both sides of the service.
type Cache interface {
	commands.TaskCache
	queries.ReadCache
}

// Option configures a TaskService.
type Option func(*options)

type options struct {
	tx    commands.TxRunner
	clock func() time.Time
}

// WithTransactions runs read-modify-write operations inside tx.
func WithTransactions(tx commands.TxRunner) Option {
	return func(o *options) { o.tx = tx }
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// TaskService is the task orchestration service. Writes persist first, then
// refresh the cache and emit events; reads are cache-first.
type TaskService struct {
	create       *commands.CreateTaskHandler
	updateStatus *commands.UpdateTaskStatusHandler
	update       *commands.UpdateTaskHandler
	remove       *commands.DeleteTaskHandler
	sweep        *commands.SweepOverdueHandler

	get   *queries.GetTaskHandler
	list  *queries.ListTasksHandler
	count *queries.CountTasksHandler

	tracer trace.Tracer
	logger *slog.Logger
}

// NewTaskService wires the handlers over the given collaborators.
func NewTaskService(repo task.Repository, cache Cache, publisher commands.EventPublisher, logger *slog.Logger, opts ...Option) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	deps := commands.Deps{
		Repo:      repo,
		Cache:     cache,
		Publisher: publisher,
		Tx:        o.tx,
		Logger:    logger,
		Clock:     o.clock,
	}
	list := queries.NewListTasksHandler(repo, cache, logger, o.clock)

	return &TaskService{
		create:       commands.NewCreateTaskHandler(deps),
		updateStatus: commands.NewUpdateTaskStatusHandler(deps),
		update:       commands.NewUpdateTaskHandler(deps),
		remove:       commands.NewDeleteTaskHandler(deps),
		sweep:        commands.NewSweepOverdueHandler(list, deps),
		get:          queries.NewGetTaskHandler(repo, cache, logger, o.clock),
		list:         list,
		count:        queries.NewCountTasksHandler(repo, cache, logger),
		tracer:       otel.Tracer("taskcore/tasks"),
		logger:       logger,
	}
}

func (s *TaskService) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "tasks."+op, trace.WithAttributes(attrs...))
}

// end records err on the span. Not-found and validation failures are caller
// errors and leave the span status unset.
func end(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		return
	}
	span.RecordError(err)
	if errors.Is(err, task.ErrNotFound) || errors.Is(err, task.ErrValidation) {
		return
	}
	span.SetStatus(codes.Error, err.Error())
}

// Writes

// Create creates a task.
func (s *TaskService) Create(ctx context.Context, cmd commands.CreateTaskCommand) (_ dto.TaskDTO, err error) {
	ctx, span := s.start(ctx, "Create", attribute.String("task.board_id", cmd.BoardID))
	defer func() { end(span, err) }()
	return s.create.Handle(ctx, cmd)
}

// UpdateStatus moves a task to a new status.
func (s *TaskService) UpdateStatus(ctx context.Context, cmd commands.UpdateTaskStatusCommand) (_ dto.TaskDTO, err error) {
	ctx, span := s.start(ctx, "UpdateStatus",
		attribute.String("task.id", cmd.TaskID),
		attribute.String("task.status", cmd.Status),
	)
	defer func() { end(span, err) }()
	return s.updateStatus.Handle(ctx, cmd)
}

// Update changes task fields.
func (s *TaskService) Update(ctx context.Context, cmd commands.UpdateTaskCommand) (_ dto.TaskDTO, err error) {
	ctx, span := s.start(ctx, "Update", attribute.String("task.id", cmd.TaskID))
	defer func() { end(span, err) }()
	return s.update.Handle(ctx, cmd)
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, cmd commands.DeleteTaskCommand) (err error) {
	ctx, span := s.start(ctx, "Delete", attribute.String("task.id", cmd.TaskID))
	defer func() { end(span, err) }()
	return s.remove.Handle(ctx, cmd)
}

// SweepOverdue emits overdue events for the current overdue set.
func (s *TaskService) SweepOverdue(ctx context.Context) (_ commands.SweepResult, err error) {
	ctx, span := s.start(ctx, "SweepOverdue")
	defer func() { end(span, err) }()
	result, err := s.sweep.Handle(ctx)
	span.SetAttributes(attribute.Int("tasks.overdue", result.Overdue))
	return result, err
}

// Reads

// Get returns a task by id.
func (s *TaskService) Get(ctx context.Context, taskID string) (_ dto.TaskDTO, err error) {
	ctx, span := s.start(ctx, "Get", attribute.String("task.id", taskID))
	defer func() { end(span, err) }()
	return s.get.Handle(ctx, queries.GetTaskQuery{TaskID: taskID})
}

// ListByBoard lists a board's tasks.
func (s *TaskService) ListByBoard(ctx context.Context, boardID string) (_ []dto.TaskDTO, err error) {
	ctx, span := s.start(ctx, "ListByBoard", attribute.String("task.board_id", boardID))
	defer func() { end(span, err) }()
	return s.list.ByBoard(ctx, boardID)
}

// ListByBoardOrdered lists a board's tasks, newest first.
func (s *TaskService) ListByBoardOrdered(ctx context.Context, boardID string) (_ []dto.TaskDTO, err error) {
	ctx, span := s.start(ctx, "ListByBoardOrdered", attribute.String("task.board_id", boardID))
	defer func() { end(span, err) }()
	return s.list.ByBoardOrdered(ctx, boardID)
}

// ListByBoardAndStatus lists a board's tasks in one status.
func (s *TaskService) ListByBoardAndStatus(ctx context.Context, boardID, status string) (_ []dto.TaskDTO, err error) {
	ctx, span := s.start(ctx, "ListByBoardAndStatus",
		attribute.String("task.board_id", boardID),
		attribute.String("task.status", status),
	)
	defer func() { end(span, err) }()
	return s.list.ByBoardAndStatus(ctx, boardID, status)
}

// ListByAssignee lists a user's tasks.
func (s *TaskService) ListByAssignee(ctx context.Context, userID string) (_ []dto.TaskDTO, err error) {
	ctx, span := s.start(ctx, "ListByAssignee", attribute.String("task.assignee", userID))
	defer func() { end(span, err) }()
	return s.list.ByAssignee(ctx, userID)
}

// ListByAssigneeAndStatus lists a user's tasks in one status.
func (s *TaskService) ListByAssigneeAndStatus(ctx context.Context, userID, status string) (_ []dto.TaskDTO, err error) {
	ctx, span := s.start(ctx, "ListByAssigneeAndStatus",
		attribute.String("task.assignee", userID),
		attribute.String("task.status", status),
	)
	defer func() { end(span, err) }()
	return s.list.ByAssigneeAndStatus(ctx, userID, status)
}

// ListByStatus lists every task in one status, bypassing the cache.
func (s *TaskService) ListByStatus(ctx context.Context, status string) (_ []dto.TaskDTO, err error) {
	ctx, span := s.start(ctx, "ListByStatus", attribute.String("task.status", status))
	defer func() { end(span, err) }()
	return s.list.ByStatus(ctx, status)
}

// ListOverdue lists overdue tasks.
func (s *TaskService) ListOverdue(ctx context.Context) (_ []dto.TaskDTO, err error) {
	ctx, span := s.start(ctx, "ListOverdue")
	defer func() { end(span, err) }()
	return s.list.Overdue(ctx)
}

// CountByBoardAndStatus counts a board's tasks in one status.
func (s *TaskService) CountByBoardAndStatus(ctx context.Context, boardID, status string) (_ int64, err error) {
	ctx, span := s.start(ctx, "CountByBoardAndStatus",
		attribute.String("task.board_id", boardID),
		attribute.String("task.status", status),
	)
	defer func() { end(span, err) }()
	return s.count.Handle(ctx, queries.CountTasksQuery{BoardID: boardID, Status: status})
}
