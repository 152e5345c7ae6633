package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/commands"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/dto"
)

type taskCreateInput struct {
	Title       string `json:"title" jsonschema:"required"`
	BoardID     string `json:"board_id" jsonschema:"required"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

type taskUpdateInput struct {
	TaskID       string `json:"task_id" jsonschema:"required"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	Priority     string `json:"priority,omitempty"`
	AssignedTo   string `json:"assigned_to,omitempty"`
	BoardID      string `json:"board_id,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	ClearDueDate bool   `json:"clear_due_date,omitempty"`
}

type taskStatusInput struct {
	TaskID string `json:"task_id" jsonschema:"required"`
	Status string `json:"status" jsonschema:"required"`
	Reason string `json:"reason,omitempty"`
}

type taskDeleteInput struct {
	TaskID string `json:"task_id" jsonschema:"required"`
	Reason string `json:"reason,omitempty"`
}

type taskIDInput struct {
	TaskID string `json:"task_id" jsonschema:"required"`
}

type taskListInput struct {
	BoardID  string `json:"board_id,omitempty"`
	Assignee string `json:"assignee,omitempty"`
	Status   string `json:"status,omitempty"`
	Ordered  bool   `json:"ordered,omitempty"`
	Overdue  bool   `json:"overdue,omitempty"`
}

type taskCountInput struct {
	BoardID string `json:"board_id" jsonschema:"required"`
	Status  string `json:"status" jsonschema:"required"`
}

type taskCountOutput struct {
	BoardID string `json:"board_id"`
	Status  string `json:"status"`
	Count   int64  `json:"count"`
}

type emptyInput struct{}

type deleteOutput struct {
	TaskID  string `json:"task_id"`
	Deleted bool   `json:"deleted"`
}

func registerTaskTools(srv *mcp.Server, deps ToolDependencies) error {
	tasks := deps.Tasks

	srv.Tool("task.create").
		Description("Create a task on a board").
		Handler(func(ctx context.Context, input taskCreateInput) (dto.TaskDTO, error) {
			due, err := parseDueDate(input.DueDate)
			if err != nil {
				return dto.TaskDTO{}, err
			}
			return tasks.Create(ctx, commands.CreateTaskCommand{
				Title:       input.Title,
				Description: input.Description,
				BoardID:     input.BoardID,
				Priority:    input.Priority,
				AssignedTo:  input.AssignedTo,
				DueDate:     due,
			})
		})

	srv.Tool("task.get").
		Description("Get a task by id").
		Handler(func(ctx context.Context, input taskIDInput) (dto.TaskDTO, error) {
			return tasks.Get(ctx, input.TaskID)
		})

	srv.Tool("task.update").
		Description("Update task fields; omitted fields are left unchanged").
		Handler(func(ctx context.Context, input taskUpdateInput) (dto.TaskDTO, error) {
			due, err := parseDueDate(input.DueDate)
			if err != nil {
				return dto.TaskDTO{}, err
			}
			return tasks.Update(ctx, commands.UpdateTaskCommand{
				TaskID:       input.TaskID,
				Title:        optionalString(input.Title),
				Description:  optionalString(input.Description),
				Priority:     optionalString(input.Priority),
				AssignedTo:   optionalString(input.AssignedTo),
				BoardID:      optionalString(input.BoardID),
				DueDate:      due,
				ClearDueDate: input.ClearDueDate,
			})
		})

	srv.Tool("task.status").
		Description("Change the status of a task (TODO, IN_PROGRESS, DONE)").
		Handler(func(ctx context.Context, input taskStatusInput) (dto.TaskDTO, error) {
			return tasks.UpdateStatus(ctx, commands.UpdateTaskStatusCommand{
				TaskID: input.TaskID,
				Status: input.Status,
				Reason: input.Reason,
			})
		})

	srv.Tool("task.delete").
		Description("Delete a task").
		Handler(func(ctx context.Context, input taskDeleteInput) (deleteOutput, error) {
			if err := tasks.Delete(ctx, commands.DeleteTaskCommand{TaskID: input.TaskID, Reason: input.Reason}); err != nil {
				return deleteOutput{}, err
			}
			return deleteOutput{TaskID: input.TaskID, Deleted: true}, nil
		})

	srv.Tool("task.list").
		Description("List tasks by board, assignee, status or overdue flag").
		Handler(func(ctx context.Context, input taskListInput) ([]dto.TaskDTO, error) {
			switch {
			case input.Overdue:
				return tasks.ListOverdue(ctx)
			case input.BoardID != "" && input.Ordered:
				return tasks.ListByBoardOrdered(ctx, input.BoardID)
			case input.BoardID != "" && input.Status != "":
				return tasks.ListByBoardAndStatus(ctx, input.BoardID, input.Status)
			case input.BoardID != "":
				return tasks.ListByBoard(ctx, input.BoardID)
			case input.Assignee != "" && input.Status != "":
				return tasks.ListByAssigneeAndStatus(ctx, input.Assignee, input.Status)
			case input.Assignee != "":
				return tasks.ListByAssignee(ctx, input.Assignee)
			case input.Status != "":
				return tasks.ListByStatus(ctx, input.Status)
			default:
				return nil, errors.New("one of board_id, assignee, status or overdue is required")
			}
		})

	srv.Tool("task.count").
		Description("Count the tasks of a board in a status").
		Handler(func(ctx context.Context, input taskCountInput) (taskCountOutput, error) {
			n, err := tasks.CountByBoardAndStatus(ctx, input.BoardID, input.Status)
			if err != nil {
				return taskCountOutput{}, err
			}
			return taskCountOutput{BoardID: input.BoardID, Status: input.Status, Count: n}, nil
		})

	srv.Tool("task.sweep_overdue").
		Description("Emit overdue events and notifications for every overdue task").
		Handler(func(ctx context.Context, _ emptyInput) (commands.SweepResult, error) {
			return tasks.SweepOverdue(ctx)
		})

	return nil
}
