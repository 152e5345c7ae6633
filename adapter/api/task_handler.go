package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/commands"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/dto"
)

// TaskService is the application surface the task routes call.
type TaskService interface {
	Create(ctx context.Context, cmd commands.CreateTaskCommand) (dto.TaskDTO, error)
	Update(ctx context.Context, cmd commands.UpdateTaskCommand) (dto.TaskDTO, error)
	UpdateStatus(ctx context.Context, cmd commands.UpdateTaskStatusCommand) (dto.TaskDTO, error)
	Delete(ctx context.Context, cmd commands.DeleteTaskCommand) error
	Get(ctx context.Context, taskID string) (dto.TaskDTO, error)
	ListByBoard(ctx context.Context, boardID string) ([]dto.TaskDTO, error)
	ListByBoardOrdered(ctx context.Context, boardID string) ([]dto.TaskDTO, error)
	ListByBoardAndStatus(ctx context.Context, boardID, status string) ([]dto.TaskDTO, error)
	ListByAssignee(ctx context.Context, userID string) ([]dto.TaskDTO, error)
	ListByAssigneeAndStatus(ctx context.Context, userID, status string) ([]dto.TaskDTO, error)
	ListByStatus(ctx context.Context, status string) ([]dto.TaskDTO, error)
	ListOverdue(ctx context.Context) ([]dto.TaskDTO, error)
	CountByBoardAndStatus(ctx context.Context, boardID, status string) (int64, error)
}

// TaskHandler handles task API requests.
type TaskHandler struct {
	service TaskService
	logger  *slog.Logger
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(service TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{service: service, logger: logger}
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	BoardID     string     `json:"boardId"`
	Priority    string     `json:"priority"`
	AssignedTo  string     `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
}

type updateTaskRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Priority     *string    `json:"priority"`
	AssignedTo   *string    `json:"assignedTo"`
	BoardID      *string    `json:"boardId"`
	DueDate      *time.Time `json:"dueDate"`
	ClearDueDate bool       `json:"clearDueDate"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Create handles POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "create", err)
		return
	}

	result, err := h.service.Create(r.Context(), commands.CreateTaskCommand{
		Title:       req.Title,
		Description: req.Description,
		BoardID:     req.BoardID,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Get handles GET /api/tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Update handles PUT /api/tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "update", err)
		return
	}

	result, err := h.service.Update(r.Context(), commands.UpdateTaskCommand{
		TaskID:       r.PathValue("id"),
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		AssignedTo:   req.AssignedTo,
		BoardID:      req.BoardID,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// UpdateStatus handles PATCH /api/tasks/{id}/status
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "update_status", err)
		return
	}

	result, err := h.service.UpdateStatus(r.Context(), commands.UpdateTaskStatusCommand{
		TaskID: r.PathValue("id"),
		Status: req.Status,
		Reason: req.Reason,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "update_status", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /api/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), commands.DeleteTaskCommand{
		TaskID: r.PathValue("id"),
		Reason: r.URL.Query().Get("reason"),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListByBoard handles GET /api/tasks/board/{boardId}, optionally filtered by ?status=.
func (h *TaskHandler) ListByBoard(w http.ResponseWriter, r *http.Request) {
	boardID := r.PathValue("boardId")
	var (
		result []dto.TaskDTO
		err    error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		result, err = h.service.ListByBoardAndStatus(r.Context(), boardID, status)
	} else {
		result, err = h.service.ListByBoard(r.Context(), boardID)
	}
	h.writeList(w, r, "list_by_board", result, err)
}

// ListByBoardOrdered handles GET /api/tasks/board/{boardId}/ordered
func (h *TaskHandler) ListByBoardOrdered(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListByBoardOrdered(r.Context(), r.PathValue("boardId"))
	h.writeList(w, r, "list_by_board_ordered", result, err)
}

// CountByBoard handles GET /api/tasks/board/{boardId}/count?status=
func (h *TaskHandler) CountByBoard(w http.ResponseWriter, r *http.Request) {
	boardID := r.PathValue("boardId")
	status := r.URL.Query().Get("status")
	if status == "" {
		writeError(w, r, http.StatusBadRequest, "Query parameter 'status' is required")
		return
	}

	n, err := h.service.CountByBoardAndStatus(r.Context(), boardID, status)
	if err != nil {
		writeServiceError(w, r, h.logger, "count_by_board", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"boardId": boardID,
		"status":  status,
		"count":   n,
	})
}

// ListByAssignee handles GET /api/tasks/assignee/{userId}, optionally filtered by ?status=.
func (h *TaskHandler) ListByAssignee(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	var (
		result []dto.TaskDTO
		err    error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		result, err = h.service.ListByAssigneeAndStatus(r.Context(), userID, status)
	} else {
		result, err = h.service.ListByAssignee(r.Context(), userID)
	}
	h.writeList(w, r, "list_by_assignee", result, err)
}

// ListByStatus handles GET /api/tasks/status/{status}
func (h *TaskHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListByStatus(r.Context(), r.PathValue("status"))
	h.writeList(w, r, "list_by_status", result, err)
}

// ListOverdue handles GET /api/tasks/overdue
func (h *TaskHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListOverdue(r.Context())
	h.writeList(w, r, "list_overdue", result, err)
}

func (h *TaskHandler) writeList(w http.ResponseWriter, r *http.Request, op string, result []dto.TaskDTO, err error) {
	if err != nil {
		writeServiceError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
