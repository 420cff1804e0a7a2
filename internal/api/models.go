package api

import (
	"time"

	"github.com/phrazzld/taskmanager-api/internal/domain"
)

// TaskRequest is the body of POST /api/tasks and PUT /api/tasks/{id}.
// Absent fields are left to their defaults on create and unchanged on
// update. Timestamps are not accepted; an id is ignored on create.
type TaskRequest struct {
	ID          *domain.TaskID     `json:"id,omitempty"`
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Status      *domain.TaskStatus `json:"status,omitempty"`
	DueDate     *domain.Date       `json:"dueDate,omitempty"`
}

// Draft converts the request into a domain draft.
func (req TaskRequest) Draft() domain.TaskDraft {
	return domain.TaskDraft{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
	}
}

// TaskResponse represents the response data for a task
type TaskResponse struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Description *string           `json:"description"`
	Status      domain.TaskStatus `json:"status"`
	DueDate     *domain.Date      `json:"dueDate"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Overdue     bool              `json:"overdue"`
	DueToday    bool              `json:"dueToday"`
}

// StatsResponse reports how many tasks are in each status.
type StatsResponse struct {
	Counts map[domain.TaskStatus]int64 `json:"counts"`
	Total  int64                       `json:"total"`
}

// listQuery holds the query parameters of GET /api/tasks.
type listQuery struct {
	Status string `validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Search string `validate:"max=100"`
	Sort   string `validate:"omitempty,oneof=dueDate"`
}

// taskToResponse converts a domain.Task to a TaskResponse as of today.
func taskToResponse(task *domain.Task, today domain.Date) TaskResponse {
	return TaskResponse{
		ID:          task.ID.Int64(),
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		DueDate:     task.DueDate,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		Overdue:     task.IsOverdue(today),
		DueToday:    task.IsDueToday(today),
	}
}

func tasksToResponse(tasks []*domain.Task, today domain.Date) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, taskToResponse(task, today))
	}
	return out
}
