package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskmanager-api/internal/api/shared"
	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/phrazzld/taskmanager-api/internal/service"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if taskService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("taskService cannot be nil for TaskHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// RegisterRoutes registers the task endpoints on r, which is expected to
// be mounted at /api/tasks.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListTasks)
	r.Post("/", h.CreateTask)
	r.Get("/overdue", h.ListOverdue)
	r.Get("/due-today", h.ListDueToday)
	r.Get("/stats", h.GetStats)
	r.Get("/{id}", h.GetTask)
	r.Put("/{id}", h.ReplaceTask)
	r.Patch("/{id}/status", h.SetStatus)
	r.Delete("/{id}", h.DeleteTask)
}

// ListTasks handles GET /api/tasks requests.
// Optional query parameters: status (exact match), search (title
// substring, ignoring case) and sort=dueDate. search and sort are
// mutually exclusive.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	q := r.URL.Query()
	query := listQuery{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
	}
	if err := shared.ValidateRequest(query); err != nil {
		HandleAPIError(w, r, queryError(err))
		return
	}
	if query.Search != "" && query.Sort != "" {
		HandleAPIError(w, r, fmt.Errorf("%w: search and sort cannot be combined", ErrInvalidQuery))
		return
	}

	var status *domain.TaskStatus
	if query.Status != "" {
		s := domain.TaskStatus(query.Status)
		status = &s
	}

	log.Debug("listing tasks",
		slog.String("status", query.Status),
		slog.String("search", query.Search),
		slog.String("sort", query.Sort))

	var (
		tasks []*domain.Task
		err   error
	)
	switch {
	case query.Search != "":
		tasks, err = h.taskService.SearchTasks(r.Context(), query.Search)
		tasks = domain.FilterByStatus(tasks, status)
	case query.Sort != "":
		tasks, err = h.taskService.ListByDueDate(r.Context())
		tasks = domain.FilterByStatus(tasks, status)
	default:
		tasks, err = h.taskService.ListTasks(r.Context(), status)
	}
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks, h.taskService.Today()))
}

// GetTask handles GET /api/tasks/{id} requests
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, ok := handlePathID(w, r, log)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, id)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task, h.taskService.Today()))
}

// ListOverdue handles GET /api/tasks/overdue requests
func (h *TaskHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.ListOverdue(r.Context())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks, h.taskService.Today()))
}

// ListDueToday handles GET /api/tasks/due-today requests
func (h *TaskHandler) ListDueToday(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.ListDueToday(r.Context())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks, h.taskService.Today()))
}

// GetStats handles GET /api/tasks/stats requests
func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.taskService.CountByStatus(r.Context())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	shared.RespondWithJSON(w, r, http.StatusOK, StatsResponse{Counts: counts, Total: total})
}

// CreateTask handles POST /api/tasks requests.
// Any id in the body is ignored.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req TaskRequest
	if err := decodeBody(r, &req); err != nil {
		log.Debug("invalid create request body", slog.String("error", err.Error()))
		HandleAPIError(w, r, err)
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), req.Draft())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", task.ID.Int64()))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task, h.taskService.Today()))
}

// ReplaceTask handles PUT /api/tasks/{id} requests.
// Fields absent from the body keep their stored values.
func (h *TaskHandler) ReplaceTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, ok := handlePathID(w, r, log)
	if !ok {
		return
	}

	var req TaskRequest
	if err := decodeBody(r, &req); err != nil {
		log.Debug("invalid update request body", slog.String("error", err.Error()))
		HandleAPIError(w, r, err)
		return
	}
	if req.ID != nil {
		if bodyID, assigned := req.ID.Get(); assigned && bodyID != id {
			HandleAPIError(w, r, fmt.Errorf("%w: body %d, path %d", ErrIDMismatch, bodyID, id))
			return
		}
	}

	task, err := h.taskService.ReplaceTask(r.Context(), id, req.Draft())
	if err != nil {
		HandleAPIError(w, r, err, id)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task, h.taskService.Today()))
}

// SetStatus handles PATCH /api/tasks/{id}/status?status= requests
func (h *TaskHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, ok := handlePathID(w, r, log)
	if !ok {
		return
	}

	status, err := domain.ParseTaskStatus(r.URL.Query().Get("status"))
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	task, err := h.taskService.SetStatus(r.Context(), id, status)
	if err != nil {
		HandleAPIError(w, r, err, id)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task, h.taskService.Today()))
}

// DeleteTask handles DELETE /api/tasks/{id} requests
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, ok := handlePathID(w, r, log)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// queryError turns struct validation failures on listQuery into an
// ErrInvalidQuery naming the offending parameter.
func queryError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		if validationErrs[0].Field() == "Status" {
			return fmt.Errorf("%w: %q", domain.ErrInvalidTaskStatus, validationErrs[0].Value())
		}
		return fmt.Errorf("%w: %s", ErrInvalidQuery, validationErrs[0].Field())
	}
	return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
}
