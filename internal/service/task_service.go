package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/events"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/phrazzld/taskmanager-api/internal/store"
)

// TaskService provides task-related operations
type TaskService interface {
	// Today returns the current calendar date as seen by the service clock.
	Today() domain.Date

	// ListTasks returns every task, or only those with *status when status is non-nil.
	ListTasks(ctx context.Context, status *domain.TaskStatus) ([]*domain.Task, error)

	// GetTask retrieves a task by id. Returns ErrTaskNotFound if it does not exist.
	GetTask(ctx context.Context, id int64) (*domain.Task, error)

	// ListOverdue returns the tasks due before today that are not DONE.
	ListOverdue(ctx context.Context) ([]*domain.Task, error)

	// ListDueToday returns the tasks due today, whatever their status.
	ListDueToday(ctx context.Context) ([]*domain.Task, error)

	// ListByDueDate returns every task ordered by due date, undated tasks last.
	ListByDueDate(ctx context.Context) ([]*domain.Task, error)

	// SearchTasks returns the tasks whose title contains term, ignoring case.
	SearchTasks(ctx context.Context, term string) ([]*domain.Task, error)

	// CountByStatus returns the number of tasks for every known status.
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error)

	// TitleExists reports whether a task with exactly this title exists, ignoring case.
	TitleExists(ctx context.Context, title string) (bool, error)

	// CreateTask validates the draft and persists a new task.
	// The status defaults to TODO. Returns a *domain.ValidationError on invalid input.
	CreateTask(ctx context.Context, draft domain.TaskDraft) (*domain.Task, error)

	// ReplaceTask merges the present draft fields into an existing task.
	// Returns ErrTaskNotFound or a *domain.ValidationError.
	ReplaceTask(ctx context.Context, id int64, draft domain.TaskDraft) (*domain.Task, error)

	// SetStatus changes only the status of an existing task.
	// Returns ErrTaskNotFound or a *domain.ValidationError for an unknown status.
	SetStatus(ctx context.Context, id int64, status domain.TaskStatus) (*domain.Task, error)

	// DeleteTask removes a task. Returns ErrTaskNotFound if it does not exist.
	DeleteTask(ctx context.Context, id int64) error
}

// Option configures a TaskService.
type Option func(*taskServiceImpl)

// WithClock replaces the clock used to decide what "today" is.
func WithClock(now func() time.Time) Option {
	return func(s *taskServiceImpl) {
		if now != nil {
			s.now = now
		}
	}
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	taskStore    store.TaskStore
	eventEmitter events.EventEmitter
	logger       *slog.Logger
	now          func() time.Time
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
	opts ...Option,
) (TaskService, error) {
	if taskStore == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "taskStore cannot be nil",
		}
	}
	if eventEmitter == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "eventEmitter cannot be nil",
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &taskServiceImpl{
		taskStore:    taskStore,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "task_service"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *taskServiceImpl) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger)
}

// Today uses the local calendar of the service clock.
func (s *taskServiceImpl) Today() domain.Date {
	return domain.DateOf(s.now())
}

func (s *taskServiceImpl) ListTasks(
	ctx context.Context,
	status *domain.TaskStatus,
) ([]*domain.Task, error) {
	var (
		tasks []*domain.Task
		err   error
	)
	if status != nil {
		tasks, err = s.taskStore.ListByStatus(ctx, *status)
	} else {
		tasks, err = s.taskStore.List(ctx)
	}
	if err != nil {
		s.log(ctx).Error("failed to list tasks", "error", err, "status", status)
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			s.log(ctx).Debug("task not found", "task_id", id)
			return nil, ErrTaskNotFound
		}
		s.log(ctx).Error("failed to retrieve task", "error", err, "task_id", id)
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}
	return task, nil
}

func (s *taskServiceImpl) ListOverdue(ctx context.Context) ([]*domain.Task, error) {
	today := s.Today()
	tasks, err := s.taskStore.ListDueBefore(ctx, today, domain.TaskStatusDone)
	if err != nil {
		s.log(ctx).Error("failed to list overdue tasks", "error", err, "today", today)
		return nil, NewTaskServiceError("list_overdue", "failed to list overdue tasks", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) ListDueToday(ctx context.Context) ([]*domain.Task, error) {
	today := s.Today()
	tasks, err := s.taskStore.ListByDueDate(ctx, today)
	if err != nil {
		s.log(ctx).Error("failed to list tasks due today", "error", err, "today", today)
		return nil, NewTaskServiceError("list_due_today", "failed to list tasks due today", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) ListByDueDate(ctx context.Context) ([]*domain.Task, error) {
	tasks, err := s.taskStore.ListOrderedByDueDate(ctx)
	if err != nil {
		s.log(ctx).Error("failed to list tasks by due date", "error", err)
		return nil, NewTaskServiceError("list_by_due_date", "failed to list tasks by due date", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) SearchTasks(ctx context.Context, term string) ([]*domain.Task, error) {
	tasks, err := s.taskStore.SearchByTitle(ctx, term)
	if err != nil {
		s.log(ctx).Error("failed to search tasks", "error", err, "term", term)
		return nil, NewTaskServiceError("search_tasks", "failed to search tasks", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	counts := make(map[domain.TaskStatus]int64, len(domain.AllTaskStatuses()))
	for _, status := range domain.AllTaskStatuses() {
		n, err := s.taskStore.CountByStatus(ctx, status)
		if err != nil {
			s.log(ctx).Error("failed to count tasks", "error", err, "status", status)
			return nil, NewTaskServiceError("count_by_status", "failed to count tasks", err)
		}
		counts[status] = n
	}
	return counts, nil
}

func (s *taskServiceImpl) TitleExists(ctx context.Context, title string) (bool, error) {
	exists, err := s.taskStore.ExistsByTitle(ctx, title)
	if err != nil {
		s.log(ctx).Error("failed to check task title", "error", err)
		return false, NewTaskServiceError("title_exists", "failed to check task title", err)
	}
	return exists, nil
}

func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	draft domain.TaskDraft,
) (*domain.Task, error) {
	// 1. Build and validate the transient task
	task, err := domain.NewTask(draft)
	if err != nil {
		s.log(ctx).Debug("rejected invalid task", "error", err)
		return nil, NewTaskServiceError("create_task", "invalid task", err)
	}

	// 2. Persist it
	created, err := s.taskStore.Create(ctx, task)
	if err != nil {
		s.log(ctx).Error("failed to save task", "error", err)
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	s.log(ctx).Info("task created",
		"task_id", created.ID,
		"status", created.Status)

	// 3. Announce it
	s.emit(ctx, events.NewTaskEvent(events.TaskCreated, created))

	return created, nil
}

func (s *taskServiceImpl) ReplaceTask(
	ctx context.Context,
	id int64,
	draft domain.TaskDraft,
) (*domain.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	task.Apply(draft)
	if err := task.Validate(); err != nil {
		s.log(ctx).Debug("rejected invalid task update", "error", err, "task_id", id)
		return nil, NewTaskServiceError("replace_task", "invalid task", err)
	}

	updated, err := s.taskStore.Update(ctx, task)
	if err != nil {
		s.log(ctx).Error("failed to update task", "error", err, "task_id", id)
		return nil, NewTaskServiceError("replace_task", "failed to update task", err)
	}

	s.log(ctx).Info("task updated", "task_id", id)
	s.emit(ctx, events.NewTaskEvent(events.TaskUpdated, updated))

	return updated, nil
}

func (s *taskServiceImpl) SetStatus(
	ctx context.Context,
	id int64,
	status domain.TaskStatus,
) (*domain.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := task.Status
	task.Status = status
	if err := task.Validate(); err != nil {
		s.log(ctx).Debug("rejected status change", "error", err, "task_id", id, "status", status)
		return nil, NewTaskServiceError("set_status", "invalid status", err)
	}

	updated, err := s.taskStore.Update(ctx, task)
	if err != nil {
		s.log(ctx).Error("failed to update task status",
			"error", err,
			"task_id", id,
			"status", status)
		return nil, NewTaskServiceError("set_status", "failed to update task status", err)
	}

	s.log(ctx).Info("task status changed",
		"task_id", id,
		"previous_status", previous,
		"status", updated.Status)
	s.emit(ctx, events.NewStatusChangedEvent(updated, previous))

	return updated, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, id int64) error {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if err := s.taskStore.Delete(ctx, id); err != nil {
		s.log(ctx).Error("failed to delete task", "error", err, "task_id", id)
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	s.log(ctx).Info("task deleted", "task_id", id)
	s.emit(ctx, events.NewTaskEvent(events.TaskDeleted, task))

	return nil
}

// emit publishes event; a failure is logged and otherwise ignored.
func (s *taskServiceImpl) emit(ctx context.Context, event *events.TaskEvent) {
	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		s.log(ctx).Error("failed to emit task event",
			"error", err,
			"event_id", event.ID,
			"event_type", event.Type,
			"task_id", event.TaskID)
	}
}
