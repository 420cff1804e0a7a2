package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/phrazzld/taskmanager-api/internal/store"
	"gorm.io/gorm"
)

// taskRecord is the row layout of the tasks table.
type taskRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"size:100;not null"`
	TitleFold   string    `gorm:"not null;default:'';index:idx_title_fold"`
	Description *string   `gorm:"size:500"`
	Status      string    `gorm:"size:20;not null;index:idx_status"`
	DueDate     *string   `gorm:"type:varchar(10);index:idx_due_date"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false"`
}

// TableName overrides the gorm default.
func (taskRecord) TableName() string {
	return "tasks"
}

func recordFromTask(task *domain.Task) taskRecord {
	rec := taskRecord{
		Title:       task.Title,
		TitleFold:   foldTitle(task.Title),
		Description: task.Description,
		Status:      string(task.Status),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	if id, ok := task.ID.Get(); ok {
		rec.ID = id
	}
	if task.DueDate != nil {
		due := task.DueDate.String()
		rec.DueDate = &due
	}
	return rec
}

func (r taskRecord) toTask() (*domain.Task, error) {
	task := &domain.Task{
		ID:          domain.AssignedID(r.ID),
		Title:       r.Title,
		Description: r.Description,
		Status:      domain.TaskStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.DueDate != nil {
		due, err := domain.ParseDate(*r.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDate = &due
	}
	return task, nil
}

// Option customizes a TaskStore.
type Option func(*TaskStore)

// WithClock replaces the clock used to stamp CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *TaskStore) {
		s.now = now
	}
}

// TaskStore implements store.TaskStore on top of gorm.
type TaskStore struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a TaskStore over an already migrated database.
// It panics if db is nil.
func NewTaskStore(db *gorm.DB, log *slog.Logger, opts ...Option) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &TaskStore{
		db:     db,
		logger: log.With(slog.String("component", "sqlite_task_store")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *TaskStore) storageError(ctx context.Context, op, msg string, err error) error {
	logger.FromContextOrDefault(ctx, s.logger).Error(msg,
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return store.NewStoreError("task", op, msg, err)
}

// Create implements store.TaskStore.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task.ID.IsAssigned() {
		return nil, store.NewStoreError("task", "create", "task already has an id", store.ErrInvalidEntity)
	}

	now := s.timestamp()
	rec := recordFromTask(task)
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, s.storageError(ctx, "create", "failed to insert task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task created",
		slog.Int64("task_id", rec.ID),
		slog.String("status", rec.Status))

	return rec.toTask()
}

// GetByID implements store.TaskStore.
func (s *TaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	var rec taskRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrTaskNotFound
		}
		return nil, s.storageError(ctx, "get", "failed to query task", err)
	}
	return rec.toTask()
}

// List implements store.TaskStore.
func (s *TaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	return s.find(ctx, "list", s.db.WithContext(ctx).Order("id ASC"))
}

// ListByStatus implements store.TaskStore.
func (s *TaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
	q := s.db.WithContext(ctx).Where("status = ?", string(status)).Order("id ASC")
	return s.find(ctx, "list_by_status", q)
}

// ListDueBefore implements store.TaskStore.
func (s *TaskStore) ListDueBefore(
	ctx context.Context,
	date domain.Date,
	excluding domain.TaskStatus,
) ([]*domain.Task, error) {
	q := s.db.WithContext(ctx).
		Where("due_date IS NOT NULL AND due_date < ? AND status <> ?", date.String(), string(excluding)).
		Order("due_date ASC").
		Order("id ASC")
	return s.find(ctx, "list_due_before", q)
}

// ListByDueDate implements store.TaskStore.
func (s *TaskStore) ListByDueDate(ctx context.Context, date domain.Date) ([]*domain.Task, error) {
	q := s.db.WithContext(ctx).Where("due_date = ?", date.String()).Order("id ASC")
	return s.find(ctx, "list_by_due_date", q)
}

// SearchByTitle implements store.TaskStore.
func (s *TaskStore) SearchByTitle(ctx context.Context, term string) ([]*domain.Task, error) {
	pattern := "%" + escapeLike(foldTitle(term)) + "%"
	q := s.db.WithContext(ctx).
		Where(`title_fold LIKE ? ESCAPE '\'`, pattern).
		Order("id ASC")
	return s.find(ctx, "search_by_title", q)
}

// ListOrderedByDueDate implements store.TaskStore.
func (s *TaskStore) ListOrderedByDueDate(ctx context.Context) ([]*domain.Task, error) {
	q := s.db.WithContext(ctx).
		Order("due_date IS NULL").
		Order("due_date ASC").
		Order("id ASC")
	return s.find(ctx, "list_ordered_by_due_date", q)
}

// CountByStatus implements store.TaskStore.
func (s *TaskStore) CountByStatus(ctx context.Context, status domain.TaskStatus) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&taskRecord{}).
		Where("status = ?", string(status)).
		Count(&count).Error
	if err != nil {
		return 0, s.storageError(ctx, "count_by_status", "failed to count tasks", err)
	}
	return count, nil
}

// ExistsByTitle implements store.TaskStore.
func (s *TaskStore) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&taskRecord{}).
		Where("title_fold = ?", foldTitle(title)).
		Count(&count).Error
	if err != nil {
		return false, s.storageError(ctx, "exists_by_title", "failed to check task title", err)
	}
	return count > 0, nil
}

// Update implements store.TaskStore.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	id, ok := task.ID.Get()
	if !ok {
		return nil, store.ErrTaskNotFound
	}

	rec := recordFromTask(task)
	result := s.db.WithContext(ctx).
		Model(&taskRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":       rec.Title,
			"title_fold":  rec.TitleFold,
			"description": rec.Description,
			"status":      rec.Status,
			"due_date":    rec.DueDate,
			"updated_at":  s.timestamp(),
		})
	if result.Error != nil {
		return nil, s.storageError(ctx, "update", "failed to update task", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, store.ErrTaskNotFound
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task updated",
		slog.Int64("task_id", id),
		slog.String("status", rec.Status))

	return s.GetByID(ctx, id)
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&taskRecord{}, "id = ?", id)
	if result.Error != nil {
		return s.storageError(ctx, "delete", "failed to delete task", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrTaskNotFound
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task deleted", slog.Int64("task_id", id))
	return nil
}

func (s *TaskStore) find(ctx context.Context, op string, q *gorm.DB) ([]*domain.Task, error) {
	var recs []taskRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, s.storageError(ctx, op, "failed to query tasks", err)
	}

	tasks := make([]*domain.Task, 0, len(recs))
	for _, rec := range recs {
		task, err := rec.toTask()
		if err != nil {
			return nil, s.storageError(ctx, op, "failed to decode task row", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// foldTitle lowercases a title for case-insensitive matching. SQLite's
// LOWER only folds ASCII, so the folded form is computed here and stored.
func foldTitle(title string) string {
	return strings.ToLower(title)
}

// escapeLike escapes LIKE wildcards so term matches literally.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
