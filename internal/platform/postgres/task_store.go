package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/phrazzld/taskmanager-api/internal/store"
)

const taskColumns = "id, title, description, status, due_date, created_at, updated_at"

// Option customizes a PostgresTaskStore.
type Option func(*PostgresTaskStore)

// WithClock replaces the clock used to stamp created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *PostgresTaskStore) {
		s.now = now
	}
}

// PostgresTaskStore implements store.TaskStore using PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that satisfies the store.DBTX interface,
// and a logger for error logging. If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, log *slog.Logger, opts ...Option) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &PostgresTaskStore{
		db:     db,
		logger: log.With(slog.String("component", "task_store")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp returns the current time at the precision PostgreSQL stores.
func (s *PostgresTaskStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresTaskStore) storageError(ctx context.Context, op, msg string, err error) error {
	logger.FromContextOrDefault(ctx, s.logger).Error(msg,
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return store.NewStoreError("task", op, msg, MapError(err))
}

// Create implements store.TaskStore.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task.ID.IsAssigned() {
		return nil, store.NewStoreError("task", "create", "task already has an id", store.ErrInvalidEntity)
	}

	now := s.timestamp()
	query := `
		INSERT INTO tasks (title, description, status, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		task.Title,
		nullableString(task.Description),
		string(task.Status),
		nullableDate(task.DueDate),
		now,
		now,
	).Scan(&id)
	if err != nil {
		return nil, s.storageError(ctx, "create", "failed to insert task", err)
	}

	created := task.Clone()
	created.ID = domain.AssignedID(id)
	created.CreatedAt = now
	created.UpdatedAt = now

	logger.FromContextOrDefault(ctx, s.logger).Debug("task created",
		slog.Int64("task_id", id),
		slog.String("status", string(created.Status)))

	return created, nil
}

// GetByID implements store.TaskStore.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, s.storageError(ctx, "get", "failed to query task", err)
	}
	return task, nil
}

// List implements store.TaskStore.
func (s *PostgresTaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY id ASC`
	return s.queryTasks(ctx, "list", query)
}

// ListByStatus implements store.TaskStore.
func (s *PostgresTaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = $1 ORDER BY id ASC`
	return s.queryTasks(ctx, "list_by_status", query, string(status))
}

// ListDueBefore implements store.TaskStore.
func (s *PostgresTaskStore) ListDueBefore(
	ctx context.Context,
	date domain.Date,
	excluding domain.TaskStatus,
) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE due_date IS NOT NULL AND due_date < $1 AND status <> $2
		ORDER BY due_date ASC, id ASC
	`
	return s.queryTasks(ctx, "list_due_before", query, date.Time(), string(excluding))
}

// ListByDueDate implements store.TaskStore.
func (s *PostgresTaskStore) ListByDueDate(ctx context.Context, date domain.Date) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE due_date = $1 ORDER BY id ASC`
	return s.queryTasks(ctx, "list_by_due_date", query, date.Time())
}

// SearchByTitle implements store.TaskStore.
func (s *PostgresTaskStore) SearchByTitle(ctx context.Context, term string) ([]*domain.Task, error) {
	// Backslash is the default LIKE escape character in PostgreSQL.
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE title ILIKE $1 ORDER BY id ASC`
	return s.queryTasks(ctx, "search_by_title", query, "%"+escapeLike(term)+"%")
}

// ListOrderedByDueDate implements store.TaskStore.
func (s *PostgresTaskStore) ListOrderedByDueDate(ctx context.Context) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY due_date ASC NULLS LAST, id ASC`
	return s.queryTasks(ctx, "list_ordered_by_due_date", query)
}

// CountByStatus implements store.TaskStore.
func (s *PostgresTaskStore) CountByStatus(ctx context.Context, status domain.TaskStatus) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE status = $1`,
		string(status),
	).Scan(&count)
	if err != nil {
		return 0, s.storageError(ctx, "count_by_status", "failed to count tasks", err)
	}
	return count, nil
}

// ExistsByTitle implements store.TaskStore.
func (s *PostgresTaskStore) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tasks WHERE LOWER(title) = LOWER($1))`,
		title,
	).Scan(&exists)
	if err != nil {
		return false, s.storageError(ctx, "exists_by_title", "failed to check task title", err)
	}
	return exists, nil
}

// Update implements store.TaskStore.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	id, ok := task.ID.Get()
	if !ok {
		return nil, store.ErrTaskNotFound
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, due_date = $4, updated_at = $5
		WHERE id = $6
		RETURNING created_at, updated_at
	`

	var createdAt, updatedAt time.Time
	err := s.db.QueryRowContext(ctx, query,
		task.Title,
		nullableString(task.Description),
		string(task.Status),
		nullableDate(task.DueDate),
		s.timestamp(),
		id,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, s.storageError(ctx, "update", "failed to update task", err)
	}

	updated := task.Clone()
	updated.CreatedAt = createdAt.UTC()
	updated.UpdatedAt = updatedAt.UTC()

	logger.FromContextOrDefault(ctx, s.logger).Debug("task updated",
		slog.Int64("task_id", id),
		slog.String("status", string(updated.Status)))

	return updated, nil
}

// Delete implements store.TaskStore.
func (s *PostgresTaskStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return s.storageError(ctx, "delete", "failed to delete task", err)
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return err
		}
		return s.storageError(ctx, "delete", "failed to confirm task deletion", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task deleted", slog.Int64("task_id", id))
	return nil
}

func (s *PostgresTaskStore) queryTasks(
	ctx context.Context,
	op string,
	query string,
	args ...any,
) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.storageError(ctx, op, "failed to query tasks", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logger.FromContextOrDefault(ctx, s.logger).Warn("failed to close rows",
				slog.String("operation", op),
				slog.String("error", closeErr.Error()))
		}
	}()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, s.storageError(ctx, op, "failed to scan task row", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageError(ctx, op, "failed to iterate task rows", err)
	}

	return tasks, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		id          int64
		title       string
		description sql.NullString
		status      string
		dueDate     sql.NullTime
		createdAt   time.Time
		updatedAt   time.Time
	)

	if err := row.Scan(&id, &title, &description, &status, &dueDate, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	task := &domain.Task{
		ID:        domain.AssignedID(id),
		Title:     title,
		Status:    domain.TaskStatus(status),
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}
	if description.Valid {
		d := description.String
		task.Description = &d
	}
	if dueDate.Valid {
		due := domain.DateOf(dueDate.Time)
		task.DueDate = &due
	}
	return task, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableDate(d *domain.Date) any {
	if d == nil {
		return nil
	}
	return d.Time()
}

// escapeLike escapes LIKE wildcards so term matches literally.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
