package store

import (
	"context"

	"github.com/phrazzld/taskmanager-api/internal/domain"
)

// TaskStore defines the interface for task persistence.
//
// Implementations stamp timestamps themselves: Create sets CreatedAt and
// UpdatedAt, Update refreshes UpdatedAt only. They never apply business
// rules such as validation or status defaults. List operations return an
// empty slice, never nil, when nothing matches. Failures to reach or write
// durable state are reported as *StoreError.
type TaskStore interface {
	// Create persists a transient task and returns the stored record with
	// its assigned id. Returns ErrInvalidEntity if the task already has an id.
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// GetByID retrieves a task by id.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// List returns every task. Order is not meaningful.
	List(ctx context.Context) ([]*domain.Task, error)

	// ListByStatus returns the tasks whose status equals status.
	ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error)

	// ListDueBefore returns the tasks with a due date strictly before date
	// whose status is not excluding. Tasks without a due date never match.
	ListDueBefore(ctx context.Context, date domain.Date, excluding domain.TaskStatus) ([]*domain.Task, error)

	// ListByDueDate returns the tasks due exactly on date.
	ListByDueDate(ctx context.Context, date domain.Date) ([]*domain.Task, error)

	// SearchByTitle returns the tasks whose title contains term, ignoring case.
	SearchByTitle(ctx context.Context, term string) ([]*domain.Task, error)

	// ListOrderedByDueDate returns every task by ascending due date, with
	// tasks that have no due date last.
	ListOrderedByDueDate(ctx context.Context) ([]*domain.Task, error)

	// CountByStatus returns the number of tasks with the given status.
	CountByStatus(ctx context.Context, status domain.TaskStatus) (int64, error)

	// ExistsByTitle reports whether a task's title equals title, ignoring case.
	ExistsByTitle(ctx context.Context, title string) (bool, error)

	// Update writes every mutable field of an existing task and returns the
	// stored record. CreatedAt is never changed.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// Delete permanently removes a task.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id int64) error
}
