package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskmanager-api/internal/domain"
)

// EventType names a task lifecycle transition.
type EventType string

// Task lifecycle event types
const (
	TaskCreated       EventType = "task.created"
	TaskUpdated       EventType = "task.updated"
	TaskStatusChanged EventType = "task.status_changed"
	TaskDeleted       EventType = "task.deleted"
)

// TaskEvent records a successful mutation of a task.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Type   EventType         `json:"type"`
	TaskID int64             `json:"taskId"`
	Status domain.TaskStatus `json:"status"`

	// PreviousStatus is set for status changes only.
	PreviousStatus domain.TaskStatus `json:"previousStatus,omitempty"`

	OccurredAt time.Time `json:"occurredAt"`
}

// NewTaskEvent creates an event describing task after a mutation of the given type.
func NewTaskEvent(eventType EventType, task *domain.Task) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		Type:       eventType,
		TaskID:     task.ID.Int64(),
		Status:     task.Status,
		OccurredAt: time.Now().UTC(),
	}
}

// NewStatusChangedEvent creates a TaskStatusChanged event.
func NewStatusChangedEvent(task *domain.Task, previous domain.TaskStatus) *TaskEvent {
	event := NewTaskEvent(TaskStatusChanged, task)
	event.PreviousStatus = previous
	return event
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts an ordinary function to EventHandler.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
