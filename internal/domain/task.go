package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TaskStatus represents a task's position in its lifecycle.
// Any status may move to any other; TODO is the initial state.
type TaskStatus string

// Possible task status values
const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// AllTaskStatuses returns every status in lifecycle order.
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}
}

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

// ParseTaskStatus converts user input into a TaskStatus. Matching ignores
// case and surrounding whitespace.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	status := TaskStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTaskStatus, raw)
	}
	return status, nil
}

// TaskID is the identity of a task. A task is Unassigned until the store
// persists it for the first time; from then on it carries the assigned value.
type TaskID struct {
	value    int64
	assigned bool
}

// UnassignedID is the identity of a task that has never been persisted.
var UnassignedID = TaskID{}

// AssignedID returns the identity of a persisted task.
func AssignedID(value int64) TaskID {
	return TaskID{value: value, assigned: true}
}

// IsAssigned reports whether the id was assigned by a store.
func (id TaskID) IsAssigned() bool {
	return id.assigned
}

// Get returns the numeric id and whether it is assigned.
func (id TaskID) Get() (int64, bool) {
	return id.value, id.assigned
}

// Int64 returns the numeric id, or 0 when unassigned.
func (id TaskID) Int64() int64 {
	return id.value
}

func (id TaskID) String() string {
	if !id.assigned {
		return "unassigned"
	}
	return strconv.FormatInt(id.value, 10)
}

// MarshalJSON renders an assigned id as a number and an unassigned id as null.
func (id TaskID) MarshalJSON() ([]byte, error) {
	if !id.assigned {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(id.value, 10)), nil
}

// UnmarshalJSON accepts a number or null.
func (id *TaskID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = UnassignedID
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: task id must be an integer", ErrInvalidID)
	}
	*id = AssignedID(v)
	return nil
}

// Task is a discrete unit of work tracked through its lifecycle.
type Task struct {
	ID          TaskID     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	DueDate     *Date      `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskDraft carries caller-supplied task fields. A nil field is absent: on
// creation it takes its default, on update it leaves the stored value alone.
// Identity and timestamps are never caller-supplied.
type TaskDraft struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	DueDate     *Date
}

// NewTask builds a transient task from a draft. The status defaults to TODO
// and the id is always unassigned. Returns a *ValidationError if the result
// violates any field constraint.
func NewTask(draft TaskDraft) (*Task, error) {
	task := &Task{
		ID:     UnassignedID,
		Status: TaskStatusTodo,
	}
	task.Apply(draft)

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Apply overwrites every field present in draft. Absent fields keep their
// current value, so a field cannot be cleared this way.
func (t *Task) Apply(draft TaskDraft) {
	if draft.Title != nil {
		t.Title = *draft.Title
	}
	if draft.Description != nil {
		description := *draft.Description
		t.Description = &description
	}
	if draft.Status != nil {
		t.Status = *draft.Status
	}
	if draft.DueDate != nil {
		due := *draft.DueDate
		t.DueDate = &due
	}
}

// Validate checks the field constraints and returns a *ValidationError
// listing every violated field, or nil.
func (t *Task) Validate() error {
	return validateTask(t)
}

// Equal reports whether t and other denote the same task. Persisted tasks
// are equal when their ids are equal; a transient task is equal only to itself.
func (t *Task) Equal(other *Task) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	if !t.ID.IsAssigned() || !other.ID.IsAssigned() {
		return false
	}
	return t.ID == other.ID
}

// IsOverdue reports whether the task has a due date strictly before today.
// Status is not considered.
func (t *Task) IsOverdue(today Date) bool {
	return t.DueDate != nil && t.DueDate.Before(today)
}

// IsDueToday reports whether the task is due on today.
func (t *Task) IsDueToday(today Date) bool {
	return t.DueDate != nil && t.DueDate.Equal(today)
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Description != nil {
		description := *t.Description
		c.Description = &description
	}
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	return &c
}

// FilterByStatus returns the tasks whose status equals *status, keeping
// their order. A nil status returns tasks unchanged.
func FilterByStatus(tasks []*Task, status *TaskStatus) []*Task {
	if status == nil {
		return tasks
	}
	filtered := make([]*Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Status == *status {
			filtered = append(filtered, task)
		}
	}
	return filtered
}
