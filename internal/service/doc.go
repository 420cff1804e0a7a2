// Package service contains the task use cases. It orchestrates domain
// objects and a store.TaskStore to create, query, update and delete tasks.
//
// The service owns the business rules the store must not apply: status
// defaulting, partial merges, validation, the meaning of "today" and
// not-found translation. Store failures other than not-found are passed
// through wrapped in a *TaskServiceError, so callers can still match
// *store.StoreError with errors.As.
//
// Successful mutations are announced through an events.EventEmitter.
// Emission is best effort: a failing handler is logged and never fails the
// operation that produced the event.
package service
