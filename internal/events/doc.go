// Package events carries task lifecycle notifications from the service
// layer to interested components.
//
// The task service emits a TaskEvent after every successful create, update,
// status change and delete. Handlers such as the metrics recorder and the
// logging handler subscribe through an InMemoryEventEmitter, so the service
// stays unaware of who consumes its events.
package events
