// Package api exposes the task service over HTTP. Handlers decode and
// check requests, call service.TaskService, and render tasks and errors as
// JSON. Route registration lives with the server binary.
package api
