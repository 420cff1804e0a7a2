package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/phrazzld/taskmanager-api/internal/api/shared"
	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/service"
	"github.com/phrazzld/taskmanager-api/internal/store"
)

// Request errors detected by the handlers themselves.
var (
	ErrMalformedBody = errors.New("malformed request body")
	ErrIDMismatch    = errors.New("task id in body does not match path")
	ErrInvalidQuery  = errors.New("invalid query parameter")
)

// Client-facing messages
const (
	msgValidationFailed = "Input validation failed"
	msgUnexpected       = "An unexpected error occurred"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrDuplicateTitle),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, ErrMalformedBody),
		errors.Is(err, ErrIDMismatch),
		errors.Is(err, ErrInvalidQuery),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidTaskStatus),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return msgUnexpected
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return msgValidationFailed
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Task not found"
	case errors.Is(err, service.ErrDuplicateTitle),
		errors.Is(err, store.ErrDuplicate):
		return "A task with this title already exists"
	case errors.Is(err, ErrIDMismatch):
		return "Task id in body does not match path"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid task id"
	case errors.Is(err, domain.ErrInvalidTaskStatus):
		return "Invalid status value, expected one of TODO, IN_PROGRESS, DONE"
	case errors.Is(err, domain.ErrInvalidFormat):
		return "Invalid date, expected YYYY-MM-DD"
	case errors.Is(err, ErrInvalidQuery):
		return "Invalid query parameter"
	case errors.Is(err, ErrMalformedBody):
		return "Malformed JSON request"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid task data"
	default:
		return msgUnexpected
	}
}

// HandleAPIError writes the error response for err. A validation error
// carries its field map; a missing task names the id that was requested.
// Server errors are logged with the full, redacted error.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, taskID ...int64) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)

	if validationErr, ok := domain.AsValidationError(err); ok && validationErr.HasErrors() {
		shared.RespondWithErrorAndLog(w, r, status, message, err,
			shared.WithValidationErrors(validationErr.Fields))
		return
	}

	if status == http.StatusNotFound && len(taskID) > 0 {
		message = fmt.Sprintf("Task not found with id: %d", taskID[0])
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
