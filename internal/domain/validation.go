package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field limits for tasks.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// taskFields is the validated projection of a Task. Field names come from
// the json tags so messages are keyed the way clients address fields.
type taskFields struct {
	Title       string     `json:"title" validate:"notblank,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=500"`
	Status      TaskStatus `json:"status" validate:"task_status"`
}

// fieldMessages maps "field.tag" to the message reported for that failure.
var fieldMessages = map[string]string{
	"title.notblank":     "Title is required",
	"title.max":          fmt.Sprintf("Title must be at most %d characters", MaxTitleLength),
	"description.max":    fmt.Sprintf("Description must be at most %d characters", MaxDescriptionLength),
	"status.task_status": "Status must be one of TODO, IN_PROGRESS, DONE",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("task_status", func(fl validator.FieldLevel) bool {
		return TaskStatus(fl.Field().String()).IsValid()
	})

	return v
}

func validateTask(t *Task) error {
	if t == nil {
		return NewValidationError("task", "Task is required")
	}

	err := validate.Struct(taskFields{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
	})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), messageFor(fe))
	}
	return verr
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
