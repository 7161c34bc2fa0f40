package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or out-of-range input. It is always
// surfaced synchronously to the caller and never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError reports a missing or not-owned resource. Not-owned is
// deliberately indistinguishable from nonexistent so resource existence
// never leaks across owners.
type NotFoundError struct {
	Kind string // "task", "conversation", "user"
	ID   any
}

func (e *NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s %v not found", e.Kind, e.ID)
	}
	return e.Kind + " not found"
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ToolNotFoundError reports a registry lookup miss. Registration happens
// once at startup, so hitting this at runtime is a programming error.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}

// IsToolNotFound reports whether err is a ToolNotFoundError.
func IsToolNotFound(err error) bool {
	var tnf *ToolNotFoundError
	return errors.As(err, &tnf)
}
