// Package apperr holds the error taxonomy shared by the cart, order and auth
// packages. Handlers map these to HTTP status codes with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrAuth              = errors.New("invalid credentials")
	ErrTransientIO       = errors.New("temporarily unavailable")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError names the offending field. It matches ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation builds a *ValidationError.
func Validation(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// Transient wraps a collaborator failure so callers can decide to retry.
func Transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransientIO, err)
}

// NotFound wraps ErrNotFound with the missing entity and key.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}
