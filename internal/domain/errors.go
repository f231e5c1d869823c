package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below unwrap to these so callers can
// branch with errors.Is without caring about the concrete type.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// NotFoundError identifies which entity lookup came up empty.
type NotFoundError struct {
	Entity string
	ID     string
}

// NewNotFoundError creates a NotFoundError for the given entity and id.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AlreadyExistsError identifies a uniqueness conflict.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

// NewAlreadyExistsError creates an AlreadyExistsError for the given entity and id.
func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{Entity: entity, ID: id}
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.ID)
}

func (e *AlreadyExistsError) Unwrap() error { return ErrAlreadyExists }

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// ExternalAPIError records a failure talking to an upstream system
// (paper source, search index, broker, LLM provider).
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// NewExternalAPIError creates an ExternalAPIError. cause may be nil.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{Source: source, StatusCode: statusCode, Message: message, Cause: cause}
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the recorded cause when there is one, otherwise the
// ErrServiceUnavailable sentinel so errors.Is works on bare API failures.
func (e *ExternalAPIError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrServiceUnavailable
}
