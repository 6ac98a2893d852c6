// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity or input fails validation.
	// Every invalid-input error in the application wraps it.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = fmt.Errorf("%w: invalid format", ErrValidation)

	// ErrInvalidID is returned when a task ID is malformed or not positive.
	ErrInvalidID = fmt.Errorf("%w: invalid ID", ErrValidation)

	// ErrEmptyTitle is returned when a task title is empty after trimming.
	ErrEmptyTitle = fmt.Errorf("%w: title required", ErrValidation)

	// ErrInvalidStatus is returned when a task status is not one of the known values.
	ErrInvalidStatus = fmt.Errorf("%w: bad status", ErrValidation)

	// ErrEmptySettingKey is returned when a setting is written without a key.
	ErrEmptySettingKey = fmt.Errorf("%w: setting key required", ErrValidation)
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped sentinel so errors.Is works against ErrValidation.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for the given field.
// If err is nil, ErrValidation is wrapped.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}
