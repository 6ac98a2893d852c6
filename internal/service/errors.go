package service

import (
	"errors"
	"fmt"

	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/store"
)

// ServiceError wraps unexpected errors from the service layer with context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "add_task", "claim_task")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
// Invalid-input and not-found errors are returned as-is so callers see
// their original message; everything else is wrapped.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, domain.ErrValidation) || errors.Is(err, store.ErrNotFound) {
		return err
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// Error kinds reported to CLI and API clients.
const (
	KindInvalidInput       = "invalid_input"
	KindNotFound           = "not_found"
	KindStorageUnavailable = "storage_unavailable"
	KindInternal           = "internal"
)

// ErrorKind classifies err into one of the reported kinds.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, store.ErrInvalidEntity):
		return KindInvalidInput
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, store.ErrUnavailable):
		return KindStorageUnavailable
	default:
		return KindInternal
	}
}
