package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested fic or shelf does not exist.
	ErrNotFound = errors.New("catalog: record not found")
	// ErrForbidden indicates the caller does not own the record.
	ErrForbidden = errors.New("catalog: not the owner")
	// ErrInvalidInput indicates unusable input for a create or update.
	ErrInvalidInput = errors.New("catalog: invalid input")
)

// ServiceError wraps failures with a dotted operation code for diagnostics.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}
