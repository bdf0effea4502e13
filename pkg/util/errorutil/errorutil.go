package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for the engine's failure taxonomy.
const (
	CodeFormatError             = "FORMAT_ERROR"
	CodeCollaboratorUnavailable = "COLLABORATOR_UNAVAILABLE"
	CodeConcurrencyConflict     = "CONCURRENCY_CONFLICT"
	CodeConfigurationError      = "CONFIGURATION_ERROR"
	CodeValidationFailed        = "VALIDATION_FAILED"
	CodeNotFound                = "NOT_FOUND"
	CodeInternalError           = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewFormatError marks malformed timeline input. The affected case is
// skipped for the cycle; other cases are unaffected.
func NewFormatError(message string, details map[string]any) error {
	return NewDomainError(CodeFormatError, message, http.StatusUnprocessableEntity, details)
}

// NewCollaboratorUnavailable marks an unreachable or timed-out external
// collaborator. Callers degrade to stale output rather than failing.
func NewCollaboratorUnavailable(collaborator string, err error) error {
	return &DomainError{
		Code:       CodeCollaboratorUnavailable,
		Message:    fmt.Sprintf("%s unavailable", collaborator),
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewConcurrencyConflict marks two evaluations racing on the same
// (case, kind); the later writer retries against latest state.
func NewConcurrencyConflict(message string, err error) error {
	return &DomainError{
		Code:       CodeConcurrencyConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

// NewConfigurationError marks invalid configuration, rejected at load time.
func NewConfigurationError(message string, details map[string]any) error {
	return NewDomainError(CodeConfigurationError, message, http.StatusInternalServerError, details)
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
