package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Machine-readable codes returned to clients.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeTooLarge   = "FILE_TOO_LARGE"
	CodeEmptyFile  = "EMPTY_FILE"
	CodeNotFound   = "NOT_FOUND"
	CodeUnauth     = "UNAUTHORIZED"
	CodeForbidden  = "FORBIDDEN"
	CodeConflict   = "CONFLICT"
	CodeStorage    = "STORAGE_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
	CodeConfig     = "CONFIG_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrTooLarge     = errors.New("payload too large")
	ErrDependency   = errors.New("dependency unavailable")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, message, ErrNotFound)
}

func InvalidInputError(message string) *AppError {
	return NewAppError(CodeValidation, message, ErrInvalidInput)
}

func InvalidInputErrorf(format string, args ...any) *AppError {
	return InvalidInputError(fmt.Sprintf(format, args...))
}

func InternalError(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrInternal
	}
	return NewAppError(CodeInternal, message, cause)
}

// HTTPStatus maps an error chain onto an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrDependency):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicError returns the code and client-safe message for err.
// Anything that is not an AppError is reported as a generic internal error.
func PublicError(err error) (code, message string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Message
	}
	return CodeInternal, "internal server error"
}
