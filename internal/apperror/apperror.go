// Package apperror defines the domain errors shared by every layer.
//
// Services return these; handlers translate them into HTTP status codes
// (see handler.writeError). Always check them with errors.Is, because
// callers wrap them with fmt.Errorf("...: %w", err) on the way up.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCode marks an OAuth authorization code the identity
	// provider refused (expired, already used, or never issued).
	ErrInvalidCode = errors.New("invalid authorization code")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for a missing, expired or forged session.
// HTTP handlers map this to 401 Unauthorized.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// InvalidCode returns an AppError for an authorization code the provider
// rejected. reason is the provider's error code, e.g. "bad_verification_code".
func InvalidCode(reason string) *AppError {
	return &AppError{
		Err:     ErrInvalidCode,
		Message: fmt.Sprintf("authorization code rejected by provider: %s", reason),
		Field:   "code",
	}
}
