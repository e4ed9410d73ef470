package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so cloned sentinels still compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is not active")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	ErrPhotoUpload          = New("PHOTO_UPLOAD_FAILED", http.StatusUnprocessableEntity, "photo upload failed")
	ErrRequestCreation      = New("REQUEST_CREATION_FAILED", http.StatusInternalServerError, "request creation failed")
	ErrRequestPermission    = New("REQUEST_PERMISSION_DENIED", http.StatusForbidden, "request creation failed: permission denied")
	ErrRequestInvalidRef    = New("REQUEST_INVALID_REFERENCE", http.StatusUnprocessableEntity, "request creation failed: invalid reference")
	ErrInvalidCenter        = New("INVALID_CENTER", http.StatusUnprocessableEntity, "invalid center")
	ErrInvalidCollector     = New("INVALID_COLLECTOR", http.StatusUnprocessableEntity, "invalid collector")
	ErrInvalidTransition    = New("INVALID_TRANSITION", http.StatusConflict, "invalid status transition")
	ErrStatementUnavailable = New("STATEMENT_UNAVAILABLE", http.StatusGone, "statement no longer available")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Field returns a validation error attributed to a single input field.
func Field(field, message string) *Error {
	clone := Clone(ErrValidation, message)
	clone.Field = field
	return clone
}
