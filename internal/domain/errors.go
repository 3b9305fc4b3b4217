package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the closed taxonomy of error kinds the external boundary is
// allowed to surface to a client.
type ErrorCode string

const (
	CodeValidation            ErrorCode = "VALIDATION"
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeGone                  ErrorCode = "GONE"
	CodeConflict              ErrorCode = "CONFLICT"
	CodeBlocked               ErrorCode = "BLOCKED"
	CodeUnauthorized          ErrorCode = "UNAUTHORIZED"
	CodeRateLimited           ErrorCode = "RATE_LIMITED"
	CodeDependencyUnavailable ErrorCode = "DEPENDENCY_UNAVAILABLE"
	CodeInternal              ErrorCode = "INTERNAL"
)

var httpStatusByCode = map[ErrorCode]int{
	CodeValidation:            http.StatusBadRequest,
	CodeNotFound:              http.StatusNotFound,
	CodeGone:                  http.StatusGone,
	CodeConflict:              http.StatusBadRequest,
	CodeBlocked:               http.StatusBadRequest,
	CodeUnauthorized:          http.StatusUnauthorized,
	CodeRateLimited:           http.StatusTooManyRequests,
	CodeDependencyUnavailable: http.StatusServiceUnavailable,
	CodeInternal:              http.StatusInternalServerError,
}

// AppError is the single error type that crosses component boundaries.
// Internal wrapping is never exposed past the HTTP handler.
type AppError struct {
	Code       ErrorCode
	Message    string
	Details    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New builds an AppError for one of the taxonomy codes, deriving its HTTP
// status from the fixed code→status mapping.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatusByCode[code]}
}

// Wrap builds an AppError that carries an underlying cause, for logging.
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatusByCode[code], Cause: cause}
}

// WithDetails attaches a details string for the client-facing payload.
func WithDetails(code ErrorCode, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details, HTTPStatus: httpStatusByCode[code]}
}

// As reports whether err (or something it wraps) is an *AppError, and
// returns it.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Domain-specific error values used throughout the service layer. These are
// sentinels compared with errors.Is, not reused across goroutines for
// mutation.
var (
	ErrInvalidURL         = New(CodeValidation, "invalid URL")
	ErrURLTooLong         = New(CodeValidation, "URL exceeds the maximum allowed length")
	ErrExpiryInPast       = New(CodeValidation, "expiresAt must be in the future")
	ErrInvalidCode        = New(CodeValidation, "code does not match the allowed format")
	ErrAliasInvalid       = New(CodeValidation, "custom alias does not match the allowed format or length")
	ErrAliasTaken         = New(CodeConflict, "custom alias is already in use")
	ErrURLBlocked         = New(CodeBlocked, "URL was rejected by the reputation check")
	ErrNotFoundCode       = New(CodeNotFound, "code not found")
	ErrGone               = New(CodeGone, "code has expired")
	ErrInvalidRedirect    = New(CodeValidation, "redirect target is not permitted")
	ErrUnauthorized       = New(CodeUnauthorized, "missing or invalid admin API key")
	ErrRateLimited        = New(CodeRateLimited, "rate limit exceeded")
	ErrDependencyDown     = New(CodeDependencyUnavailable, "a required dependency is unavailable")
	ErrInvalidPagination  = New(CodeValidation, "invalid pagination parameters")
	ErrInvalidDateRange   = New(CodeValidation, "invalid date range")
	ErrBatchTooLarge      = New(CodeValidation, "batch request exceeds the maximum number of entries")
)
