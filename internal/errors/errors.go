// Package errors classifies repository failures so the HTTP layer can answer
// without inspecting driver errors.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode is the failure class carried by an AppError.
type ErrorCode string

const (
	ErrCodeNotFound    ErrorCode = "not_found"
	ErrCodeConflict    ErrorCode = "conflict"
	ErrCodeValidation  ErrorCode = "validation"
	ErrCodeForeignKey  ErrorCode = "foreign_key"
	ErrCodeInternal    ErrorCode = "internal"
	ErrCodeTimeout     ErrorCode = "timeout"
	ErrCodeCanceled    ErrorCode = "canceled"
	ErrCodeUnavailable ErrorCode = "unavailable"
)

// AppError is a classified failure. Message is safe to show to a caller; Cause is not.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending column for validation and conflict errors.
	Field string
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Wrap classifies err under code. A nil err stays nil.
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// GetCode returns the code of the first AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the offending column of the first AppError in err's chain, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// IsNotFound reports whether err was classified as a missing row.
func IsNotFound(err error) bool { return GetCode(err) == ErrCodeNotFound }

// IsConflict reports whether err was classified as a uniqueness conflict.
func IsConflict(err error) bool { return GetCode(err) == ErrCodeConflict }

// IsTransient reports whether the failure came from the database being slow or
// unreachable, so the request may succeed if retried.
func IsTransient(err error) bool {
	switch GetCode(err) {
	case ErrCodeTimeout, ErrCodeUnavailable:
		return true
	default:
		return false
	}
}
