package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes fatal engine errors.
type ErrorCode string

const (
	// ErrCodePermissionDenied means the user declined notification permission.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrCodeDataUnavailable means the timetable window could not be obtained.
	ErrCodeDataUnavailable ErrorCode = "DATA_UNAVAILABLE"

	// ErrCodeCancelFailed means an owned registration could not be cancelled.
	ErrCodeCancelFailed ErrorCode = "CANCEL_FAILED"

	// ErrCodeInvalidSettings means the settings could not be read or written.
	ErrCodeInvalidSettings ErrorCode = "INVALID_SETTINGS"
)

// Error is a fatal engine error. Recoverable outcomes (per-item
// registration failures, past-time skips) are counted in Result instead.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of an *Error anywhere in err's chain, or "".
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsPermissionDenied reports whether err is a PERMISSION_DENIED error.
func IsPermissionDenied(err error) bool { return CodeOf(err) == ErrCodePermissionDenied }

// IsDataUnavailable reports whether err is a DATA_UNAVAILABLE error.
func IsDataUnavailable(err error) bool { return CodeOf(err) == ErrCodeDataUnavailable }

// IsCancelFailed reports whether err is a CANCEL_FAILED error.
func IsCancelFailed(err error) bool { return CodeOf(err) == ErrCodeCancelFailed }

// IsInvalidSettings reports whether err is an INVALID_SETTINGS error.
func IsInvalidSettings(err error) bool { return CodeOf(err) == ErrCodeInvalidSettings }
