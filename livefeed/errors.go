package livefeed

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// Validation errors, reported to the user and never retried.
	ErrorEmptyContent
	ErrorNotAuthenticated

	// Channel errors
	ErrorChannelUnavailable
	ErrorTransport
	ErrorChannelClosed
	ErrorDecode

	// Collaborator and local errors
	ErrorUploadFailed
	ErrorSerialization
	ErrorInvalidConfig
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorEmptyContent:
		return "empty_content"
	case ErrorNotAuthenticated:
		return "not_authenticated"
	case ErrorChannelUnavailable:
		return "channel_unavailable"
	case ErrorTransport:
		return "transport_error"
	case ErrorChannelClosed:
		return "channel_closed"
	case ErrorDecode:
		return "decode_error"
	case ErrorUploadFailed:
		return "upload_failed"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorInvalidConfig:
		return "invalid_config"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// Error is a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with an Error.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// Sentinels for errors.Is. Matching is by code, so any *Error carrying the
// same code satisfies errors.Is regardless of message.
var (
	ErrEmptyContent       = NewError(ErrorEmptyContent, "post content is empty")
	ErrNotAuthenticated   = NewError(ErrorNotAuthenticated, "no authenticated author")
	ErrChannelUnavailable = NewError(ErrorChannelUnavailable, "channel is not open")
	ErrUploadFailed       = NewError(ErrorUploadFailed, "image upload failed")
	ErrDecode             = NewError(ErrorDecode, "invalid frame")
)

// IsValidationError checks if an error was caused by invalid user input.
func IsValidationError(err error) bool {
	code, ok := codeOf(err)
	return ok && (code == ErrorEmptyContent || code == ErrorNotAuthenticated)
}

// IsConnectionError checks if an error is a channel-related error.
func IsConnectionError(err error) bool {
	code, ok := codeOf(err)
	if !ok {
		return false
	}
	return code == ErrorChannelUnavailable || code == ErrorTransport || code == ErrorChannelClosed
}

func codeOf(err error) (ErrorCode, bool) {
	if err == nil {
		return ErrorUnknown, false
	}
	var fe *Error
	if !errors.As(err, &fe) {
		return ErrorUnknown, false
	}
	return fe.Code, true
}
