package errors

import (
	"errors"
	"fmt"
)

// Common error types for the job board
var (
	// Authentication errors
	ErrValidation            = errors.New("validation failed")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrMalformedAuthResponse = errors.New("malformed auth response")
	ErrOAuthLinkingFailed    = errors.New("oauth linking failed")
	ErrEmailTaken            = errors.New("email already registered")

	// Session errors
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidSession      = errors.New("invalid session")
	ErrInvalidSessionToken = errors.New("invalid session token")
	ErrSessionExpired      = errors.New("session expired")
	ErrSessionNotFound     = errors.New("session not found")

	// Bookmark errors
	ErrConflict       = errors.New("conflict")
	ErrRequestFailed  = errors.New("request failed")
	ErrToggleInFlight = errors.New("toggle already in flight")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// MessageError pairs a taxonomy error with the human-readable message that
// should be shown to the user, usually the one the backend returned.
type MessageError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *MessageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *MessageError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// WithMessage returns an error matching kind that carries a display message.
func WithMessage(kind error, message string, cause error) error {
	return &MessageError{Kind: kind, Message: message, Cause: cause}
}

// UserMessage returns the display message carried by err, or fallback.
func UserMessage(err error, fallback string) string {
	var msgErr *MessageError
	if errors.As(err, &msgErr) && msgErr.Message != "" {
		return msgErr.Message
	}
	return fallback
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
