// Package chaterr holds the error kinds shared by the chat engine.
// Callers wrap them with fmt.Errorf("...: %w", ...) and match with errors.Is.
package chaterr

import "errors"

var (
	// ErrStorageUnavailable marks a failed read or write against the store. Retryable.
	ErrStorageUnavailable = errors.New("chat storage unavailable")
	// ErrRoutingConfigInvalid marks a malformed chip pattern. The rule is skipped.
	ErrRoutingConfigInvalid = errors.New("routing config invalid")
	ErrValidationFailed     = errors.New("validation failed")
	ErrHandoffTimeout       = errors.New("handoff timed out")
	ErrSessionNotFound      = errors.New("chat session not found")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrConversationClosed   = errors.New("conversation closed")
)

// ValidationError carries per-field messages alongside ErrValidationFailed.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return ErrValidationFailed.Error()
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// Retryable reports whether err is worth retrying.
func Retryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
