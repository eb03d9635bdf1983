package errors

import (
	"errors"
	"fmt"
)

// Error codes for programmatic handling.
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeSessionRequired  = "SESSION_REQUIRED"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeNotFound         = "NOT_FOUND"
	CodeProviderError    = "PROVIDER_ERROR"
	CodePersistence      = "PERSISTENCE_ERROR"
	CodeAPIKeyMissing    = "API_KEY_MISSING"
)

// ChatError is a structured error with a code and actionable suggestion.
type ChatError struct {
	Code       string // machine-readable code (e.g. SESSION_REQUIRED)
	Message    string // human-readable description
	Suggestion string // actionable fix
	Err        error  // wrapped underlying error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is / errors.As.
func (e *ChatError) Unwrap() error {
	return e.Err
}

// New creates a ChatError with the given code and message.
func New(code, message string) *ChatError {
	return &ChatError{Code: code, Message: message}
}

// Wrap creates a ChatError wrapping an existing error.
func Wrap(code, message string, err error) *ChatError {
	return &ChatError{Code: code, Message: message, Err: err}
}

// WithSuggestion returns a copy with the suggestion set.
func (e *ChatError) WithSuggestion(suggestion string) *ChatError {
	e.Suggestion = suggestion
	return e
}

// Is checks whether target matches this error's code.
func (e *ChatError) Is(target error) bool {
	var ce *ChatError
	if errors.As(target, &ce) {
		return e.Code == ce.Code
	}
	return false
}

// AsCode extracts the ChatError code from an error, or "" if not a ChatError.
func AsCode(err error) string {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// Suggestion extracts the suggestion from an error, or "" if not a ChatError.
func Suggestion(err error) string {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Suggestion
	}
	return ""
}
