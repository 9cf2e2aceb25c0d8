package apperr

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUploadFailed       = errors.New("upload failed")
	ErrPersistFailed      = errors.New("persist failed")
	ErrValidationFailed   = errors.New("validation failed")
)

// Error pairs a taxonomy sentinel with the message shown to API callers.
// The wrapped cause, if any, is only meant for logs.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind error, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// ValidationError collects every problem found in a request body.
type ValidationError struct {
	Messages []string
}

func NewValidation(msgs ...string) *ValidationError {
	return &ValidationError{Messages: msgs}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

func (e *ValidationError) Add(msg string) { e.Messages = append(e.Messages, msg) }

// OrNil returns nil when no messages were collected.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Messages) == 0 {
		return nil
	}
	return e
}

// Status maps an error onto the HTTP status it should produce.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidationFailed),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUploadFailed),
		errors.Is(err, ErrPersistFailed):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text safe to send to a caller. Provider and
// datastore detail never leaves the process.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrUploadFailed):
		return "Failed to upload image."
	case errors.Is(err, ErrPersistFailed):
		return "Failed to save image."
	}
	if Status(err) == http.StatusInternalServerError {
		return "Internal Server Error"
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return err.Error()
}
