package service

import (
	"errors"
	"fmt"

	"github.com/helpassistant/assistant-platform/internal/store"
)

var (
	// ErrNotFound is returned when an assistant, chat, document or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller exists but does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrIncompleteUpload is returned when the client's upload stream breaks
	// before the file is complete.
	ErrIncompleteUpload = errors.New("incomplete upload")
)

// ValidationError reports malformed input. It is raised before any side effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// notFound maps a store miss onto ErrNotFound and wraps anything else.
func notFound(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
