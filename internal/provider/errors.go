package provider

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrTimeout is returned when a provider call exceeds its deadline. It is
// retryable from the caller's point of view.
var ErrTimeout = errors.New("provider request timed out")

const maxErrorBody = 2048

// Error is a non-success answer from the provider, or a transport failure
// when StatusCode is zero.
type Error struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("provider %s: %s", e.Op, e.Body)
	}
	return fmt.Sprintf("provider %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
