package middleware

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidID is returned for path identifiers that are not UUIDs.
var ErrInvalidID = errors.New("invalid identifier format")

// ValidateID validates a resource identifier taken from the URL path.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}
