package broker

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify with errors.Is; the HTTP layer maps them to
// status codes (404, 409, 422, 503).
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrUnavailable   = errors.New("service unavailable")
)

// notFound wraps ErrNotFound with an entity-specific message.
func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

// alreadyExists wraps ErrAlreadyExists with an entity-specific message.
func alreadyExists(what string) error {
	return fmt.Errorf("%s: %w", what, ErrAlreadyExists)
}

// invalid wraps ErrValidation with a human-readable detail.
func invalid(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}
