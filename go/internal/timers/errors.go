package timers

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when another timer creation is already in flight.
	ErrBusy = errors.New("timer creation already in flight")
	// ErrDuplicate is returned when the same channel and kind is already running locally.
	ErrDuplicate = errors.New("timer already running")
	// ErrUnknownResource is returned for a resource outside the boss table.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrUnknownKind is returned for a kind not configured for the resource.
	ErrUnknownKind = errors.New("unknown kind for resource")
)

// ValidationError describes a request rejected before any store access.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
