package coordinator

import (
	"errors"
	"fmt"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrDestinationNotFound  = errors.New("destination not found")
)

// DestinationError reports a destination spec that produced no work.
type DestinationError struct {
	Query string
	// Matches is how many communities the lookup returned.
	Matches int
	Err     error
}

func (e *DestinationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s could not be found: %v", e.Query, e.Err)
	}
	if e.Matches > 0 {
		return fmt.Sprintf("%s could not be found (%d inexact matches)", e.Query, e.Matches)
	}
	return e.Query + " could not be found"
}

func (e *DestinationError) Unwrap() error { return e.Err }

func (e *DestinationError) Is(target error) bool { return target == ErrDestinationNotFound }
