package dispatch

import (
	"errors"
	"fmt"

	"xpost/internal/post"
)

var (
	ErrEndOfStream  = errors.New("dispatch queue drained")
	ErrCompleted    = errors.New("dispatch queue completed")
	ErrQueueFull    = errors.New("dispatch queue full")
	ErrDropped      = errors.New("work item dropped: dispatch queue full")
	ErrCreateFailed = errors.New("create post failed")
	ErrNilItem      = errors.New("nil work item")
)

// CreateError is a failed create for one destination.
type CreateError struct {
	Destination string
	Kind        post.Kind
	Err         error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("create %s post in %q: %v", e.Kind, e.Destination, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

func (e *CreateError) Is(target error) bool { return target == ErrCreateFailed }
