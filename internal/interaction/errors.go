package interaction

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no user id was available. The store is never
	// contacted in this case.
	ErrUnauthenticated = errors.New("no authenticated user")

	// ErrInFlight means an identical interaction is already running for this
	// (post, user, kind). The request is a no-op for the caller.
	ErrInFlight = errors.New("interaction already in progress")

	// ErrConflictExceeded means the optimistic retry budget was exhausted.
	// The caller should invite the user to try again.
	ErrConflictExceeded = errors.New("too many conflicting writes")
)

// PermissionError is an authorization rejection from the store. Reported
// tells the caller the failure already went out on the error channel, so
// local handling must not raise a second generic alert.
type PermissionError struct {
	Path      string
	Operation string
	Reported  bool
	Err       error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s on %s", e.Operation, e.Path)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// IsPermissionDenied reports whether err is an authorization rejection.
// Uses errors.As to handle wrapped errors.
func IsPermissionDenied(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
