package platform

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDuplicateRegistration means two implementations claim one identifier.
	ErrDuplicateRegistration = errors.New("platform already registered")

	// ErrUnknownPlatform means the identifier is not in the registry.
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrNotConfigured means the user has not selected a platform.
	ErrNotConfigured = errors.New("no platform configured")

	// ErrInvalidSettings means the stored settings cannot build a platform.
	ErrInvalidSettings = errors.New("invalid platform settings")

	// ErrAuth means the platform rejected the credentials.
	ErrAuth = errors.New("credentials rejected")

	// ErrNotFound means the task does not exist on the platform.
	ErrNotFound = errors.New("task not found")
)

// Error wraps a transport or remote failure of a platform operation.
// errors.Is sees through it, so ErrAuth and ErrNotFound stay detectable.
type Error struct {
	Platform ID
	Op       string
	Err      error
}

func (e *Error) Error() string {
	if e.Platform == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Platform, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the operation ran out of time or was cancelled.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded) || errors.Is(e.Err, context.Canceled)
}

// IsTimeout reports whether err is a platform error caused by a deadline
// or cancellation.
func IsTimeout(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Timeout()
}

// wrapOpError turns any error into an *Error for op, keeping one that
// already is.
func wrapOpError(id ID, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Platform: id, Op: op, Err: err}
}
