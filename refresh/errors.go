package refresh

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRefreshFunc is reported when a coordinator has no refresh function.
	ErrNoRefreshFunc = errors.New("refresh: no refresh function configured")
	// ErrRefreshPanicked wraps a panic recovered from the refresh function.
	ErrRefreshPanicked = errors.New("refresh: refresh function panicked")
)

// RefreshError is the failure outcome of a refresh cycle. Every waiter of the
// cycle receives the same instance.
type RefreshError struct {
	Cycle uint64
	Cause error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed (cycle %d): %v", e.Cycle, e.Cause)
}

func (e *RefreshError) Unwrap() error {
	return e.Cause
}

// WaitError is returned to a caller that stopped waiting for a cycle because
// its own context ended. The cycle itself is unaffected.
type WaitError struct {
	Cycle uint64
	Err   error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("stopped waiting for token refresh (cycle %d): %v", e.Cycle, e.Err)
}

func (e *WaitError) Unwrap() error {
	return e.Err
}
