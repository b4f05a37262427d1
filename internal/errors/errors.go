package errors

import (
	"errors"
	"fmt"
)

// Common error types for account linking and collection reconciliation
var (
	// Linking errors
	ErrUpstreamAuth   = errors.New("upstream token exchange failed")
	ErrSessionExpired = errors.New("pending authorization expired or unknown")

	// Reconciliation errors
	ErrInvalidChange = errors.New("invalid collection change")
	ErrLocalStore    = errors.New("local store failure")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Mark attaches a sentinel to err so errors.Is matches both the sentinel and the
// original cause.
func Mark(err error, sentinel error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
