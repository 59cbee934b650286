// SPDX-License-Identifier: MPL-2.0

package universe

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch is matched by every FetchError.
	ErrFetch = errors.New("package metadata fetch failed")

	// ErrCancelled is matched by every CancelledError.
	ErrCancelled = errors.New("universe build cancelled")

	// ErrInvariantViolation is the sentinel error wrapped by InvariantViolationError.
	ErrInvariantViolation = errors.New("universe invariant violated")
)

type (
	// FetchError reports that a metadata source failed or returned malformed data.
	// errors.Is matches both ErrFetch and the underlying cause.
	FetchError struct {
		PackageID string
		// Source is the name of the failing source, empty when not attributable.
		Source string
		Err    error
	}

	// CancelledError reports that a build stopped because its context was done.
	// errors.Is matches both ErrCancelled and the context error.
	CancelledError struct {
		Cause error
	}

	// InvariantViolationError reports a structurally broken universe, for
	// example a dependency on a package outside the closure. It indicates a bug
	// in a metadata provider or builder, never a user mistake.
	InvariantViolationError struct {
		Reason string
	}
)

// Error implements the error interface for FetchError.
func (e *FetchError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("fetch %s from %s: %v", e.PackageID, e.Source, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.PackageID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error { return e.Err }

// Is reports whether target is ErrFetch.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// Error implements the error interface for CancelledError.
func (e *CancelledError) Error() string {
	if e.Cause == nil {
		return ErrCancelled.Error()
	}
	return fmt.Sprintf("%s: %v", ErrCancelled, e.Cause)
}

// Unwrap returns the context error that caused the cancellation.
func (e *CancelledError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrCancelled.
func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }

// Error implements the error interface for InvariantViolationError.
func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvariantViolation, e.Reason)
}

// Unwrap returns ErrInvariantViolation for errors.Is() compatibility.
func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }

func invariantf(format string, args ...any) error {
	return &InvariantViolationError{Reason: fmt.Sprintf(format, args...)}
}
