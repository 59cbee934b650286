// SPDX-License-Identifier: MPL-2.0

package nuget

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedMetadata is returned when a feed document cannot be interpreted.
	ErrMalformedMetadata = errors.New("malformed package metadata")

	// ErrUnsupportedSource is returned by NewSource for locations it cannot serve.
	ErrUnsupportedSource = errors.New("unsupported package source")

	errNotFound = errors.New("not found")
)

// StatusError is an unexpected HTTP response from a feed.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

// Error implements the error interface for StatusError.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Temporary reports whether the request may succeed when retried.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedMetadata, fmt.Sprintf(format, args...))
}
