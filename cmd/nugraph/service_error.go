// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/nugraph/nugraph/internal/issue"
)

// ServiceError is an error that carries rendering information for the CLI
// layer: the issue catalog entry explaining the failure class and the exit
// code it maps to. Always create via newServiceError to enforce the
// Err-must-be-non-nil invariant.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// Code is the process exit code for this failure.
	Code ExitCode
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, code ExitCode) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID, Code: code}
}

// withMessage attaches a pre-rendered message printed before the catalog entry.
func (e *ServiceError) withMessage(msg string) *ServiceError {
	e.StyledMessage = msg
	return e
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// renderServiceError prints any styled message, then the issue help section.
// The catalog Markdown goes through glamour when styled is set and is printed
// verbatim otherwise.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, styled bool) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}

	catalogEntry := issue.Get(svcErr.IssueID)
	if catalogEntry == nil {
		return
	}
	if !styled {
		fmt.Fprintln(stderr, string(catalogEntry.MarkdownMsg()))
		return
	}
	rendered, renderErr := catalogEntry.Render("dark")
	if renderErr != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
		fmt.Fprintln(stderr, string(catalogEntry.MarkdownMsg()))
		return
	}
	fmt.Fprint(stderr, rendered)
}
