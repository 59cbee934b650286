// SPDX-License-Identifier: MPL-2.0

package cmd

import "fmt"

const (
	// ExitOK reports success.
	ExitOK ExitCode = 0
	// ExitFailure covers fetch, persistence and other runtime failures.
	ExitFailure ExitCode = 1
	// ExitUsage reports invalid arguments (no packages, unknown framework).
	ExitUsage ExitCode = 2
	// ExitInfeasible reports that no valid set of versions exists.
	ExitInfeasible ExitCode = 3
	// ExitTimeout reports that the solver exhausted its time budget.
	ExitTimeout ExitCode = 4
	// ExitCancelled reports an interrupted run, matching the shell convention for SIGINT.
	ExitCancelled ExitCode = 130
)

// ExitCode is a process exit status.
type ExitCode int

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
