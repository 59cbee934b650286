// SPDX-License-Identifier: MPL-2.0

package solver

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInfeasible is the sentinel error wrapped by InfeasibleError.
	ErrInfeasible = errors.New("no version assignment satisfies all dependency constraints")

	// ErrTimeout is the sentinel error wrapped by TimeoutError.
	ErrTimeout = errors.New("solver time budget exceeded")
)

type (
	// InfeasibleError reports that the constraint model has no solution.
	InfeasibleError struct {
		Reason string
		// Packages lists the packages the conflict was detected on, if known.
		Packages []string
	}

	// TimeoutError reports that the search neither proved optimality nor
	// infeasibility within its budget.
	TimeoutError struct {
		Budget time.Duration
		// Explored is the number of search nodes visited.
		Explored int64
	}
)

// Error implements the error interface for InfeasibleError.
func (e *InfeasibleError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrInfeasible.Error())
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if len(e.Packages) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(e.Packages, ", "))
	}
	return sb.String()
}

// Unwrap returns ErrInfeasible for errors.Is() compatibility.
func (e *InfeasibleError) Unwrap() error { return ErrInfeasible }

// Error implements the error interface for TimeoutError.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s after %s (%d nodes explored)", ErrTimeout, e.Budget, e.Explored)
}

// Unwrap returns ErrTimeout for errors.Is() compatibility.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }
