// SPDX-License-Identifier: MPL-2.0

package graphstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/nugraph/nugraph/pkg/solver"
	"github.com/nugraph/nugraph/pkg/universe"
)

var (
	// ErrGraphStore is the sentinel error wrapped by StoreError.
	ErrGraphStore = errors.New("graph store operation failed")
)

type (
	// Store receives the universe and the resolution of a run.
	Store interface {
		// UpsertUniverse merges every package, candidate version and effective
		// dependency edge of u into the store.
		UpsertUniverse(ctx context.Context, u *universe.Universe) error
		// RecordSolution stores sol as a resolution of u and returns its ID.
		RecordSolution(ctx context.Context, u *universe.Universe, sol *solver.Solution) (string, error)
		// Close releases the backend connection.
		Close(ctx context.Context) error
	}

	// Null is a Store that discards everything.
	Null struct{}

	// StoreError describes a failed graph store operation.
	// It wraps ErrGraphStore for errors.Is() compatibility.
	StoreError struct {
		Op  string
		Err error
	}
)

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	return fmt.Sprintf("graph store %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error { return e.Err }

// Is matches ErrGraphStore.
func (e *StoreError) Is(target error) bool { return target == ErrGraphStore }

// UpsertUniverse does nothing.
func (Null) UpsertUniverse(context.Context, *universe.Universe) error { return nil }

// RecordSolution does nothing and returns an empty ID.
func (Null) RecordSolution(context.Context, *universe.Universe, *solver.Solution) (string, error) {
	return "", nil
}

// Close does nothing.
func (Null) Close(context.Context) error { return nil }

var (
	_ Store = Null{}
	_ Store = (*Neo4j)(nil)
)
