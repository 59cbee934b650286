// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// It holds a controllable Clock for cache expiry tests, environment and file
// helpers (MustSetenv, MustWriteFile, MustClose) and a semaphore bounding
// container-backed integration tests.
package testutil
