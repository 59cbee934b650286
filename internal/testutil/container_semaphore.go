// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"runtime"
	"strconv"
	"sync"
	"testing"
)

// containerSlots bounds the number of testcontainers-backed tests running at
// once. A Neo4j container needs roughly a gigabyte of memory.
var containerSlots = sync.OnceValue(func() chan struct{} {
	return make(chan struct{}, containerParallelism())
})

func containerParallelism() int {
	if v, err := strconv.Atoi(os.Getenv("NUGRAPH_TEST_CONTAINER_PARALLEL")); err == nil && v > 0 {
		return v
	}
	return min(runtime.GOMAXPROCS(0), 2)
}

// AcquireContainerSlot blocks until a container slot is free and releases it
// when t finishes. NUGRAPH_TEST_CONTAINER_PARALLEL overrides the default of
// min(GOMAXPROCS, 2) slots.
func AcquireContainerSlot(tb testing.TB) {
	tb.Helper()

	slots := containerSlots()
	slots <- struct{}{}
	tb.Cleanup(func() { <-slots })
}
