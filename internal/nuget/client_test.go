// SPDX-License-Identifier: MPL-2.0

package nuget

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestClient_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	feed := newFakeFeed(t)
	feed.fail("/v3/index.json", http.StatusServiceUnavailable, http.StatusTooManyRequests)

	var idx serviceIndex
	found, err := testClient(ClientOptions{MaxRetries: 3}).GetJSON(context.Background(), feed.indexURL(), &idx)
	if err != nil || !found {
		t.Fatalf("GetJSON() = %v, %v, want success after retries", found, err)
	}
	if hits := feed.hitCount("/v3/index.json"); hits != 3 {
		t.Errorf("requests = %d, want 3", hits)
	}
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	feed := newFakeFeed(t)
	feed.fail("/v3/index.json", 500, 500, 500, 500)

	var idx serviceIndex
	_, err := testClient(ClientOptions{MaxRetries: 2}).GetJSON(context.Background(), feed.indexURL(), &idx)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		t.Fatalf("GetJSON() error = %v, want 500 StatusError", err)
	}
	if hits := feed.hitCount("/v3/index.json"); hits != 3 {
		t.Errorf("requests = %d, want 3 (1 + 2 retries)", hits)
	}
}

func TestClient_PermanentFailureNotRetried(t *testing.T) {
	t.Parallel()

	feed := newFakeFeed(t)
	feed.fail("/v3/index.json", http.StatusUnauthorized)

	var idx serviceIndex
	_, err := testClient(ClientOptions{MaxRetries: 5}).GetJSON(context.Background(), feed.indexURL(), &idx)
	if err == nil {
		t.Fatal("GetJSON() should fail on 401")
	}
	if hits := feed.hitCount("/v3/index.json"); hits != 1 {
		t.Errorf("requests = %d, want 1", hits)
	}
}

func TestClient_NotFound(t *testing.T) {
	t.Parallel()

	feed := newFakeFeed(t)
	var v map[string]any
	found, err := testClient(ClientOptions{}).GetJSON(context.Background(), feed.srv.URL+"/nothing", &v)
	if err != nil || found {
		t.Errorf("GetJSON(404) = %v, %v, want not found without error", found, err)
	}
}

func TestClient_UsesCache(t *testing.T) {
	t.Parallel()

	feed := newFakeFeed(t)
	cache := NewMemoryCache(16, time.Minute)
	client := testClient(ClientOptions{Cache: cache})

	for range 3 {
		var idx serviceIndex
		if _, err := client.GetJSON(context.Background(), feed.indexURL(), &idx); err != nil {
			t.Fatal(err)
		}
	}
	if hits := feed.hitCount("/v3/index.json"); hits != 1 {
		t.Errorf("requests = %d, want 1 with a warm cache", hits)
	}
	if cache.Len() != 1 {
		t.Errorf("cache entries = %d, want 1", cache.Len())
	}
}

func TestClient_CancelledContext(t *testing.T) {
	t.Parallel()

	feed := newFakeFeed(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var idx serviceIndex
	_, err := testClient(ClientOptions{}).GetJSON(ctx, feed.indexURL(), &idx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("GetJSON() error = %v, want context.Canceled", err)
	}
}
