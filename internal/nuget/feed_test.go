// SPDX-License-Identifier: MPL-2.0

package nuget

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type (
	// fakeFeed is an in-memory NuGet v3 feed.
	fakeFeed struct {
		mu       sync.Mutex
		packages map[string]registrationIndex
		pages    map[string]registrationPage
		hits     map[string]int
		// failures makes the next n requests to a path answer with a status.
		failures map[string][]int
		srv      *httptest.Server
	}
)

func newFakeFeed(t *testing.T) *fakeFeed {
	t.Helper()

	f := &fakeFeed{
		packages: make(map[string]registrationIndex),
		pages:    make(map[string]registrationPage),
		hits:     make(map[string]int),
		failures: make(map[string][]int),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeFeed) indexURL() string { return f.srv.URL + "/v3/index.json" }

func (f *fakeFeed) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	var status int
	if queue := f.failures[r.URL.Path]; len(queue) > 0 {
		status, f.failures[r.URL.Path] = queue[0], queue[1:]
	}
	f.mu.Unlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "nugraph") {
		http.Error(w, "missing user agent", http.StatusForbidden)
		return
	}

	var body any
	switch {
	case r.URL.Path == "/v3/index.json":
		body = serviceIndex{Version: "3.0.0", Resources: []resource{
			{ID: f.srv.URL + "/search", Type: "SearchQueryService"},
			{ID: f.srv.URL + "/reg-old/", Type: "RegistrationsBaseUrl"},
			{ID: f.srv.URL + "/reg/", Type: "RegistrationsBaseUrl/3.6.0"},
		}}
	case strings.HasPrefix(r.URL.Path, "/reg/") && strings.HasSuffix(r.URL.Path, "/index.json"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/reg/"), "/index.json")
		f.mu.Lock()
		idx, ok := f.packages[id]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		body = idx
	default:
		f.mu.Lock()
		page, ok := f.pages[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		body = page
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// fail queues statuses returned by the next requests to path.
func (f *fakeFeed) fail(path string, statuses ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = append(f.failures[path], statuses...)
}

func (f *fakeFeed) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// add registers a package whose leaves are inlined in the index.
func (f *fakeFeed) add(id string, entries ...catalogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packages[strings.ToLower(id)] = registrationIndex{Count: 1, Items: []registrationPage{{
		ID:    fmt.Sprintf("%s/reg/%s/index.json#page", f.srv.URL, strings.ToLower(id)),
		Count: len(entries),
		Items: leaves(id, entries),
	}}}
}

// addPaged registers a package whose leaves live on a separate page document.
func (f *fakeFeed) addPaged(id string, entries ...catalogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := fmt.Sprintf("/reg/%s/page/1.json", strings.ToLower(id))
	f.pages[path] = registrationPage{ID: f.srv.URL + path, Count: len(entries), Items: leaves(id, entries)}
	f.packages[strings.ToLower(id)] = registrationIndex{Count: 1, Items: []registrationPage{{
		ID:    f.srv.URL + path,
		Count: len(entries),
	}}}
}

func leaves(id string, entries []catalogEntry) []registrationLeaf {
	out := make([]registrationLeaf, len(entries))
	for i := range entries {
		e := entries[i]
		if e.PackageID == "" {
			e.PackageID = id
		}
		out[i] = registrationLeaf{ID: id + "/" + e.Version, CatalogEntry: &e}
	}
	return out
}

func entry(ver string, groups ...dependencyGroup) catalogEntry {
	return catalogEntry{Version: ver, Published: "2024-01-02T03:04:05Z", DependencyGroups: groups}
}

func depGroup(tfm string, deps ...dependency) dependencyGroup {
	return dependencyGroup{TargetFramework: tfm, Dependencies: deps}
}

// writeLocalFeed lays out a local feed directory.
func writeLocalFeed(t *testing.T, dir, id string, entries ...catalogEntry) {
	t.Helper()

	idx := registrationIndex{Count: 1, Items: []registrationPage{{
		Count: len(entries),
		Items: leaves(id, entries),
	}}}
	data, err := json.Marshal(idx)
	if err != nil {
		t.Fatal(err)
	}
	pkgDir := filepath.Join(dir, strings.ToLower(id))
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, "index.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func testClient(opts ClientOptions) *Client {
	opts.RetryInitial = 1
	return NewClient(opts)
}
