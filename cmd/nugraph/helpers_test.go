// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nugraph/nugraph/internal/config"
	"github.com/nugraph/nugraph/internal/graphstore"
	"github.com/nugraph/nugraph/internal/testutil"
	"github.com/nugraph/nugraph/pkg/solver"
	"github.com/nugraph/nugraph/pkg/universe"
)

type (
	// staticConfig is a ConfigProvider returning a fixed config or error.
	staticConfig struct {
		cfg *config.Config
		err error
	}

	// recordingStore is a graph store that remembers what it was given.
	recordingStore struct {
		mu        sync.Mutex
		universes int
		solutions int
		closed    bool
		failOn    string
	}

	// fixtureVersion is one version of a package in a test feed.
	fixtureVersion struct {
		Version   string
		Published string
		Listed    *bool
		// Groups maps a framework moniker to dependency ranges by package ID.
		Groups map[string]map[string]string
	}

	harness struct {
		app    *App
		stdout *bytes.Buffer
		stderr *bytes.Buffer
	}
)

func (s staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	cfg := *s.cfg
	return &cfg, nil
}

func (s *recordingStore) UpsertUniverse(context.Context, *universe.Universe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "upsert" {
		return &graphstore.StoreError{Op: "upsert packages", Err: errors.New("connection reset")}
	}
	s.universes++
	return nil
}

func (s *recordingStore) RecordSolution(context.Context, *universe.Universe, *solver.Solution) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solutions++
	return "res-1", nil
}

func (s *recordingStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// testConfig returns defaults pointing at feedDir with color and caches off.
func testConfig(feedDir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Sources = []config.SourceConfig{{Name: "local", URL: feedDir}}
	cfg.HTTP.MemoryCacheEntries = 0
	cfg.UI.Color = false
	return cfg
}

// newHarness builds an App with captured output, the given config and a
// no-op graph store.
func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	return newHarnessWith(t, Dependencies{Config: staticConfig{cfg: cfg}})
}

func newHarnessWith(t *testing.T, deps Dependencies) *harness {
	t.Helper()

	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	deps.Stdout, deps.Stderr = h.stdout, h.stderr
	if deps.OpenStore == nil {
		deps.OpenStore = func(context.Context, config.Neo4jConfig, *slog.Logger) (graphstore.Store, error) {
			return graphstore.Null{}, nil
		}
	}
	if deps.LookupEnv == nil {
		deps.LookupEnv = func(key string) (string, bool) {
			if key == "NO_COLOR" {
				return "1", true
			}
			return "", false
		}
	}
	app, err := NewApp(deps)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	h.app = app
	return h
}

// run executes the command tree with args.
func (h *harness) run(ctx context.Context, args ...string) error {
	root := NewRootCommand(h.app)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// writeFeed lays out a local registration feed under dir.
func writeFeed(t *testing.T, dir string, packages map[string][]fixtureVersion) {
	t.Helper()

	for id, versions := range packages {
		leaves := make([]map[string]any, 0, len(versions))
		for _, v := range versions {
			entry := map[string]any{"id": id, "version": v.Version}
			if v.Published != "" {
				entry["published"] = v.Published
			}
			if v.Listed != nil {
				entry["listed"] = *v.Listed
			}
			var groups []map[string]any
			for moniker, deps := range v.Groups {
				var list []map[string]string
				for depID, rng := range deps {
					list = append(list, map[string]string{"id": depID, "range": rng})
				}
				groups = append(groups, map[string]any{"targetFramework": moniker, "dependencies": list})
			}
			if groups != nil {
				entry["dependencyGroups"] = groups
			}
			leaves = append(leaves, map[string]any{"catalogEntry": entry})
		}
		doc := map[string]any{
			"count": 1,
			"items": []map[string]any{{"count": len(leaves), "items": leaves}},
		}
		data, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal feed for %s: %v", id, err)
		}
		testutil.MustWriteFile(t, filepath.Join(dir, strings.ToLower(id), "index.json"), data)
	}
}

// standardFeed writes the shared fixture:
//
//	Alpha 1.0.0 -> Beta [1.0.0, 2.0.0)    Alpha 2.0.0 -> Beta [2.0.0, )
//	Beta 1.0.0, 2.0.0, 3.0.0-beta
//	Gamma 1.0.0 -> Beta [1.0.0, 2.0.0)
//	Delta 1.0.0 -> Beta [5.0.0, )
func standardFeed(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	ns20 := func(deps map[string]string) map[string]map[string]string {
		return map[string]map[string]string{"netstandard2.0": deps}
	}
	writeFeed(t, dir, map[string][]fixtureVersion{
		"Alpha": {
			{Version: "1.0.0", Published: "2024-01-10T00:00:00Z", Groups: ns20(map[string]string{"Beta": "[1.0.0, 2.0.0)"})},
			{Version: "2.0.0", Published: "2024-06-01T00:00:00Z", Groups: ns20(map[string]string{"Beta": "[2.0.0, )"})},
		},
		"Beta": {
			{Version: "1.0.0", Published: "2023-05-01T00:00:00Z"},
			{Version: "2.0.0", Published: "2024-02-01T00:00:00Z"},
			{Version: "3.0.0-beta", Published: "2024-08-01T00:00:00Z"},
		},
		"Gamma": {
			{Version: "1.0.0", Groups: ns20(map[string]string{"Beta": "[1.0.0, 2.0.0)"})},
		},
		"Delta": {
			{Version: "1.0.0", Groups: map[string]map[string]string{"": {"Beta": "[5.0.0, )"}}},
		},
	})
	return dir
}

// decodeSelection parses `resolve -o json` output.
func decodeSelection(t *testing.T, out []byte) selectionDocument {
	t.Helper()

	var doc selectionDocument
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("decode selection: %v\n%s", err, out)
	}
	return doc
}

func selectedVersions(doc selectionDocument) map[string]string {
	out := make(map[string]string, len(doc.Packages))
	for _, p := range doc.Packages {
		out[p.ID] = p.Version
	}
	return out
}

// requireExit asserts that err carries the wanted exit code and returns the
// service error, if any.
func requireExit(t *testing.T, err error, want ExitCode) *ServiceError {
	t.Helper()

	if got := exitCodeOf(err); got != want {
		t.Fatalf("exit code = %d, want %d (err = %v)", got, want, err)
	}
	var svc *ServiceError
	if errors.As(err, &svc) {
		return svc
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
