// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/nugraph/nugraph/internal/config"
	"github.com/nugraph/nugraph/internal/graphstore"
	"github.com/nugraph/nugraph/internal/issue"
	"github.com/nugraph/nugraph/internal/lockfile"
	"github.com/nugraph/nugraph/internal/testutil"
)

func TestResolve_Selections(t *testing.T) {
	t.Parallel()

	feed := standardFeed(t)

	tests := []struct {
		name          string
		args          []string
		want          map[string]string
		wantObjective int
	}{
		{
			name:          "newest compatible",
			args:          []string{"Alpha"},
			want:          map[string]string{"Alpha": "2.0.0", "Beta": "2.0.0"},
			wantObjective: 1,
		},
		{
			name:          "conflict forces older versions",
			args:          []string{"Alpha", "Gamma"},
			want:          map[string]string{"Alpha": "1.0.0", "Beta": "1.0.0", "Gamma": "1.0.0"},
			wantObjective: 0,
		},
		{
			name:          "package flag with comma list",
			args:          []string{"-p", "alpha, GAMMA", "Alpha"},
			want:          map[string]string{"Alpha": "1.0.0", "Beta": "1.0.0", "GAMMA": "1.0.0"},
			wantObjective: 0,
		},
		{
			name:          "prerelease requested",
			args:          []string{"Beta", "--include-prerelease"},
			want:          map[string]string{"Beta": "3.0.0-beta"},
			wantObjective: 2,
		},
		{
			name:          "prerelease outside release range",
			args:          []string{"Alpha", "--include-prerelease"},
			want:          map[string]string{"Alpha": "2.0.0", "Beta": "2.0.0"},
			wantObjective: 1,
		},
		{
			name:          "framework without a matching group drops dependencies",
			args:          []string{"Alpha", "Gamma", "--framework", "net40"},
			want:          map[string]string{"Alpha": "2.0.0", "Gamma": "1.0.0"},
			wantObjective: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, testConfig(feed))
			args := append([]string{"resolve", "-o", "json"}, tt.args...)
			if err := h.run(t.Context(), args...); err != nil {
				t.Fatalf("resolve error = %v\nstderr: %s", err, h.stderr)
			}

			doc := decodeSelection(t, h.stdout.Bytes())
			got := selectedVersions(doc)
			if len(got) != len(tt.want) {
				t.Fatalf("selection = %v, want %v", got, tt.want)
			}
			for id, v := range tt.want {
				if got[id] != v {
					t.Errorf("selection[%s] = %q, want %q (all: %v)", id, got[id], v, got)
				}
			}
			if doc.Objective != tt.wantObjective {
				t.Errorf("objective = %d, want %d", doc.Objective, tt.wantObjective)
			}
		})
	}
}

func TestResolve_TableOutput(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testConfig(standardFeed(t)))
	if err := h.run(t.Context(), "resolve", "Alpha"); err != nil {
		t.Fatalf("resolve error = %v", err)
	}

	out := h.stdout.String()
	if !strings.Contains(out, "Newest compatible selection for net8.0 (packages=2, objective=1)") {
		t.Errorf("missing header in:\n%s", out)
	}
	for _, want := range []string{"PACKAGE", "VERSION", "Alpha", "Beta", "2/2", "local", "yes"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Alpha") > strings.Index(out, "Beta") {
		t.Error("rows should be sorted by package id")
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("output should carry no ANSI sequences when color is disabled")
	}
}

func TestResolve_WritesLockFile(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testConfig(standardFeed(t)))
	lockPath := filepath.Join(t.TempDir(), "nested", "packages.lock.toml")

	if err := h.run(t.Context(), "resolve", "Alpha", "--lock", lockPath); err != nil {
		t.Fatalf("resolve error = %v", err)
	}
	if !strings.Contains(h.stdout.String(), "Wrote lock file "+lockPath) {
		t.Errorf("stdout should report the lock file:\n%s", h.stdout)
	}

	f, err := os.Open(lockPath)
	if err != nil {
		t.Fatalf("open lock file: %v", err)
	}
	defer testutil.MustClose(t, f)

	lock, err := lockfile.Read(f)
	if err != nil {
		t.Fatalf("lockfile.Read() error = %v", err)
	}
	if lock.Framework != "net8.0" || lock.Objective != 1 {
		t.Errorf("lock header = %s/%d, want net8.0/1", lock.Framework, lock.Objective)
	}
	beta, ok := lock.Lookup("beta")
	if !ok || beta.Version != "2.0.0" || beta.TopLevel {
		t.Errorf("Beta entry = %+v, %v", beta, ok)
	}
	alpha, ok := lock.Lookup("Alpha")
	if !ok || !alpha.TopLevel || len(alpha.Dependencies) != 1 {
		t.Errorf("Alpha entry = %+v, %v", alpha, ok)
	}
}

func TestResolve_LockFileFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testConfig(standardFeed(t)))
	blocker := filepath.Join(t.TempDir(), "file")
	testutil.MustWriteFile(t, blocker, []byte("x"))

	err := h.run(t.Context(), "resolve", "Alpha", "--lock", filepath.Join(blocker, "lock.toml"))
	svc := requireExit(t, err, ExitFailure)
	if svc == nil || svc.IssueID != issue.LockFileFailedId {
		t.Fatalf("service error = %+v, want LockFileFailedId", svc)
	}
}

func TestResolve_Failures(t *testing.T) {
	t.Parallel()

	feed := standardFeed(t)

	tests := []struct {
		name      string
		args      []string
		wantCode  ExitCode
		wantIssue issue.Id
	}{
		{"no packages", []string{"resolve"}, ExitUsage, issue.NoPackagesId},
		{"blank package list", []string{"resolve", "-p", " , "}, ExitUsage, issue.NoPackagesId},
		{"invalid package id", []string{"resolve", "Not A Package"}, ExitUsage, issue.InvalidPackageSpecId},
		{"unknown framework", []string{"resolve", "Alpha", "--framework", "java17"}, ExitUsage, issue.InvalidFrameworkId},
		{"dependency out of reach", []string{"resolve", "Delta"}, ExitInfeasible, issue.UnsatisfiableId},
		{"unknown package", []string{"resolve", "Missing.Package"}, ExitInfeasible, issue.UnsatisfiableId},
		{"too few versions", []string{"resolve", "Alpha", "Gamma", "--max-versions", "1"}, ExitInfeasible, issue.UnsatisfiableId},
		{"optimized package outside closure", []string{"resolve", "Alpha", "--optimize", "Gamma"}, ExitUsage, issue.InvalidPackageSpecId},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, testConfig(feed))
			err := h.run(t.Context(), tt.args...)
			svc := requireExit(t, err, tt.wantCode)
			if svc == nil {
				t.Fatalf("error %v should carry a ServiceError", err)
			}
			if svc.IssueID != tt.wantIssue {
				t.Errorf("IssueID = %d, want %d", svc.IssueID, tt.wantIssue)
			}
		})
	}
}

func TestResolve_UsageErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testConfig(standardFeed(t)))

	requireExit(t, h.run(t.Context(), "resolve", "Alpha", "--output", "yaml"), ExitUsage)
	requireExit(t, h.run(t.Context(), "resolve", "Alpha", "--max-versions", "many"), ExitUsage)
	requireExit(t, h.run(t.Context(), "resolve", "Alpha", "--log-format", "xml"), ExitUsage)
}

func TestResolve_FetchFailure(t *testing.T) {
	t.Parallel()

	feed := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(feed, "alpha", "index.json"), []byte("{not json"))

	h := newHarness(t, testConfig(feed))
	svc := requireExit(t, h.run(t.Context(), "resolve", "Alpha"), ExitFailure)
	if svc == nil || svc.IssueID != issue.MetadataFetchFailedId {
		t.Fatalf("service error = %+v, want MetadataFetchFailedId", svc)
	}
}

func TestResolve_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	h := newHarness(t, testConfig(standardFeed(t)))
	svc := requireExit(t, h.run(ctx, "resolve", "Alpha"), ExitCancelled)
	if svc == nil || svc.IssueID != issue.CancelledId {
		t.Fatalf("service error = %+v, want CancelledId", svc)
	}
}

func TestResolve_GraphStore(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	var gotCfg config.Neo4jConfig
	h := newHarnessWith(t, Dependencies{
		Config: staticConfig{cfg: testConfig(standardFeed(t))},
		OpenStore: func(_ context.Context, cfg config.Neo4jConfig, _ *slog.Logger) (graphstore.Store, error) {
			gotCfg = cfg
			return store, nil
		},
	})

	err := h.run(t.Context(), "resolve", "Alpha",
		"--neo4j-uri", "neo4j://localhost:7687", "--neo4j-user", "neo4j", "--neo4j-password", "secret")
	if err != nil {
		t.Fatalf("resolve error = %v", err)
	}
	if gotCfg.URI != "neo4j://localhost:7687" || gotCfg.User != "neo4j" || gotCfg.Password != "secret" {
		t.Errorf("store config = %+v", gotCfg)
	}
	if store.universes != 1 || store.solutions != 1 || !store.closed {
		t.Errorf("store = %+v, want one universe, one solution, closed", store)
	}
	if !strings.Contains(h.stdout.String(), "Recorded resolution res-1") {
		t.Errorf("stdout should report the resolution id:\n%s", h.stdout)
	}
}

func TestResolve_GraphStoreFailures(t *testing.T) {
	t.Parallel()

	feed := standardFeed(t)

	t.Run("open", func(t *testing.T) {
		t.Parallel()

		h := newHarnessWith(t, Dependencies{
			Config: staticConfig{cfg: testConfig(feed)},
			OpenStore: func(context.Context, config.Neo4jConfig, *slog.Logger) (graphstore.Store, error) {
				return nil, &graphstore.StoreError{Op: "connect", Err: errors.New("connection refused")}
			},
		})
		svc := requireExit(t, h.run(t.Context(), "resolve", "Alpha"), ExitFailure)
		if svc == nil || svc.IssueID != issue.GraphStoreFailedId {
			t.Fatalf("service error = %+v, want GraphStoreFailedId", svc)
		}
	})

	t.Run("upsert", func(t *testing.T) {
		t.Parallel()

		store := &recordingStore{failOn: "upsert"}
		h := newHarnessWith(t, Dependencies{
			Config: staticConfig{cfg: testConfig(feed)},
			OpenStore: func(context.Context, config.Neo4jConfig, *slog.Logger) (graphstore.Store, error) {
				return store, nil
			},
		})
		svc := requireExit(t, h.run(t.Context(), "resolve", "Alpha"), ExitFailure)
		if svc == nil || svc.IssueID != issue.GraphStoreFailedId {
			t.Fatalf("service error = %+v, want GraphStoreFailedId", svc)
		}
		if !store.closed {
			t.Error("store should be closed after a failed upsert")
		}
	})
}

func TestResolve_ConfigLoadFailure(t *testing.T) {
	t.Parallel()

	h := newHarnessWith(t, Dependencies{Config: staticConfig{err: errors.New("bad config")}})
	svc := requireExit(t, h.run(t.Context(), "resolve", "Alpha"), ExitFailure)
	if svc == nil || svc.IssueID != issue.ConfigLoadFailedId {
		t.Fatalf("service error = %+v, want ConfigLoadFailedId", svc)
	}
}

func TestResolveFlags_Request(t *testing.T) {
	t.Parallel()

	cfg := testConfig("/feed")
	cfg.Resolve.IncludePrerelease = true
	cfg.Resolve.MaxVersions = 7
	cfg.Neo4j = config.Neo4jConfig{URI: "neo4j://db", User: "neo4j", Password: "pw"}

	cmd := &cobra.Command{Use: "resolve"}
	var f resolveFlags
	bindResolveFlags(cmd, &f)
	err := cmd.ParseFlags([]string{
		"--tfm", "net472",
		"--source", "a", "--source", "b",
		"--include-prerelease=false",
		"--solver-timeout", "5s",
		"--optimize", "beta",
		"--neo4j-database", "graphs",
	})
	if err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	req, err := f.request(cmd, cfg, []string{"Alpha"})
	if err != nil {
		t.Fatalf("request() error = %v", err)
	}
	if req.Resolve.Framework != "net472" {
		t.Errorf("Framework = %q, want net472", req.Resolve.Framework)
	}
	if len(req.Sources) != 2 || req.Sources[0].URL != "a" || req.Sources[1].Name != "b" {
		t.Errorf("Sources = %+v, want a and b", req.Sources)
	}
	if req.Resolve.IncludePrerelease {
		t.Error("explicit --include-prerelease=false should override the config")
	}
	if req.Resolve.MaxVersions != 7 {
		t.Errorf("MaxVersions = %d, want the configured 7", req.Resolve.MaxVersions)
	}
	if req.Resolve.SolverTimeout != 5*time.Second {
		t.Errorf("SolverTimeout = %v, want 5s", req.Resolve.SolverTimeout)
	}
	if len(req.Optimize) != 1 || req.Optimize[0] != "beta" {
		t.Errorf("Optimize = %v, want [beta]", req.Optimize)
	}
	if req.Neo4j.URI != "neo4j://db" || req.Neo4j.Database != "graphs" {
		t.Errorf("Neo4j = %+v", req.Neo4j)
	}
}
