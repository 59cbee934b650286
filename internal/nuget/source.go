// SPDX-License-Identifier: MPL-2.0

package nuget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nugraph/nugraph/pkg/universe"
	"github.com/nugraph/nugraph/pkg/version"
)

type (
	// Source is one package feed.
	Source interface {
		// Name identifies the feed in provenance and error messages.
		Name() string
		// Versions returns every listed version of packageID the feed knows,
		// in feed order. An unknown package yields no versions and no error.
		Versions(ctx context.Context, packageID string) ([]universe.PackageVersionNode, error)
	}

	// V3Source reads registration metadata from a NuGet v3 feed.
	V3Source struct {
		name     string
		indexURL string
		client   *Client

		mu   sync.Mutex
		base string
	}

	// LocalSource reads registration documents from a directory laid out as
	// <dir>/<lower-case id>/index.json.
	LocalSource struct {
		name string
		dir  string
	}
)

// NewSource creates a V3Source for http(s) URLs and a LocalSource for
// file:// URLs and plain directory paths. An empty name defaults to the location.
func NewSource(name, location string, client *Client) (Source, error) {
	if name == "" {
		name = location
	}
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewV3Source(name, location, client), nil
	case strings.HasPrefix(location, "file://"):
		dir, err := parseFileURL(location)
		if err != nil {
			return nil, err
		}
		return NewLocalSource(name, dir), nil
	case strings.Contains(location, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, location)
	}
	info, err := os.Stat(location)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is neither a URL nor a directory", ErrUnsupportedSource, location)
	}
	return NewLocalSource(name, location), nil
}

// NewV3Source creates a source for the service index at indexURL.
func NewV3Source(name, indexURL string, client *Client) *V3Source {
	return &V3Source{name: name, indexURL: indexURL, client: client}
}

// Name implements Source.
func (s *V3Source) Name() string { return s.name }

// registrationBase reads the service index on first use. Failures are not
// memoized so a later call may succeed.
func (s *V3Source) registrationBase(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.base != "" {
		return s.base, nil
	}

	var idx serviceIndex
	found, err := s.client.GetJSON(ctx, s.indexURL, &idx)
	if err != nil {
		return "", err
	}
	if !found {
		return "", malformedf("service index %s not found", s.indexURL)
	}
	base, ok := idx.registrationBase()
	if !ok {
		return "", malformedf("service index %s has no registration resource", s.indexURL)
	}
	s.base = strings.TrimSuffix(base, "/")
	return s.base, nil
}

// Versions implements Source.
func (s *V3Source) Versions(ctx context.Context, packageID string) ([]universe.PackageVersionNode, error) {
	base, err := s.registrationBase(ctx)
	if err != nil {
		return nil, err
	}

	var idx registrationIndex
	found, err := s.client.GetJSON(ctx, base+"/"+universe.Key(packageID)+"/index.json", &idx)
	if err != nil || !found {
		return nil, err
	}

	return collect(ctx, s.name, &idx, func(ctx context.Context, pageID string) (*registrationPage, error) {
		var page registrationPage
		found, err := s.client.GetJSON(ctx, pageID, &page)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, malformedf("registration page %s not found", pageID)
		}
		return &page, nil
	})
}

// NewLocalSource creates a source over dir.
func NewLocalSource(name, dir string) *LocalSource {
	return &LocalSource{name: name, dir: filepath.Clean(dir)}
}

// Name implements Source.
func (s *LocalSource) Name() string { return s.name }

// Versions implements Source.
func (s *LocalSource) Versions(ctx context.Context, packageID string) ([]universe.PackageVersionNode, error) {
	pkgDir := filepath.Join(s.dir, universe.Key(packageID))

	var idx registrationIndex
	found, err := readJSONFile(filepath.Join(pkgDir, "index.json"), &idx)
	if err != nil || !found {
		return nil, err
	}

	return collect(ctx, s.name, &idx, func(_ context.Context, pageID string) (*registrationPage, error) {
		path := pageID
		if !filepath.IsAbs(path) {
			path = filepath.Join(pkgDir, filepath.FromSlash(pageID))
		}
		var page registrationPage
		found, err := readJSONFile(path, &page)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, malformedf("registration page %s not found", path)
		}
		return &page, nil
	})
}

func readJSONFile(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, malformedf("%s: %v", path, err)
	}
	return true, nil
}

// collect flattens a registration index into nodes, fetching pages whose
// leaves are not inlined. Unlisted versions are skipped.
func collect(
	ctx context.Context,
	sourceName string,
	idx *registrationIndex,
	fetchPage func(context.Context, string) (*registrationPage, error),
) ([]universe.PackageVersionNode, error) {
	var nodes []universe.PackageVersionNode
	for _, page := range idx.Items {
		leaves := page.Items
		if leaves == nil && page.ID != "" {
			fetched, err := fetchPage(ctx, page.ID)
			if err != nil {
				return nil, err
			}
			leaves = fetched.Items
		}
		for _, leaf := range leaves {
			if leaf.CatalogEntry == nil || !leaf.CatalogEntry.listed() {
				continue
			}
			n, err := leaf.CatalogEntry.node(sourceName)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// listed reports whether the entry is visible. nuget.org marks unlisted
// packages with listed=false or a 1900 publish date.
func (e *catalogEntry) listed() bool {
	if e.Listed != nil && !*e.Listed {
		return false
	}
	return !strings.HasPrefix(e.Published, "1900-")
}

func (e *catalogEntry) node(sourceName string) (universe.PackageVersionNode, error) {
	v, err := version.Parse(e.Version)
	if err != nil {
		return universe.PackageVersionNode{}, malformedf("%s: %v", e.PackageID, err)
	}

	n := universe.PackageVersionNode{
		PackageID:  e.PackageID,
		Version:    v,
		SourceName: sourceName,
	}
	if e.Published != "" {
		if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
			n.Published = t
		}
	}

	for _, g := range e.DependencyGroups {
		group := universe.DependencyGroupInfo{FrameworkMoniker: g.TargetFramework}
		for _, d := range g.Dependencies {
			if strings.TrimSpace(d.ID) == "" {
				return universe.PackageVersionNode{}, malformedf("%s %s: dependency without id", e.PackageID, e.Version)
			}
			rng := version.All()
			if strings.TrimSpace(d.Range) != "" {
				rng, err = version.ParseRange(d.Range)
				if err != nil {
					return universe.PackageVersionNode{}, malformedf("%s %s: %v", e.PackageID, e.Version, err)
				}
			}
			group.Dependencies = append(group.Dependencies, universe.DependencyInfo{PackageID: d.ID, Range: rng})
		}
		n.DependencyGroups = append(n.DependencyGroups, group)
	}
	return n, nil
}

// parseFileURL extracts a native path from a file:// URL, handling Windows
// drive letters (file:///C:/feed).
func parseFileURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}
	path := u.Path
	if u.Host != "" && u.Host != "localhost" {
		path = "//" + u.Host + path
	}
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	if path == "" {
		return "", fmt.Errorf("%w: empty path in %s", ErrUnsupportedSource, raw)
	}
	return filepath.Clean(filepath.FromSlash(path)), nil
}
