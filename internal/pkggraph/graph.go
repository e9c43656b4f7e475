// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package pkggraph

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	gocache "github.com/patrickmn/go-cache"
	"github.com/specialistvlad/hclmacros/internal/ctxlog"
	"github.com/specialistvlad/hclmacros/internal/fsutil"
)

// Graph is the set of packages reachable from a project root.
type Graph struct {
	projectRoot string
	root        *Package
	byRoot      map[string]*Package
	order       []*Package

	// probes memoizes filesystem lookups; it is safe for concurrent use by
	// the rewrite workers.
	probes *gocache.Cache
}

// Discover loads the manifest at projectRoot and, breadth first, every package
// reachable through declared dependencies. Declared dependencies that are not
// installed are logged and skipped: macros treat them as unresolvable.
func Discover(ctx context.Context, projectRoot string) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)

	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root %s: %w", projectRoot, err)
	}
	g := &Graph{
		projectRoot: abs,
		byRoot:      make(map[string]*Package),
		probes:      gocache.New(gocache.NoExpiration, 0),
	}

	parser := hclparse.NewParser()
	root, err := g.load(ctx, parser, abs)
	if err != nil {
		return nil, err
	}
	g.root = root

	queue := []*Package{root}
	for len(queue) > 0 {
		pkg := queue[0]
		queue = queue[1:]

		for _, name := range sortedKeys(pkg.Manifest.Dependencies) {
			dir, ok := g.locate(pkg.Root, name)
			if !ok {
				logger.Warn("Declared dependency is not installed.", "package", pkg.Name, "dependency", name)
				continue
			}
			if _, seen := g.byRoot[dir]; seen {
				continue
			}
			dep, err := g.load(ctx, parser, dir)
			if err != nil {
				return nil, err
			}
			if dep.Name != name {
				return nil, fmt.Errorf("package at %s is named %q but was installed as %q", dir, dep.Name, name)
			}
			queue = append(queue, dep)
		}
	}

	logger.Info("Package graph discovered.", "root", root.Name, "packages", len(g.order))
	return g, nil
}

func (g *Graph) load(ctx context.Context, parser *hclparse.Parser, dir string) (*Package, error) {
	m, err := ParseManifest(ctx, parser, dir)
	if err != nil {
		return nil, err
	}
	pkg := &Package{
		ID:       ID{Name: m.Name, Root: dir},
		Version:  m.Version,
		Manifest: m,
	}
	g.byRoot[dir] = pkg
	g.order = append(g.order, pkg)
	ctxlog.FromContext(ctx).Debug("Package discovered.", "package", pkg.ID.String(), "version", pkg.Version)
	return pkg, nil
}

// ProjectRoot is the absolute project root directory.
func (g *Graph) ProjectRoot() string { return g.projectRoot }

// Root is the package at the project root.
func (g *Graph) Root() *Package { return g.root }

// Packages returns every package in discovery order.
func (g *Graph) Packages() []*Package {
	out := make([]*Package, len(g.order))
	copy(out, g.order)
	return out
}

// ByRoot returns the package whose root is dir.
func (g *Graph) ByRoot(dir string) (*Package, bool) {
	p, ok := g.byRoot[filepath.Clean(dir)]
	return p, ok
}

// Owner returns the innermost package containing path.
func (g *Graph) Owner(path string) (*Package, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if p, ok := g.byRoot[dir]; ok {
			return p, true
		}
		if parent := filepath.Dir(dir); parent == dir {
			return nil, false
		}
	}
}

// SourceFiles lists the source and template files owned by pkg, excluding
// its manifest and anything installed below its packages directory.
func (g *Graph) SourceFiles(pkg *Package, extensions ...string) ([]string, error) {
	files, err := fsutil.FindFilesByExtension(pkg.Root, extensions, PackagesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", pkg.ID, err)
	}
	manifest := filepath.Join(pkg.Root, ManifestFile)
	out := files[:0]
	for _, f := range files {
		if f != manifest {
			out = append(out, f)
		}
	}
	return out, nil
}

// Rel returns path relative to the project root, using forward slashes.
func (g *Graph) Rel(path string) string {
	rel, err := filepath.Rel(g.projectRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
