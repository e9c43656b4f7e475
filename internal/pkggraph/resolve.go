// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package pkggraph

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	gocache "github.com/patrickmn/go-cache"
	"github.com/specialistvlad/hclmacros/internal/fsutil"
)

type probeResult struct {
	dir string
	ok  bool
}

// locate finds the closest install of name visible from fromRoot.
func (g *Graph) locate(fromRoot, name string) (string, bool) {
	key := "locate\x00" + fromRoot + "\x00" + name
	if cached, found := g.probes.Get(key); found {
		r := cached.(probeResult)
		return r.dir, r.ok
	}

	r := probeResult{}
	for dir := fromRoot; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, PackagesDir, filepath.FromSlash(name))
		if fsutil.IsFile(filepath.Join(candidate, ManifestFile)) {
			r = probeResult{dir: candidate, ok: true}
			break
		}
		if dir == g.projectRoot || !strings.HasPrefix(dir, g.projectRoot) {
			break
		}
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}

	g.probes.Set(key, r, gocache.NoExpiration)
	return r.dir, r.ok
}

// Resolve returns the package that name refers to from the point of view of
// from. A package resolves its own name to itself; any other name must be a
// declared dependency that is installed.
func (g *Graph) Resolve(from *Package, name string) (*Package, bool) {
	if name == from.Name {
		return from, true
	}
	if !from.Declares(name) {
		return nil, false
	}
	dir, ok := g.locate(from.Root, name)
	if !ok {
		return nil, false
	}
	p, ok := g.byRoot[dir]
	return p, ok
}

// Satisfies reports whether the dependency name, as resolved from from, has a
// version inside the semver range. Unresolvable packages and unparsable
// versions do not satisfy anything; an invalid range is an error.
func (g *Graph) Satisfies(from *Package, name, versionRange string) (bool, error) {
	constraint, err := semver.NewConstraint(versionRange)
	if err != nil {
		return false, fmt.Errorf("invalid version range %q: %w", versionRange, err)
	}
	dep, ok := g.Resolve(from, name)
	if !ok {
		return false, nil
	}
	version, err := semver.NewVersion(dep.Version)
	if err != nil {
		return false, nil
	}
	return constraint.Check(version), nil
}

// ModuleExists reports whether specifier names a module file on disk from the
// point of view of from. A bare package name checks the package's main entry
// point; "pkg/sub/path" checks that path inside the package, with or without
// the .hcl extension.
func (g *Graph) ModuleExists(from *Package, specifier string) bool {
	name, sub := SplitSpecifier(specifier)
	if name == "" {
		return false
	}

	key := "module\x00" + from.Root + "\x00" + specifier
	if cached, found := g.probes.Get(key); found {
		return cached.(bool)
	}

	exists := false
	if root, main, ok := g.moduleRoot(from, name); ok {
		if sub == "" {
			exists = fsutil.IsFile(filepath.Join(root, main))
		} else {
			p := filepath.Join(root, filepath.FromSlash(sub))
			exists = fsutil.IsFile(p) || fsutil.IsFile(p+".hcl")
		}
	}

	g.probes.Set(key, exists, gocache.NoExpiration)
	return exists
}

// moduleRoot finds the root and entry point of name on disk. Unlike Resolve it
// does not require the name to be declared: module probes follow the
// directory layout only.
func (g *Graph) moduleRoot(from *Package, name string) (string, string, bool) {
	if name == from.Name {
		return from.Root, from.Manifest.Main, true
	}
	dir, ok := g.locate(from.Root, name)
	if !ok {
		return "", "", false
	}
	if p, ok := g.byRoot[dir]; ok {
		return p.Root, p.Manifest.Main, true
	}
	return dir, DefaultMain, true
}

// SplitSpecifier separates a module specifier into its package name and the
// path inside the package. Scoped names ("@scope/name") keep both segments.
func SplitSpecifier(specifier string) (string, string) {
	parts := strings.Split(specifier, "/")
	n := 1
	if strings.HasPrefix(specifier, "@") {
		n = 2
	}
	if len(parts) < n || parts[0] == "" {
		return "", ""
	}
	return strings.Join(parts[:n], "/"), strings.Join(parts[n:], "/")
}
