// Package shim provides the runtime behaviour of the macros for code that runs
// without having been rewritten, such as a development build evaluated in
// runtime mode.
//
// It owns a RuntimeConfig, a map from package root to configuration value. The
// map is looser than the build-time registry: it is keyed by a root string
// rather than a resolved package, because at runtime there is no package graph.
// A RuntimeConfig is created explicitly and injected into whatever evaluates
// runtime code; nothing clears it.
package shim

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/hclmacros/internal/ctxlog"
	"github.com/specialistvlad/hclmacros/internal/pkggraph"
	"github.com/zclconf/go-cty/cty"
)

// RuntimeConfig maps package roots to configuration values. Concurrent writers
// to one root are last-write-wins.
type RuntimeConfig struct {
	mu     sync.RWMutex
	values map[string]cty.Value
}

// New returns an empty RuntimeConfig.
func New() *RuntimeConfig {
	return &RuntimeConfig{values: make(map[string]cty.Value)}
}

// Get returns the value stored for root. A root with no entry, or an empty
// root, is absent rather than an error.
func (c *RuntimeConfig) Get(root string) (cty.Value, bool) {
	if root == "" {
		return cty.NilVal, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[root]
	return v, ok
}

// Set stores value for root. An empty root is ignored.
func (c *RuntimeConfig) Set(root string, value cty.Value) {
	if root == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[root] = value
}

// Roots lists the roots that have a value, sorted.
func (c *RuntimeConfig) Roots() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	roots := make([]string, 0, len(c.values))
	for r := range c.values {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots
}

// Resolver is the read side of a sealed config registry.
type Resolver interface {
	Resolve(target *pkggraph.Package) (cty.Value, bool, error)
}

// Seed copies the resolved configuration of every package that has one into
// c. It is the explicit population step tooling performs before running code
// that was rewritten in runtime mode.
func Seed(ctx context.Context, c *RuntimeConfig, packages []*pkggraph.Package, res Resolver) error {
	seeded := 0
	for _, pkg := range packages {
		v, ok, err := res.Resolve(pkg)
		if err != nil {
			return fmt.Errorf("failed to seed runtime config for %s: %w", pkg.ID, err)
		}
		if !ok {
			continue
		}
		c.Set(pkg.Root, v)
		seeded++
	}
	ctxlog.FromContext(ctx).Debug("Runtime config seeded.", "packages", seeded)
	return nil
}
