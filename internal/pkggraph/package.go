// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package pkggraph

import (
	"path/filepath"
)

// ID is the identity of a package: its name together with its resolved root.
// It is comparable and used as a map key by the config registry.
type ID struct {
	Name string
	Root string
}

func (id ID) String() string {
	return id.Name + "@" + id.Root
}

// Package is one discovered package. It is never modified after discovery.
type Package struct {
	ID
	Version  string
	Manifest *Manifest
}

// MainPath is the absolute path of the package's module entry point.
func (p *Package) MainPath() string {
	return filepath.Join(p.Root, p.Manifest.Main)
}

// Declares reports whether name is one of the package's declared dependencies.
func (p *Package) Declares(name string) bool {
	_, ok := p.Manifest.Dependencies[name]
	return ok
}
