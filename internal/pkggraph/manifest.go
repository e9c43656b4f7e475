// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package pkggraph

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/hclmacros/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

const (
	// ManifestFile is the name of the manifest at every package root.
	ManifestFile = "package.hcl"
	// PackagesDir holds nested package installs below a package root.
	PackagesDir = "packages"
	// DefaultMain is the module entry point when a manifest names none.
	DefaultMain = "main.hcl"
)

// Manifest is the decoded form of a package.hcl file.
type Manifest struct {
	Path          string
	Name          string
	Version       string
	Main          string
	Merge         string
	Dependencies  map[string]string
	Contributions []Contribution
}

// Contribution is a configuration payload a manifest declares for a target
// package, addressed by the name the target resolves from the declaring package.
type Contribution struct {
	Target string
	Order  int
	Value  cty.Value
	Range  hcl.Range
}

// manifestSchema mirrors the HCL layout of package.hcl for gohcl decoding.
type manifestSchema struct {
	Name         string            `hcl:"name"`
	Version      string            `hcl:"version,optional"`
	Main         string            `hcl:"main,optional"`
	Merge        string            `hcl:"merge,optional"`
	Dependencies map[string]string `hcl:"dependencies,optional"`
	OwnConfig    []*ownConfigBlock `hcl:"own_config,block"`
	Configs      []*configBlock    `hcl:"config,block"`
}

type ownConfigBlock struct {
	Order int       `hcl:"order,optional"`
	Value cty.Value `hcl:"value"`
}

type configBlock struct {
	Target string    `hcl:"target,label"`
	Order  int       `hcl:"order,optional"`
	Value  cty.Value `hcl:"value"`
}

// ParseManifest reads and decodes the manifest in dir.
func ParseManifest(ctx context.Context, parser *hclparse.Parser, dir string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)
	path := filepath.Join(dir, ManifestFile)
	logger.Debug("Parsing package manifest.", "path", path)

	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, diags)
	}
	return decodeManifest(file, path)
}

func decodeManifest(file *hcl.File, path string) (*Manifest, error) {
	var schema manifestSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, diags)
	}
	if schema.Name == "" {
		return nil, fmt.Errorf("invalid manifest %s: name must not be empty", path)
	}

	m := &Manifest{
		Path:         path,
		Name:         schema.Name,
		Version:      schema.Version,
		Main:         schema.Main,
		Merge:        schema.Merge,
		Dependencies: schema.Dependencies,
	}
	if m.Main == "" {
		m.Main = DefaultMain
	}
	if m.Dependencies == nil {
		m.Dependencies = map[string]string{}
	}

	rng := hcl.Range{Filename: path}
	for _, b := range schema.OwnConfig {
		if !b.Value.IsWhollyKnown() {
			return nil, fmt.Errorf("invalid manifest %s: own_config value must be statically known", path)
		}
		m.Contributions = append(m.Contributions, Contribution{
			Target: m.Name,
			Order:  b.Order,
			Value:  b.Value,
			Range:  rng,
		})
	}
	for _, b := range schema.Configs {
		if !b.Value.IsWhollyKnown() {
			return nil, fmt.Errorf("invalid manifest %s: config %q value must be statically known", path, b.Target)
		}
		m.Contributions = append(m.Contributions, Contribution{
			Target: b.Target,
			Order:  b.Order,
			Value:  b.Value,
			Range:  rng,
		})
	}
	return m, nil
}
