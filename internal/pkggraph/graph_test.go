// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package pkggraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// writeTree writes files below a temporary directory and returns its path.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// nestedProject has two installs of lib: the root sees 3.0.0, addon sees its
// own nested 1.5.0.
var nestedProject = map[string]string{
	"package.hcl": `
		name    = "app"
		version = "1.0.0"
		dependencies = {
			addon = "^2.0.0"
			lib   = "*"
		}
		own_config {
			value = { mode = "basic" }
		}
		config "addon" {
			order = 5
			value = { mode = "amazing" }
		}
	`,
	"main.hcl":                   `x = 1`,
	"src/util.hcl":               `y = 2`,
	"src/page.hcl.tmpl":          `hello`,
	"packages/addon/package.hcl": `
		name    = "addon"
		version = "2.3.0"
		dependencies = { lib = "^1.0.0" }
	`,
	"packages/addon/main.hcl":                 `z = 3`,
	"packages/addon/helpers/format.hcl":       `w = 4`,
	"packages/addon/packages/lib/package.hcl": "name = \"lib\"\nversion = \"1.5.0\"",
	"packages/addon/packages/lib/entry.hcl":   ``,
	"packages/lib/package.hcl":                "name = \"lib\"\nversion = \"3.0.0\"\nmain = \"entry.hcl\"",
	"packages/lib/entry.hcl":                  ``,
	"packages/undeclared/package.hcl":         `name = "undeclared"`,
	"packages/undeclared/main.hcl":            ``,
}

func discover(t *testing.T, files map[string]string) *Graph {
	t.Helper()
	g, err := Discover(context.Background(), writeTree(t, files))
	require.NoError(t, err)
	return g
}

func TestDiscover_NestedInstalls(t *testing.T) {
	g := discover(t, nestedProject)

	var got []string
	for _, p := range g.Packages() {
		got = append(got, p.Name+"@"+p.Version+":"+g.Rel(p.Root))
	}
	want := []string{
		"app@1.0.0:.",
		"addon@2.3.0:packages/addon",
		"lib@3.0.0:packages/lib",
		"lib@1.5.0:packages/addon/packages/lib",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Packages() mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "app", g.Root().Name)
}

func TestDiscover_ManifestContributions(t *testing.T) {
	g := discover(t, nestedProject)
	m := g.Root().Manifest

	require.Len(t, m.Contributions, 2)
	require.Equal(t, "app", m.Contributions[0].Target)
	require.Equal(t, "addon", m.Contributions[1].Target)
	require.Equal(t, 5, m.Contributions[1].Order)
	require.Equal(t, "amazing", m.Contributions[1].Value.GetAttr("mode").AsString())
	require.Equal(t, DefaultMain, m.Main)
}

func TestDiscover_MissingDependencyIsSkipped(t *testing.T) {
	g := discover(t, map[string]string{
		"package.hcl": `
			name = "app"
			dependencies = { ghost = "1.0.0" }
		`,
	})
	require.Len(t, g.Packages(), 1)
	_, ok := g.Resolve(g.Root(), "ghost")
	require.False(t, ok)
}

func TestDiscover_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "no manifest",
			files:   map[string]string{"main.hcl": ``},
			wantErr: "failed to parse manifest",
		},
		{
			name:    "missing name",
			files:   map[string]string{"package.hcl": `version = "1.0.0"`},
			wantErr: "invalid manifest",
		},
		{
			name:    "unknown attribute",
			files:   map[string]string{"package.hcl": "name = \"app\"\nflavor = \"x\""},
			wantErr: "invalid manifest",
		},
		{
			name: "install name mismatch",
			files: map[string]string{
				"package.hcl":              "name = \"app\"\ndependencies = { dep = \"*\" }",
				"packages/dep/package.hcl": `name = "other"`,
			},
			wantErr: `is named "other" but was installed as "dep"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Discover(context.Background(), writeTree(t, tc.files))
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestResolve_ClosestInstallWins(t *testing.T) {
	g := discover(t, nestedProject)
	app := g.Root()
	addon, ok := g.Resolve(app, "addon")
	require.True(t, ok)

	libFromApp, ok := g.Resolve(app, "lib")
	require.True(t, ok)
	require.Equal(t, "3.0.0", libFromApp.Version)

	libFromAddon, ok := g.Resolve(addon, "lib")
	require.True(t, ok)
	require.Equal(t, "1.5.0", libFromAddon.Version)
	require.NotEqual(t, libFromApp.ID, libFromAddon.ID)

	self, ok := g.Resolve(addon, "addon")
	require.True(t, ok)
	require.Same(t, addon, self)

	_, ok = g.Resolve(app, "undeclared")
	require.False(t, ok, "installed but undeclared packages do not resolve")
}

func TestSatisfies(t *testing.T) {
	g := discover(t, nestedProject)
	app := g.Root()
	addon, _ := g.Resolve(app, "addon")

	testCases := []struct {
		from *Package
		name string
		rng  string
		want bool
	}{
		{app, "addon", "^2.0.0", true},
		{app, "addon", ">=3.0.0", false},
		{app, "lib", "^3.0.0", true},
		{addon, "lib", "^1.0.0", true},
		{addon, "lib", "^3.0.0", false},
		{app, "ghost", "*", false},
		{app, "undeclared", "*", false},
	}
	for _, tc := range testCases {
		got, err := g.Satisfies(tc.from, tc.name, tc.rng)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "%s: %s %s", tc.from.Name, tc.name, tc.rng)
	}

	_, err := g.Satisfies(app, "addon", "not a range")
	require.ErrorContains(t, err, "invalid version range")
}

func TestModuleExists(t *testing.T) {
	g := discover(t, nestedProject)
	app := g.Root()
	addon, _ := g.Resolve(app, "addon")

	testCases := []struct {
		from      *Package
		specifier string
		want      bool
	}{
		{app, "addon", true},
		{app, "addon/helpers/format", true},
		{app, "addon/helpers/format.hcl", true},
		{app, "addon/helpers/missing", false},
		{app, "lib", true},
		{app, "undeclared", true},
		{app, "ghost", false},
		{app, "app/src/util", true},
		{addon, "lib/entry.hcl", true},
		{app, "", false},
	}
	for _, tc := range testCases {
		// Twice: the second call is served from the probe cache.
		for i := 0; i < 2; i++ {
			require.Equal(t, tc.want, g.ModuleExists(tc.from, tc.specifier), "%s: %q", tc.from.Name, tc.specifier)
		}
	}
}

func TestSplitSpecifier(t *testing.T) {
	testCases := []struct{ in, name, sub string }{
		{"addon", "addon", ""},
		{"addon/a/b", "addon", "a/b"},
		{"@scope/pkg", "@scope/pkg", ""},
		{"@scope/pkg/sub", "@scope/pkg", "sub"},
		{"@scope", "", ""},
		{"", "", ""},
	}
	for _, tc := range testCases {
		name, sub := SplitSpecifier(tc.in)
		require.Equal(t, tc.name, name, tc.in)
		require.Equal(t, tc.sub, sub, tc.in)
	}
}

func TestOwnerAndSourceFiles(t *testing.T) {
	g := discover(t, nestedProject)
	app := g.Root()

	owner, ok := g.Owner(filepath.Join(app.Root, "packages", "addon", "helpers", "format.hcl"))
	require.True(t, ok)
	require.Equal(t, "addon", owner.Name)

	files, err := g.SourceFiles(app, ".hcl", ".tmpl")
	require.NoError(t, err)
	var rel []string
	for _, f := range files {
		rel = append(rel, g.Rel(f))
	}
	want := []string{"main.hcl", "src/page.hcl.tmpl", "src/util.hcl"}
	if diff := cmp.Diff(want, rel); diff != "" {
		t.Errorf("SourceFiles() mismatch (-want +got):\n%s", diff)
	}
}
