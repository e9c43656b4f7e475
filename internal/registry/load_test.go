package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/hclmacros/internal/pkggraph"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func discover(t *testing.T, files map[string]string) *pkggraph.Graph {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	g, err := pkggraph.Discover(context.Background(), root)
	require.NoError(t, err)
	return g
}

func TestLoadManifests_ContributionsReachTheirTargets(t *testing.T) {
	ctx := context.Background()
	g := discover(t, map[string]string{
		"package.hcl": `
			name = "app"
			dependencies = { addon = "*" }
			config "addon" {
				order = 1
				value = { mode = "amazing" }
			}
		`,
		"packages/addon/package.hcl": `
			name  = "addon"
			merge = "deep"
			own_config {
				value = { mode = "basic", flags = { fast = true } }
			}
		`,
	})

	r := New()
	require.NoError(t, r.LoadManifests(ctx, g))
	require.NoError(t, r.Seal(ctx))

	addon, ok := g.Resolve(g.Root(), "addon")
	require.True(t, ok)
	got, found, err := r.Resolve(addon)
	require.NoError(t, err)
	require.True(t, found)

	want := cty.ObjectVal(map[string]cty.Value{
		"mode":  cty.StringVal("amazing"),
		"flags": cty.ObjectVal(map[string]cty.Value{"fast": cty.True}),
	})
	require.True(t, want.RawEquals(got), "got %#v", got)

	_, found, err = r.Resolve(g.Root())
	require.NoError(t, err)
	require.False(t, found)
}

func TestLoadManifests_UnresolvableTarget(t *testing.T) {
	g := discover(t, map[string]string{
		"package.hcl": `
			name = "app"
			config "ghost" {
				value = {}
			}
		`,
	})
	err := New().LoadManifests(context.Background(), g)
	require.ErrorContains(t, err, `contributes configuration to "ghost", which it cannot resolve`)
}

func TestLoadManifests_UnknownStrategy(t *testing.T) {
	g := discover(t, map[string]string{
		"package.hcl": "name = \"app\"\nmerge = \"random\"",
	})
	err := New().LoadManifests(context.Background(), g)
	require.ErrorContains(t, err, "unknown merge strategy")
}
