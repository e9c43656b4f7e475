package integration_tests

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/hclmacros/internal/app"
	"github.com/specialistvlad/hclmacros/internal/shim"
	"github.com/specialistvlad/hclmacros/internal/testutil"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// TestRuntimeMode_OutputEvaluatesAgainstShim validates that runtime mode
// leaves configuration lookups to the shim, and that the rewritten file
// evaluates to the same values a build-time rewrite inlines.
func TestRuntimeMode_OutputEvaluatesAgainstShim(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"package.hcl":                appManifest,
		"packages/addon/package.hcl": addonManifest,
		"main.hcl": `
mode    = getOwnConfig().mode
count   = getConfig("addon").count
missing = getConfig("ghost")
items   = each([1, 2, 3])
picked  = macroCondition(true) ? "yes" : "no"
addon   = importSync("addon")
`,
	}

	// --- Act ---
	result := testutil.RunBuild(t, files, app.Config{Mode: "runtime"})
	require.NoError(t, result.Err)

	out := testutil.ReadOutput(t, result, "", "main.hcl")
	got, err := result.App.Eval(context.Background(), filepath.Join(result.Root, "dist", "main.hcl"))

	// --- Assert ---
	require.Contains(t, out, shim.RuntimeConfigFunction+"(")
	testutil.AssertNoMacros(t, out, "getConfig", "getOwnConfig", "importSync")
	require.Contains(t, out, "each([1, 2, 3])")

	require.NoError(t, err)
	require.Equal(t, "amazing", got.GetAttr("mode").AsString())
	require.True(t, cty.NumberIntVal(42).RawEquals(got.GetAttr("count")))
	require.True(t, got.GetAttr("missing").IsNull())
	require.Equal(t, 3, got.GetAttr("items").LengthInt())
	require.Equal(t, "yes", got.GetAttr("picked").AsString())
	require.Equal(t, "addon", got.GetAttr("addon").GetAttr("specifier").AsString())

	require.Equal(t, "runtime", result.Report.Mode)
}

// TestRuntimeMode_UnrewrittenSourceFailsLoudly validates that evaluating a
// source file that never went through the build names the macro and its
// arguments instead of producing a value.
func TestRuntimeMode_UnrewrittenSourceFailsLoudly(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"package.hcl":                appManifest,
		"packages/addon/package.hcl": addonManifest,
		"main.hcl":                   "count = getConfig(\"addon\").count\n",
	}
	result := testutil.RunBuild(t, files, app.Config{})
	require.NoError(t, result.Err)

	// --- Act ---
	_, err := result.App.Eval(context.Background(), filepath.Join(result.Root, "main.hcl"))

	// --- Assert ---
	require.ErrorContains(t, err, `getConfig("addon") is really implemented at build time`)
}
