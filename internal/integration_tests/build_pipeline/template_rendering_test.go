package integration_tests

import (
	"testing"

	"github.com/specialistvlad/hclmacros/internal/app"
	"github.com/specialistvlad/hclmacros/internal/testutil"
	"github.com/stretchr/testify/require"
)

// TestBuild_RendersTemplatesWithVariant validates that templates see the
// macros of the package that owns them and the build variant, and that the
// .tmpl extension is dropped from the output.
func TestBuild_RendersTemplatesWithVariant(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"package.hcl":                appManifest,
		"packages/addon/package.hcl": addonManifest,
		"packages/addon/readme.txt.tmpl": "count: ${getOwnConfig().count}\n" +
			"variant: ${variant.name}/${variant.runtime}%{ if variant.optimize_for_production } (optimized)%{ endif }\n",
	}
	cfg := app.Config{
		VariantName:           "prod",
		VariantRuntime:        "server",
		OptimizeForProduction: true,
	}

	// --- Act ---
	result := testutil.RunBuild(t, files, cfg)

	// --- Assert ---
	require.NoError(t, result.Err)
	require.False(t, result.Report.Failed)

	out := testutil.ReadOutput(t, result, "", "packages/addon/readme.txt")
	require.Equal(t, "count: 42\nvariant: prod/server (optimized)\n", out)

	require.Len(t, result.Report.Files, 1)
	require.Equal(t, "template", result.Report.Files[0].Kind)
	require.Equal(t, "addon", result.Report.Files[0].Package)
}
