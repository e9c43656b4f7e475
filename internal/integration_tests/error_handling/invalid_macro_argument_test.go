package integration_tests

import (
	"testing"

	"github.com/specialistvlad/hclmacros/internal/app"
	"github.com/specialistvlad/hclmacros/internal/macro"
	"github.com/specialistvlad/hclmacros/internal/testutil"
	"github.com/stretchr/testify/require"
)

// TestErrorHandling_InvalidMacroArguments validates that misuse of a macro is
// reported against its call site and stops the build.
func TestErrorHandling_InvalidMacroArguments(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"each of a string", `items = each("abc")`, "the argument to the each() macro must be an array"},
		{"dynamic argument", `items = each(var.items)`, "argument must be statically known"},
		{"wrong arity", `cfg = getConfig()`, "expects 1 argument(s), got 0"},
		{"bad range", `ok = dependencySatisfies("addon", "not a range")`, "invalid version range"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			files := map[string]string{
				"package.hcl":                appManifest,
				"packages/addon/package.hcl": addonManifest,
				"main.hcl":                   tc.src,
			}

			// --- Act ---
			result := testutil.RunBuild(t, files, app.Config{})

			// --- Assert ---
			require.ErrorContains(t, result.Err, tc.wantErr)
			require.False(t, macro.IsBuildFailure(result.Err))
			require.Contains(t, result.Err.Error(), "main.hcl")
		})
	}
}
