package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// ReadOutput returns the built file at rel, relative to the output directory.
func ReadOutput(t *testing.T, result *HarnessResult, outDir, rel string) string {
	t.Helper()

	if outDir == "" {
		outDir = "dist"
	}
	data, err := os.ReadFile(filepath.Join(result.Root, outDir, filepath.FromSlash(rel)))
	require.NoError(t, err, "expected build output %s", rel)
	return string(data)
}

// AssertNoMacros checks that none of the given macro names survive in src.
func AssertNoMacros(t *testing.T, src string, names ...string) {
	t.Helper()

	for _, name := range names {
		require.False(t,
			strings.Contains(src, name+"("),
			"expected %s() to be rewritten, got:\n%s", name, src,
		)
	}
}
