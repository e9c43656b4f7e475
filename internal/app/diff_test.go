package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnifiedDiff(t *testing.T) {
	t.Parallel()

	before := "a = 1\nmode = getOwnConfig().mode\nb = 2\n"
	after := "a = 1\nmode = \"amazing\"\nb = 2\n"

	want := "--- a/main.hcl\n" +
		"+++ b/main.hcl\n" +
		" a = 1\n" +
		"-mode = getOwnConfig().mode\n" +
		"+mode = \"amazing\"\n" +
		" b = 2\n"
	assert.Equal(t, want, unifiedDiff("main.hcl", before, after))
}

func TestUnifiedDiff_MissingTrailingNewline(t *testing.T) {
	t.Parallel()

	got := unifiedDiff("x.hcl", "x = 1", "x = 2")
	assert.Equal(t, "--- a/x.hcl\n+++ b/x.hcl\n-x = 1\n+x = 2\n", got)
}
