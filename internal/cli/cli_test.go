package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/specialistvlad/hclmacros/internal/testutil"
	"github.com/stretchr/testify/require"
)

var project = map[string]string{
	"package.hcl": `
		name = "app"
		own_config {
			value = { mode = "amazing" }
		}
	`,
	"main.hcl": "mode = getOwnConfig().mode\n",
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	outW, errW := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	cmd := NewRootCommand(outW, errW)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return outW.String(), errW.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected an ExitError, got %v", err)
	require.Equal(t, code, exitErr.Code, exitErr.Message)
}

func TestBuild_HappyPath(t *testing.T) {
	root := testutil.WriteTree(t, project)

	_, logs, err := execute(t, "build", root, "--log-format=json", "--workers=2")
	require.NoError(t, err)
	require.Contains(t, logs, `"build_id"`)
	require.Equal(t, "mode = \"amazing\"\n", readFile(t, filepath.Join(root, "dist", "main.hcl")))
}

func TestBuild_ConfigFileAndEnvironment(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"package.hcl":    project["package.hcl"],
		"main.hcl":       project["main.hcl"],
		"hclmacros.yaml": "out: build\nlog-level: warn\n",
	})
	t.Setenv("HCLMACROS_MODE", "runtime")

	_, _, err := execute(t, "build", root)
	require.NoError(t, err)
	out := readFile(t, filepath.Join(root, "build", "main.hcl"))
	require.Contains(t, out, "macrosRuntimeConfig(")
}

func TestBuild_FlagsOverrideConfigFile(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"package.hcl": project["package.hcl"],
		"main.hcl":    project["main.hcl"],
		"custom.yaml": "out: from-file\n",
	})

	_, _, err := execute(t, "build", root, "--config", filepath.Join(root, "custom.yaml"), "--out", "from-flag")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(root, "from-flag", "main.hcl"))
	require.NoDirExists(t, filepath.Join(root, "from-file"))
}

func TestBuild_TemplateErrorsExitWithOne(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"package.hcl":     project["package.hcl"],
		"broken.txt.tmpl": "${",
	})

	_, _, err := execute(t, "build", root)
	requireExitCode(t, err, 1)
	require.Contains(t, err.Error(), "1 template error(s)")
}

func TestBuild_FailBuildAborts(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"package.hcl": project["package.hcl"],
		"main.hcl":    `x = failBuild("unsupported setup")`,
	})

	_, _, err := execute(t, "build", root)
	require.ErrorContains(t, err, "unsupported setup")
	require.NoDirExists(t, filepath.Join(root, "dist"))
}

func TestBuild_InvalidInput(t *testing.T) {
	root := testutil.WriteTree(t, project)

	testCases := []struct {
		name string
		args []string
	}{
		{"log level", []string{"build", root, "--log-level=loud"}},
		{"log format", []string{"build", root, "--log-format=xml"}},
		{"mode", []string{"build", root, "--mode=later"}},
		{"negative workers", []string{"build", root, "--workers=-1"}},
		{"missing config file", []string{"build", root, "--config", filepath.Join(root, "absent.yaml")}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute(t, tc.args...)
			requireExitCode(t, err, 2)
		})
	}
}

func TestInspect(t *testing.T) {
	root := testutil.WriteTree(t, project)

	out, _, err := execute(t, "inspect", root)
	require.NoError(t, err)
	var targets []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &targets))
	require.Len(t, targets, 1)
	require.Equal(t, "app", targets[0]["package"])
	require.Equal(t, map[string]any{"mode": "amazing"}, targets[0]["config"])

	out, _, err = execute(t, "inspect", root, "--format", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "mode: amazing")
	require.Contains(t, out, "owner: app")

	_, _, err = execute(t, "inspect", root, "--format", "toml")
	requireExitCode(t, err, 2)
}

func TestEval_RuntimeBuildOutput(t *testing.T) {
	root := testutil.WriteTree(t, project)

	_, _, err := execute(t, "build", root, "--mode", "runtime")
	require.NoError(t, err)

	out, _, err := execute(t, "eval", filepath.Join(root, "dist", "main.hcl"))
	require.NoError(t, err)
	require.Equal(t, `{"mode":"amazing"}`, strings.TrimSpace(out))
}

func TestEval_UnrewrittenSourceFailsLoudly(t *testing.T) {
	root := testutil.WriteTree(t, project)

	_, _, err := execute(t, "eval", filepath.Join(root, "main.hcl"))
	require.ErrorContains(t, err, "really implemented at build time")
}

func TestHelp(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	require.Contains(t, out, "Usage:")
	require.Contains(t, out, "inspect")
}
