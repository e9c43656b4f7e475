package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/hclmacros/internal/app"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteTree writes files, keyed by slash-separated relative path, below a new
// temporary directory and returns its absolute path.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// HarnessResult holds the outcomes of a build run in a test.
type HarnessResult struct {
	Root      string
	LogOutput string
	Output    string
	Report    *app.Report
	Err       error
	App       *app.App
}

// RunBuild writes files to a temporary project and builds it. Fields left
// empty in cfg get test defaults.
func RunBuild(t *testing.T, files map[string]string, cfg app.Config, plugins ...any) *HarnessResult {
	t.Helper()
	return RunBuildWithContext(context.Background(), t, files, cfg, plugins...)
}

// RunBuildWithContext is RunBuild with a caller-provided context.
func RunBuildWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config, plugins ...any) *HarnessResult {
	t.Helper()

	cfg.ProjectRoot = WriteTree(t, files)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 4
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	outBuffer := &SafeBuffer{}
	testApp := app.NewApp(outBuffer, logBuffer, appConfig, plugins...)
	report, runErr := testApp.Build(ctx)

	if os.Getenv("HCLMACROS_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		Root:      cfg.ProjectRoot,
		LogOutput: logBuffer.String(),
		Output:    outBuffer.String(),
		Report:    report,
		Err:       runErr,
		App:       testApp,
	}
}
