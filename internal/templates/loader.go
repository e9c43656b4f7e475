package templates

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/hclmacros/internal/ctxlog"
)

// CompileErrorKind tags every error the loader reports.
const CompileErrorKind = "Template Compiler Error"

// CompileError is a template compilation failure attributed to one file.
type CompileError struct {
	Kind    string
	File    string
	Message string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.File, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Reporter receives per-file errors from the host build.
type Reporter interface {
	EmitError(err error)
}

// Loader compiles templates and isolates their failures.
type Loader struct {
	compiler Compiler
	reporter Reporter
}

// NewLoader applies v to m and reports failures to r.
func NewLoader(v Variant, m Module, r Reporter) *Loader {
	return &Loader{compiler: ApplyVariant(v, m), reporter: r}
}

// Load compiles source. When the compiler fails or panics the error is
// reported to the host tagged with CompileErrorKind and the file, and the
// output degrades to the empty string.
func (l *Loader) Load(ctx context.Context, resourcePath, source string) (out string) {
	logger := ctxlog.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			l.report(ctx, resourcePath, fmt.Errorf("template compiler panicked: %v", r))
			out = ""
		}
	}()

	code, err := l.compiler.Compile(resourcePath, source)
	if err != nil {
		l.report(ctx, resourcePath, err)
		return ""
	}
	logger.Debug("Template compiled.", "file", resourcePath, "bytes", len(code))
	return code
}

func (l *Loader) report(ctx context.Context, resourcePath string, err error) {
	ctxlog.FromContext(ctx).Error("Template compilation failed.", "file", resourcePath, "error", err)
	l.reporter.EmitError(&CompileError{
		Kind:    CompileErrorKind,
		File:    resourcePath,
		Message: err.Error(),
		Err:     err,
	})
}

// Collector is a Reporter that keeps every error; it is safe for concurrent use.
type Collector struct {
	mu   sync.Mutex
	errs []error
}

// EmitError implements Reporter.
func (c *Collector) EmitError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// Errors returns the reported errors in arrival order.
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	return out
}
