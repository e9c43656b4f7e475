package macro

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ErrNotRewritten is matched by errors.Is for every NotRewrittenError.
var ErrNotRewritten = errors.New("macro is implemented at build time")

// NotRewrittenError is returned when a macro call is executed without having
// been rewritten by the build. It carries the macro and its original arguments.
type NotRewrittenError struct {
	Macro Kind
	Args  []cty.Value
}

func (e *NotRewrittenError) Error() string {
	return fmt.Sprintf(
		"%s(%s) is really implemented at build time by the hclmacros rewriter; if you are seeing this error, the file was not rewritten",
		e.Macro, FormatArgs(e.Args),
	)
}

func (e *NotRewrittenError) Is(target error) bool { return target == ErrNotRewritten }

// InvalidArgumentError reports a macro argument that is not acceptable at a
// call site, such as a non-array passed to each().
type InvalidArgumentError struct {
	Macro   Kind
	Message string
	Range   hcl.Range
}

func (e *InvalidArgumentError) Error() string {
	if e.Range.Filename == "" {
		return fmt.Sprintf("%s: %s", e.Macro, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Range, e.Macro, e.Message)
}

// BuildFailure is the intentional abort requested by failBuild(). It is not an
// engine defect and is reported separately from internal errors.
type BuildFailure struct {
	Message string
	Range   hcl.Range
}

func (e *BuildFailure) Error() string {
	if e.Range.Filename == "" {
		return "build failed: " + e.Message
	}
	return fmt.Sprintf("%s: build failed: %s", e.Range, e.Message)
}

// IsBuildFailure reports whether err carries a failBuild() abort.
func IsBuildFailure(err error) bool {
	var bf *BuildFailure
	return errors.As(err, &bf)
}

// FormatArgs renders argument values as JSON-like text for error messages.
func FormatArgs(args []cty.Value) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, formatValue(a))
	}
	return strings.Join(parts, ", ")
}

func formatValue(v cty.Value) string {
	if v == cty.NilVal {
		return "<nil>"
	}
	if !v.IsWhollyKnown() {
		return "(unknown)"
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return v.GoString()
	}
	return string(b)
}
