package app

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/hclmacros/internal/shim"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Eval evaluates the top-level attributes of a file the way rewritten code
// runs: against the runtime shim, seeded from the sealed registry. Macros
// that only exist at build time fail with a not-rewritten error. Calls to the
// configured import function evaluate to an object naming the specifier.
func (a *App) Eval(ctx context.Context, path string) (cty.Value, error) {
	ctx = a.Context(ctx)
	if err := a.Load(ctx); err != nil {
		return cty.NilVal, err
	}
	if err := shim.Seed(ctx, a.runtime, a.graph.Packages(), a.registry); err != nil {
		return cty.NilVal, err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to read %s: %w", path, err)
	}
	file, diags := hclsyntax.ParseConfig(src, path, hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("failed to parse %s: %w", path, diags)
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("failed to read attributes of %s: %w", path, diags)
	}

	funcs := shim.Functions(a.runtime)
	funcs[a.config.ImportFunction] = importStub
	evalCtx := &hcl.EvalContext{Functions: funcs}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(map[string]cty.Value, len(attrs))
	for _, name := range names {
		v, diags := attrs[name].Expr.Value(evalCtx)
		if diags.HasErrors() {
			if err := callError(diags); err != nil {
				return cty.NilVal, err
			}
			return cty.NilVal, diags
		}
		values[name] = v
	}
	if len(values) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(values), nil
}

var importStub = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "specifier", Type: cty.String}},
	Type: function.StaticReturnType(cty.Object(map[string]cty.Type{
		"specifier": cty.String,
	})),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.ObjectVal(map[string]cty.Value{"specifier": args[0]}), nil
	},
})

// callError returns the error a called function raised, if any.
func callError(diags hcl.Diagnostics) error {
	for _, d := range diags {
		if extra, ok := d.Extra.(interface{ FunctionCallError() error }); ok {
			if err := extra.FunctionCallError(); err != nil {
				return err
			}
		}
	}
	return nil
}
