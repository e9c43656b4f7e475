package templates

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
)

// FunctionSource returns the functions available to the template at path,
// typically the build-time macros of the package that owns it.
type FunctionSource func(resourcePath string) (map[string]function.Function, error)

// HCLModule compiles HCL templates ("${...}" interpolation and "%{...}"
// directives). The only variable is "variant".
type HCLModule struct {
	Functions FunctionSource
}

// Compiler implements Module.
func (m *HCLModule) Compiler(v Variant) Compiler {
	variant := v.Value()
	return CompilerFunc(func(resourcePath, source string) (string, error) {
		expr, diags := hclsyntax.ParseTemplate([]byte(source), resourcePath, hcl.InitialPos)
		if diags.HasErrors() {
			return "", diags
		}

		var funcs map[string]function.Function
		if m.Functions != nil {
			var err error
			if funcs, err = m.Functions(resourcePath); err != nil {
				return "", err
			}
		}

		val, diags := expr.Value(&hcl.EvalContext{
			Variables: map[string]cty.Value{"variant": variant},
			Functions: funcs,
		})
		if diags.HasErrors() {
			if err := functionError(diags); err != nil {
				return "", err
			}
			return "", diags
		}

		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return "", fmt.Errorf("template result is not a string: %w", err)
		}
		if str.IsNull() || !str.IsKnown() {
			return "", fmt.Errorf("template result is not a known string")
		}
		return str.AsString(), nil
	})
}

// functionError returns the error a called function raised, so typed macro
// failures such as failBuild survive the diagnostics wrapping.
func functionError(diags hcl.Diagnostics) error {
	for _, d := range diags {
		if extra, ok := d.Extra.(interface{ FunctionCallError() error }); ok {
			if err := extra.FunctionCallError(); err != nil {
				return err
			}
		}
	}
	return nil
}
