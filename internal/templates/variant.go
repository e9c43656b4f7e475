// Package templates adapts a template compiler to the build: it applies the
// build variant to a compiler module and wraps the resulting compile function
// in a loader that reports failures per file instead of aborting the build.
package templates

import "github.com/zclconf/go-cty/cty"

// Variant describes the flavour of output being built. The loader forwards it
// to the compiler module without interpreting it.
type Variant struct {
	Name                  string
	Runtime               string
	OptimizeForProduction bool
}

// Value is the variant as a cty object, the shape HCL templates see.
func (v Variant) Value() cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"name":                    cty.StringVal(v.Name),
		"runtime":                 cty.StringVal(v.Runtime),
		"optimize_for_production": cty.BoolVal(v.OptimizeForProduction),
	})
}

// Compiler turns template source into output code.
type Compiler interface {
	Compile(resourcePath, source string) (string, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(resourcePath, source string) (string, error)

// Compile implements Compiler.
func (f CompilerFunc) Compile(resourcePath, source string) (string, error) {
	return f(resourcePath, source)
}

// Module is a template compiler that can be specialised for a variant.
type Module interface {
	Compiler(v Variant) Compiler
}

// ApplyVariant returns the compile function of m for variant v.
func ApplyVariant(v Variant, m Module) Compiler {
	return m.Compiler(v)
}
