package rewrite

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/hclmacros/internal/macro"
	"github.com/specialistvlad/hclmacros/internal/pkggraph"
	"github.com/specialistvlad/hclmacros/internal/shim"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// errNotStatic marks importSync during static evaluation: it produces a module
// load, never a value, so an expression containing it cannot be folded.
var errNotStatic = errors.New("importSync() has no static value")

// helpers are the pure functions allowed inside statically evaluated macro
// arguments.
var helpers = map[string]function.Function{
	"upper":    stdlib.UpperFunc,
	"lower":    stdlib.LowerFunc,
	"length":   stdlib.LengthFunc,
	"join":     stdlib.JoinFunc,
	"format":   stdlib.FormatFunc,
	"concat":   stdlib.ConcatFunc,
	"keys":     stdlib.KeysFunc,
	"merge":    stdlib.MergeFunc,
	"coalesce": stdlib.CoalesceFunc,
	"min":      stdlib.MinFunc,
	"max":      stdlib.MaxFunc,
}

// Functions returns the build-time function table for code owned by pkg:
// every macro evaluated statically, plus the pure helpers. Template compilers
// use it to render macro calls inside templates.
func (r *Rewriter) Functions(pkg *pkggraph.Package) map[string]function.Function {
	funcs := make(map[string]function.Function, len(helpers)+len(macro.Kinds()))
	for name, f := range helpers {
		funcs[name] = f
	}

	funcs[macro.MacroCondition.String()] = function.New(&function.Spec{
		Params: []function.Parameter{{Name: "predicate", Type: cty.Bool}},
		Type:   function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return args[0], nil
		},
	})

	funcs[macro.Each.String()] = function.New(&function.Spec{
		Params: []function.Parameter{{Name: "items", Type: cty.DynamicPseudoType, AllowNull: true, AllowDynamicType: true}},
		Type:   func(args []cty.Value) (cty.Type, error) { return args[0].Type(), nil },
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if err := shim.CheckArray(args[0]); err != nil {
				return cty.NilVal, err
			}
			return args[0], nil
		},
	})

	funcs[macro.DependencySatisfies.String()] = function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "package_name", Type: cty.String},
			{Name: "range", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			ok, err := r.graph.Satisfies(pkg, args[0].AsString(), args[1].AsString())
			if err != nil {
				return cty.NilVal, &macro.InvalidArgumentError{Macro: macro.DependencySatisfies, Message: err.Error()}
			}
			return cty.BoolVal(ok), nil
		},
	})

	funcs[macro.ModuleExists.String()] = function.New(&function.Spec{
		Params: []function.Parameter{{Name: "package_name", Type: cty.String}},
		Type:   function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.BoolVal(r.graph.ModuleExists(pkg, args[0].AsString())), nil
		},
	})

	funcs[macro.GetConfig.String()] = function.New(&function.Spec{
		Params: []function.Parameter{{Name: "package_name", Type: cty.String}},
		Type:   function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			target, ok := r.graph.Resolve(pkg, args[0].AsString())
			if !ok {
				return cty.NullVal(cty.DynamicPseudoType), nil
			}
			return r.config(target)
		},
	})

	funcs[macro.GetOwnConfig.String()] = function.New(&function.Spec{
		Type: function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(_ []cty.Value, _ cty.Type) (cty.Value, error) {
			return r.config(pkg)
		},
	})

	funcs[macro.ImportSync.String()] = function.New(&function.Spec{
		Params: []function.Parameter{{Name: "specifier", Type: cty.String}},
		Type:   function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(_ []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.NilVal, errNotStatic
		},
	})

	funcs[macro.FailBuild.String()] = function.New(&function.Spec{
		Params: []function.Parameter{{Name: "message", Type: cty.String}},
		Type:   function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.NilVal, &macro.BuildFailure{Message: args[0].AsString()}
		},
	})

	return funcs
}

// EvalContext is the static evaluation context for code owned by pkg. It has
// no variables: anything that references one is not statically knowable.
func (r *Rewriter) EvalContext(pkg *pkggraph.Package) *hcl.EvalContext {
	return &hcl.EvalContext{Functions: r.Functions(pkg)}
}

// config returns the merged configuration of target, or null when nothing
// was contributed to it.
func (r *Rewriter) config(target *pkggraph.Package) (cty.Value, error) {
	v, found, err := r.configs.Resolve(target)
	if err != nil {
		return cty.NilVal, err
	}
	if !found {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	return v, nil
}

// macroError digs the error a function implementation returned out of the
// diagnostics of an evaluation, so typed failures survive HCL's wrapping.
func macroError(diags hcl.Diagnostics) error {
	for _, d := range diags {
		extra, ok := d.Extra.(interface{ FunctionCallError() error })
		if !ok {
			continue
		}
		if err := extra.FunctionCallError(); err != nil && !errors.Is(err, errNotStatic) {
			return err
		}
	}
	return nil
}

// withRange attaches the call site to typed macro errors that were raised
// inside a function implementation, where no source position is known.
func withRange(err error, rng hcl.Range) error {
	var bf *macro.BuildFailure
	if errors.As(err, &bf) && bf.Range.Filename == "" {
		return &macro.BuildFailure{Message: bf.Message, Range: rng}
	}
	var ia *macro.InvalidArgumentError
	if errors.As(err, &ia) && ia.Range.Filename == "" {
		return &macro.InvalidArgumentError{Macro: ia.Macro, Message: ia.Message, Range: rng}
	}
	return err
}

func notStatic(k macro.Kind, rng hcl.Range, diags hcl.Diagnostics) error {
	detail := "argument must be statically known"
	if len(diags) > 0 {
		detail = fmt.Sprintf("%s: %s", detail, diags[0].Summary)
	}
	return &macro.InvalidArgumentError{Macro: k, Message: detail, Range: rng}
}
