package rewrite

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/hclmacros/internal/macro"
	"github.com/specialistvlad/hclmacros/internal/shim"
	"github.com/zclconf/go-cty/cty"
)

// handler rewrites one macro call site.
type handler func(w *walker, call *hclsyntax.FunctionCallExpr) ([]edit, error)

// handlers is the dispatch table over the closed set of macro kinds.
var handlers map[macro.Kind]handler

func init() {
	handlers = map[macro.Kind]handler{
		macro.MacroCondition:      rewriteMacroCondition,
		macro.Each:                rewriteEach,
		macro.DependencySatisfies: rewriteDependencySatisfies,
		macro.ModuleExists:        rewriteModuleExists,
		macro.ImportSync:          rewriteImportSync,
		macro.GetConfig:           rewriteGetConfig,
		macro.GetOwnConfig:        rewriteGetConfig,
		macro.FailBuild:           rewriteFailBuild,
	}
}

func (w *walker) call(k macro.Kind, call *hclsyntax.FunctionCallExpr) ([]edit, error) {
	h, ok := handlers[k]
	if !ok {
		return nil, fmt.Errorf("%s: no rewrite registered for macro %s", call.Range(), k)
	}
	edits, err := h(w, call)
	if err != nil {
		return nil, withRange(err, call.Range())
	}
	return edits, nil
}

// args evaluates every argument of call statically.
func (w *walker) args(k macro.Kind, call *hclsyntax.FunctionCallExpr) ([]cty.Value, error) {
	if call.ExpandFinal {
		return nil, &macro.InvalidArgumentError{Macro: k, Message: "arguments cannot be expanded with ...", Range: call.Range()}
	}
	if want := k.Arity(); len(call.Args) != want {
		return nil, &macro.InvalidArgumentError{
			Macro:   k,
			Message: fmt.Sprintf("expects %d argument(s), got %d", want, len(call.Args)),
			Range:   call.Range(),
		}
	}

	values := make([]cty.Value, len(call.Args))
	for i, arg := range call.Args {
		v, diags := arg.Value(w.eval)
		if diags.HasErrors() {
			if err := macroError(diags); err != nil {
				return nil, withRange(err, arg.Range())
			}
			return nil, notStatic(k, arg.Range(), diags)
		}
		if !v.IsWhollyKnown() {
			return nil, notStatic(k, arg.Range(), nil)
		}
		values[i] = v
	}
	return values, nil
}

// stringArgs is args restricted to string values.
func (w *walker) stringArgs(k macro.Kind, call *hclsyntax.FunctionCallExpr) ([]string, error) {
	values, err := w.args(k, call)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		if v.IsNull() || !v.Type().Equals(cty.String) {
			return nil, &macro.InvalidArgumentError{
				Macro:   k,
				Message: fmt.Sprintf("argument %d must be a string, got %s", i+1, v.Type().FriendlyName()),
				Range:   call.Args[i].Range(),
			}
		}
		out[i] = v.AsString()
	}
	return out, nil
}

// keep leaves the call in place but still rewrites macros nested in its
// arguments.
func keep(w *walker, call *hclsyntax.FunctionCallExpr) ([]edit, error) {
	var edits []edit
	for _, arg := range call.Args {
		e, err := w.expr(arg)
		if err != nil {
			return nil, err
		}
		edits = append(edits, e...)
	}
	return edits, nil
}

func (w *walker) replaced(rng hcl.Range, text string) []edit {
	w.rewritten++
	return []edit{replace(rng, text)}
}

func rewriteMacroCondition(w *walker, call *hclsyntax.FunctionCallExpr) ([]edit, error) {
	if w.rw.opts.Mode == Runtime {
		return keep(w, call)
	}
	values, err := w.args(macro.MacroCondition, call)
	if err != nil {
		return nil, err
	}
	v := values[0]
	if v.IsNull() || !v.Type().Equals(cty.Bool) {
		return nil, &macro.InvalidArgumentError{
			Macro:   macro.MacroCondition,
			Message: "the argument to macroCondition() must be a statically known boolean",
			Range:   call.Range(),
		}
	}
	return w.replaced(call.Range(), literal(v)), nil
}

func rewriteEach(w *walker, call *hclsyntax.FunctionCallExpr) ([]edit, error) {
	if w.rw.opts.Mode == Runtime {
		return keep(w, call)
	}
	values, err := w.args(macro.Each, call)
	if err != nil {
		return nil, err
	}
	if err := shim.CheckArray(values[0]); err != nil {
		return nil, err
	}
	return w.replaced(call.Range(), literal(values[0])), nil
}

func rewriteDependencySatisfies(w *walker, call *hclsyntax.FunctionCallExpr) ([]edit, error) {
	args, err := w.stringArgs(macro.DependencySatisfies, call)
	if err != nil {
		return nil, err
	}
	ok, err := w.rw.graph.Satisfies(w.pkg, args[0], args[1])
	if err != nil {
		return nil, &macro.InvalidArgumentError{Macro: macro.DependencySatisfies, Message: err.Error(), Range: call.Range()}
	}
	return w.replaced(call.Range(), literal(cty.BoolVal(ok))), nil
}

func rewriteModuleExists(w *walker, call *hclsyntax.FunctionCallExpr) ([]edit, error) {
	args, err := w.stringArgs(macro.ModuleExists, call)
	if err != nil {
		return nil, err
	}
	exists := w.rw.graph.ModuleExists(w.pkg, args[0])
	return w.replaced(call.Range(), literal(cty.BoolVal(exists))), nil
}

func rewriteImportSync(w *walker, call *hclsyntax.FunctionCallExpr) ([]edit, error) {
	if len(call.Args) != 1 {
		return nil, &macro.InvalidArgumentError{Macro: macro.ImportSync, Message: "expects 1 argument(s)", Range: call.Range()}
	}
	if _, ok := call.Args[0].(*hclsyntax.TemplateExpr); !ok {
		return nil, &macro.InvalidArgumentError{
			Macro:   macro.ImportSync,
			Message: "the argument to importSync() must be a string literal",
			Range:   call.Args[0].Range(),
		}
	}
	args, err := w.stringArgs(macro.ImportSync, call)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("%s(%s)", w.rw.opts.ImportFunction, literal(cty.StringVal(args[0])))
	return w.replaced(call.Range(), text), nil
}

func rewriteGetConfig(w *walker, call *hclsyntax.FunctionCallExpr) ([]edit, error) {
	k, _ := macro.Lookup(call.Name)

	target := w.pkg
	if k == macro.GetConfig {
		args, err := w.stringArgs(k, call)
		if err != nil {
			return nil, err
		}
		resolved, ok := w.rw.graph.Resolve(w.pkg, args[0])
		if !ok {
			target = nil
		} else {
			target = resolved
		}
	} else if len(call.Args) != 0 {
		return nil, &macro.InvalidArgumentError{Macro: k, Message: "expects 0 argument(s)", Range: call.Range()}
	}

	if w.rw.opts.Mode == Runtime {
		root := cty.NullVal(cty.String)
		if target != nil {
			root = cty.StringVal(target.Root)
		}
		return w.replaced(call.Range(), fmt.Sprintf("%s(%s)", shim.RuntimeConfigFunction, literal(root))), nil
	}

	if target == nil {
		return w.replaced(call.Range(), "null"), nil
	}
	v, err := w.rw.config(target)
	if err != nil {
		return nil, err
	}
	return w.replaced(call.Range(), literal(v)), nil
}

func rewriteFailBuild(w *walker, call *hclsyntax.FunctionCallExpr) ([]edit, error) {
	values, err := w.args(macro.FailBuild, call)
	if err == nil && !values[0].IsNull() && values[0].Type().Equals(cty.String) {
		return nil, &macro.BuildFailure{Message: values[0].AsString(), Range: call.Range()}
	}
	if macro.IsBuildFailure(err) {
		return nil, err
	}
	return nil, &macro.BuildFailure{
		Message: fmt.Sprintf("failBuild() called with a message that is not statically known: %s", render(w.src, call.Range(), nil)),
		Range:   call.Range(),
	}
}
