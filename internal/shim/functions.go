package shim

import (
	"github.com/specialistvlad/hclmacros/internal/macro"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// RuntimeConfigFunction is the function runtime-mode rewrites call in place of
// getConfig and getOwnConfig. It takes the target package root.
const RuntimeConfigFunction = "macrosRuntimeConfig"

// Functions returns the runtime function table for un-rewritten code.
//
// macroCondition and each have real runtime forms. Every other macro fails
// with a *macro.NotRewrittenError carrying its name and arguments: a silent
// wrong answer at runtime is worse than a clear failure.
func Functions(rc *RuntimeConfig) map[string]function.Function {
	funcs := map[string]function.Function{
		macro.MacroCondition.String(): macroConditionFunc,
		macro.Each.String():           eachFunc,
		RuntimeConfigFunction:         runtimeConfigFunc(rc),
	}
	for _, k := range macro.Kinds() {
		if _, ok := funcs[k.String()]; !ok {
			funcs[k.String()] = notRewrittenFunc(k)
		}
	}
	return funcs
}

var macroConditionFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "predicate", Type: cty.Bool},
	},
	Type: function.StaticReturnType(cty.Bool),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return args[0], nil
	},
})

var eachFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "items", Type: cty.DynamicPseudoType, AllowNull: true, AllowDynamicType: true},
	},
	Type: func(args []cty.Value) (cty.Type, error) {
		return args[0].Type(), nil
	},
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if err := CheckArray(args[0]); err != nil {
			return cty.NilVal, err
		}
		return args[0], nil
	},
})

// CheckArray enforces the each() contract: the argument must be a sequence.
func CheckArray(v cty.Value) error {
	t := v.Type()
	if v.IsNull() || !(t.IsTupleType() || t.IsListType() || t.IsSetType()) {
		return &macro.InvalidArgumentError{
			Macro:   macro.Each,
			Message: "the argument to the each() macro must be an array",
		}
	}
	return nil
}

func runtimeConfigFunc(rc *RuntimeConfig) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "package_root", Type: cty.String, AllowNull: true, AllowDynamicType: true},
		},
		Type: function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if args[0].IsNull() {
				return cty.NullVal(cty.DynamicPseudoType), nil
			}
			if v, ok := rc.Get(args[0].AsString()); ok {
				return v, nil
			}
			return cty.NullVal(cty.DynamicPseudoType), nil
		},
	})
}

func notRewrittenFunc(k macro.Kind) function.Function {
	return function.New(&function.Spec{
		VarParam: &function.Parameter{
			Name:             "args",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowUnknown:     true,
			AllowDynamicType: true,
		},
		Type: function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.NilVal, &macro.NotRewrittenError{Macro: k, Args: args}
		},
	})
}
