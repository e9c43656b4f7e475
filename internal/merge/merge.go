// Package merge combines the configuration contributions that target one
// package into a single resolved value.
//
// Strategies are pure: the result depends only on the ordered contribution
// list. Ordering is explicit: contributions are sorted by their declared
// Order, ties broken by insertion Seq.
package merge

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Input is one contribution as seen by a strategy.
type Input struct {
	Value cty.Value
	Order int
	Seq   int
}

// Strategy resolves an ordered list of contributions into one value.
type Strategy interface {
	Merge(inputs []Input) (cty.Value, error)
}

// Pairwise is a strategy expressed as a left fold. existing is cty.NilVal for
// the first contribution.
type Pairwise func(existing, incoming cty.Value, order int) cty.Value

// Merge folds the inputs through f.
func (f Pairwise) Merge(inputs []Input) (cty.Value, error) {
	acc := cty.NilVal
	for _, in := range inputs {
		acc = f(acc, in.Value, in.Order)
	}
	return acc, nil
}

// ListFunc is a custom strategy that sees every payload at once, so it can
// enforce policies a pairwise fold cannot express.
type ListFunc func(payloads []cty.Value) (cty.Value, error)

// Merge hands the ordered payloads to f.
func (f ListFunc) Merge(inputs []Input) (cty.Value, error) {
	payloads := make([]cty.Value, len(inputs))
	for i, in := range inputs {
		payloads[i] = in.Value
	}
	return f(payloads)
}

// Sort orders inputs in place by Order, then Seq.
func Sort(inputs []Input) {
	sort.SliceStable(inputs, func(i, j int) bool {
		if inputs[i].Order != inputs[j].Order {
			return inputs[i].Order < inputs[j].Order
		}
		return inputs[i].Seq < inputs[j].Seq
	})
}

// Resolve sorts a copy of inputs and runs them through s. A nil strategy
// selects Shallow.
func Resolve(s Strategy, inputs []Input) (cty.Value, error) {
	if s == nil {
		s = Shallow
	}
	ordered := make([]Input, len(inputs))
	copy(ordered, inputs)
	Sort(ordered)
	return s.Merge(ordered)
}

// Shallow lets later contributions override earlier keys of an object; any
// non-object contribution replaces the accumulated value.
var Shallow Pairwise = func(existing, incoming cty.Value, _ int) cty.Value {
	if existing == cty.NilVal || !isObject(existing) || !isObject(incoming) {
		return incoming
	}
	attrs := attributes(existing)
	for k, v := range attributes(incoming) {
		attrs[k] = v
	}
	return objectOf(attrs)
}

// Deep merges nested objects recursively; non-objects replace.
var Deep Pairwise = deepMerge

func deepMerge(existing, incoming cty.Value, order int) cty.Value {
	if existing == cty.NilVal || !isObject(existing) || !isObject(incoming) {
		return incoming
	}
	attrs := attributes(existing)
	for k, v := range attributes(incoming) {
		if prev, ok := attrs[k]; ok {
			attrs[k] = deepMerge(prev, v, order)
			continue
		}
		attrs[k] = v
	}
	return objectOf(attrs)
}

// Exclusive builds the union of object contributions and fails when two
// contributions set the same top-level key.
var Exclusive ListFunc = func(payloads []cty.Value) (cty.Value, error) {
	attrs := make(map[string]cty.Value)
	for i, p := range payloads {
		if !isObject(p) {
			return cty.NilVal, fmt.Errorf("exclusive merge: contribution %d is %s, not an object", i, p.Type().FriendlyName())
		}
		for k, v := range attributes(p) {
			if _, dup := attrs[k]; dup {
				return cty.NilVal, fmt.Errorf("exclusive merge: key %q is set by more than one contribution", k)
			}
			attrs[k] = v
		}
	}
	return objectOf(attrs), nil
}

// Lookup returns the named built-in strategy used by package manifests.
func Lookup(name string) (Strategy, error) {
	switch name {
	case "", "shallow":
		return Shallow, nil
	case "deep":
		return Deep, nil
	case "exclusive":
		return Exclusive, nil
	default:
		return nil, fmt.Errorf("unknown merge strategy %q (expected shallow, deep or exclusive)", name)
	}
}

func isObject(v cty.Value) bool {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return false
	}
	t := v.Type()
	return t.IsObjectType() || t.IsMapType()
}

func attributes(v cty.Value) map[string]cty.Value {
	attrs := make(map[string]cty.Value)
	for k, val := range v.AsValueMap() {
		attrs[k] = val
	}
	return attrs
}

func objectOf(attrs map[string]cty.Value) cty.Value {
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}
