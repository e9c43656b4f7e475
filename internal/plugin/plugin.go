// Package plugin defines the transform plugins a host pipeline runs over each
// source file, and the markers that let the host recognize the plugins that
// belong to hclmacros among an arbitrary list.
package plugin

import (
	"context"
	"reflect"

	"github.com/specialistvlad/hclmacros/internal/pkggraph"
)

const (
	// ConfigMarker flags the options element of a two-element plugin descriptor.
	ConfigMarker = "hclmacrosConfigMarker"
	// ASTMarker flags a transform that is itself the plugin descriptor.
	ASTMarker = "hclmacrosASTMarker"
)

// File is the unit a transform works on. Transforms replace Source in place.
type File struct {
	Path    string
	Package *pkggraph.Package
	Source  []byte
}

// Transform rewrites one file.
type Transform func(ctx context.Context, f *File) error

// Pair is a two-element plugin descriptor: a transform and its options.
type Pair struct {
	Plugin  any
	Options any
}

// Marked is implemented by values that carry a marker flag.
type Marked interface {
	Marker() string
}

// OwnTransform is a transform that carries the AST marker itself, so it can
// be registered without an options element.
type OwnTransform func(ctx context.Context, f *File) error

// Marker implements Marked.
func (OwnTransform) Marker() string { return ASTMarker }

// Options is the conventional options element of a Pair.
type Options map[string]any

// OwnOptions returns options flagged with the config marker.
func OwnOptions(extra Options) Options {
	opts := Options{ConfigMarker: true}
	for k, v := range extra {
		opts[k] = v
	}
	return opts
}

// IsOwnPlugin reports whether item is one of this system's plugins: either a
// two-element descriptor whose second element carries ConfigMarker, or a
// callable that itself carries ASTMarker. It only inspects the structure.
func IsOwnPlugin(item any) bool {
	switch v := item.(type) {
	case nil:
		return false
	case Pair:
		return hasConfigMarker(v.Options)
	case *Pair:
		return v != nil && hasConfigMarker(v.Options)
	case []any:
		return len(v) > 1 && hasConfigMarker(v[1])
	case [2]any:
		return hasConfigMarker(v[1])
	}

	if reflect.ValueOf(item).Kind() != reflect.Func {
		return false
	}
	m, ok := item.(Marked)
	return ok && m.Marker() == ASTMarker
}

func hasConfigMarker(opts any) bool {
	switch o := opts.(type) {
	case nil:
		return false
	case Options:
		return truthy(o[ConfigMarker])
	case map[string]any:
		return truthy(o[ConfigMarker])
	case Marked:
		return o.Marker() == ConfigMarker
	}
	return false
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// TransformOf extracts the runnable transform from a descriptor, if any.
func TransformOf(item any) (Transform, bool) {
	switch v := item.(type) {
	case Pair:
		return TransformOf(v.Plugin)
	case *Pair:
		if v == nil {
			return nil, false
		}
		return TransformOf(v.Plugin)
	case []any:
		if len(v) == 0 {
			return nil, false
		}
		return TransformOf(v[0])
	case [2]any:
		return TransformOf(v[0])
	case Transform:
		return v, v != nil
	case OwnTransform:
		return Transform(v), v != nil
	case func(context.Context, *File) error:
		return v, v != nil
	}
	return nil, false
}
