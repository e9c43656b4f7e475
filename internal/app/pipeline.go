package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/hclmacros/internal/ctxlog"
	"github.com/specialistvlad/hclmacros/internal/plugin"
)

// Pipeline is the host transform pipeline every HCL source file runs through.
// Plugins that belong to hclmacros are recognized by their markers: only the
// first of each marker kind is kept, and they run before foreign plugins so
// that no other transform ever sees an un-rewritten macro call.
type Pipeline struct {
	own     []plugin.Transform
	foreign []plugin.Transform

	seenPair bool
	seenAST  bool
}

// NewPipeline builds a pipeline from plugin descriptors.
func NewPipeline(ctx context.Context, items ...any) (*Pipeline, error) {
	p := &Pipeline{}
	if err := p.Add(ctx, items...); err != nil {
		return nil, err
	}
	return p, nil
}

// Add registers plugin descriptors in order.
func (p *Pipeline) Add(ctx context.Context, items ...any) error {
	logger := ctxlog.FromContext(ctx)

	for i, item := range items {
		transform, ok := plugin.TransformOf(item)
		if !ok {
			return fmt.Errorf("plugin %d (%T) has no runnable transform", i, item)
		}

		if !plugin.IsOwnPlugin(item) {
			p.foreign = append(p.foreign, transform)
			logger.Debug("Registered foreign transform plugin.", "index", i, "type", fmt.Sprintf("%T", item))
			continue
		}

		_, isAST := item.(plugin.OwnTransform)
		switch {
		case isAST && p.seenAST, !isAST && p.seenPair:
			logger.Debug("Skipping duplicate hclmacros plugin.", "index", i)
			continue
		case isAST:
			p.seenAST = true
		default:
			p.seenPair = true
		}
		p.own = append(p.own, transform)
		logger.Debug("Registered hclmacros plugin.", "index", i, "ast", isAST)
	}
	return nil
}

// Len is the number of transforms that will run.
func (p *Pipeline) Len() int {
	return len(p.own) + len(p.foreign)
}

// Run applies every transform to f in order.
func (p *Pipeline) Run(ctx context.Context, f *plugin.File) error {
	for _, t := range p.own {
		if err := t(ctx, f); err != nil {
			return err
		}
	}
	for _, t := range p.foreign {
		if err := t(ctx, f); err != nil {
			return err
		}
	}
	return nil
}
