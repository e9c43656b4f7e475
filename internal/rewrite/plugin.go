package rewrite

import (
	"context"

	"github.com/specialistvlad/hclmacros/internal/plugin"
)

// Plugin returns the rewriter as a marked plugin descriptor for a host
// transform pipeline.
func (r *Rewriter) Plugin() plugin.Pair {
	transform := plugin.Transform(func(ctx context.Context, f *plugin.File) error {
		res, err := r.RewriteFile(ctx, f.Path, f.Source, f.Package)
		if err != nil {
			return err
		}
		f.Source = res.Output
		return nil
	})
	return plugin.Pair{
		Plugin:  transform,
		Options: plugin.OwnOptions(plugin.Options{"mode": r.opts.Mode.String()}),
	}
}
