package registry

import (
	"context"
	"fmt"

	"github.com/specialistvlad/hclmacros/internal/ctxlog"
	"github.com/specialistvlad/hclmacros/internal/merge"
	"github.com/specialistvlad/hclmacros/internal/pkggraph"
)

// LoadManifests registers the merge strategy and every configuration
// contribution declared by the manifests of graph. Packages are visited in
// discovery order; each contribution's target name is resolved from the
// package that declares it.
func (r *Registry) LoadManifests(ctx context.Context, graph *pkggraph.Graph) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading contributions from manifests...")

	count := 0
	for _, pkg := range graph.Packages() {
		if name := pkg.Manifest.Merge; name != "" {
			strategy, err := merge.Lookup(name)
			if err != nil {
				return fmt.Errorf("package %s: %w", pkg.ID, err)
			}
			if err := r.SetMerger(pkg, strategy); err != nil {
				return err
			}
		}

		for _, c := range pkg.Manifest.Contributions {
			target, ok := graph.Resolve(pkg, c.Target)
			if !ok {
				return fmt.Errorf("%s: package %s contributes configuration to %q, which it cannot resolve", c.Range.Filename, pkg.Name, c.Target)
			}
			if err := r.Contribute(pkg, target, c.Value, c.Order); err != nil {
				return err
			}
			count++
		}
	}

	logger.Info("Registry loaded successfully.", "contributions_loaded", count)
	return nil
}
