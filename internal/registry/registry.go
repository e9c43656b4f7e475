package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/hclmacros/internal/ctxlog"
	"github.com/specialistvlad/hclmacros/internal/merge"
	"github.com/specialistvlad/hclmacros/internal/pkggraph"
	"github.com/zclconf/go-cty/cty"
)

// State is the lifecycle phase of a Registry.
type State int

const (
	Open State = iota
	Sealed
)

func (s State) String() string {
	if s == Sealed {
		return "sealed"
	}
	return "open"
}

// Contribution is one configuration payload recorded by the registry.
type Contribution struct {
	Owner   pkggraph.ID
	Target  pkggraph.ID
	Payload cty.Value
	Order   int
	Seq     int
}

// Registry holds the contributions and, once sealed, the merged configuration
// of every targeted package.
type Registry struct {
	mu            sync.Mutex
	seq           int
	contributions map[pkggraph.ID][]Contribution
	strategies    map[pkggraph.ID]merge.Strategy

	sealOnce sync.Once
	sealErr  error
	sealed   atomic.Bool

	// merged is written once inside sealOnce, before sealed is set, and only
	// read after sealed is observed true.
	merged map[pkggraph.ID]cty.Value
}

// New creates an empty, open registry.
func New() *Registry {
	return &Registry{
		contributions: make(map[pkggraph.ID][]Contribution),
		strategies:    make(map[pkggraph.ID]merge.Strategy),
	}
}

// State reports whether the registry is still accepting contributions.
func (r *Registry) State() State {
	if r.sealed.Load() {
		return Sealed
	}
	return Open
}

// Contribute records payload as owner's configuration for target. Multiple
// contributions to one target are expected; they are merged at seal time in
// ascending order, ties broken by call order.
func (r *Registry) Contribute(owner, target *pkggraph.Package, payload cty.Value, order int) error {
	if payload == cty.NilVal || !payload.IsWhollyKnown() {
		return fmt.Errorf("configuration from %s for %s must be a known value", owner.ID, target.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return &SealedRegistryError{Owner: owner.ID, Target: target.ID}
	}

	r.seq++
	r.contributions[target.ID] = append(r.contributions[target.ID], Contribution{
		Owner:   owner.ID,
		Target:  target.ID,
		Payload: payload,
		Order:   order,
		Seq:     r.seq,
	})
	return nil
}

// SetMerger installs the strategy used for configuration aimed at target. It
// replaces the default shallow merge.
func (r *Registry) SetMerger(target *pkggraph.Package, s merge.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return &SealedRegistryError{Target: target.ID}
	}
	r.strategies[target.ID] = s
	return nil
}

// Seal freezes the registry and computes every merged configuration. It is
// idempotent: later calls return the result of the first.
func (r *Registry) Seal(ctx context.Context) error {
	r.sealOnce.Do(func() {
		logger := ctxlog.FromContext(ctx)

		r.mu.Lock()
		defer r.mu.Unlock()

		merged := make(map[pkggraph.ID]cty.Value, len(r.contributions))
		for _, target := range r.targetsLocked() {
			value, err := merge.Resolve(r.strategies[target], toInputs(r.contributions[target]))
			if err != nil {
				r.sealErr = fmt.Errorf("failed to merge configuration of %s: %w", target, err)
				break
			}
			merged[target] = value
		}

		r.merged = merged
		r.sealed.Store(true)
		logger.Debug("Config registry sealed.", "targets", len(merged), "error", r.sealErr)
	})
	return r.sealErr
}

// Resolve returns the merged configuration of target. found is false when no
// contribution ever targeted it, which is distinct from an empty config.
func (r *Registry) Resolve(target *pkggraph.Package) (cty.Value, bool, error) {
	if !r.sealed.Load() {
		return cty.NilVal, false, &NotSealedError{Target: target.ID}
	}
	if r.sealErr != nil {
		return cty.NilVal, false, r.sealErr
	}
	v, ok := r.merged[target.ID]
	return v, ok, nil
}

// Lookup seals the registry on first use and then resolves target. Hosts that
// cannot place an explicit Seal call use it as the first-lookup trigger.
func (r *Registry) Lookup(ctx context.Context, target *pkggraph.Package) (cty.Value, bool, error) {
	if err := r.Seal(ctx); err != nil {
		return cty.NilVal, false, err
	}
	return r.Resolve(target)
}

// Contributions returns the contributions aimed at target in merge order.
func (r *Registry) Contributions(target pkggraph.ID) []Contribution {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Contribution, len(r.contributions[target]))
	copy(out, r.contributions[target])
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

// Targets lists every package that received at least one contribution,
// sorted by identity.
func (r *Registry) Targets() []pkggraph.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.targetsLocked()
}

func (r *Registry) targetsLocked() []pkggraph.ID {
	ids := make([]pkggraph.ID, 0, len(r.contributions))
	for id := range r.contributions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Name != ids[j].Name {
			return ids[i].Name < ids[j].Name
		}
		return ids[i].Root < ids[j].Root
	})
	return ids
}

func toInputs(cs []Contribution) []merge.Input {
	inputs := make([]merge.Input, len(cs))
	for i, c := range cs {
		inputs[i] = merge.Input{Value: c.Payload, Order: c.Order, Seq: c.Seq}
	}
	return inputs
}
