package app

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

// TargetInfo is the merged configuration of one package with its provenance.
type TargetInfo struct {
	Package       string             `json:"package" yaml:"package"`
	Root          string             `json:"root" yaml:"root"`
	Config        any                `json:"config" yaml:"config"`
	Contributions []ContributionInfo `json:"contributions" yaml:"contributions"`
}

// ContributionInfo is one contribution in merge order.
type ContributionInfo struct {
	Owner string `json:"owner" yaml:"owner"`
	Order int    `json:"order" yaml:"order"`
	Seq   int    `json:"seq" yaml:"seq"`
	Value any    `json:"value" yaml:"value"`
}

// Inspect returns every configured package, sorted by identity.
func (a *App) Inspect(ctx context.Context) ([]TargetInfo, error) {
	ctx = a.Context(ctx)
	if err := a.Load(ctx); err != nil {
		return nil, err
	}

	var out []TargetInfo
	for _, id := range a.registry.Targets() {
		pkg, ok := a.graph.ByRoot(id.Root)
		if !ok {
			return nil, fmt.Errorf("configured package %s is not in the graph", id)
		}
		merged, _, err := a.registry.Resolve(pkg)
		if err != nil {
			return nil, err
		}
		config, err := plain(merged)
		if err != nil {
			return nil, err
		}

		info := TargetInfo{Package: id.Name, Root: a.graph.Rel(id.Root), Config: config}
		for _, c := range a.registry.Contributions(id) {
			v, err := plain(c.Payload)
			if err != nil {
				return nil, err
			}
			info.Contributions = append(info.Contributions, ContributionInfo{
				Owner: c.Owner.Name,
				Order: c.Order,
				Seq:   c.Seq,
				Value: v,
			})
		}
		out = append(out, info)
	}
	return out, nil
}

// RenderInspect encodes targets as "json" or "yaml".
func RenderInspect(targets []TargetInfo, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		data, err := json.MarshalIndent(targets, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(targets); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("invalid output format %q: must be 'json' or 'yaml'", format)
	}
}

// plain converts a cty value to the generic Go representation encoders take.
func plain(v cty.Value) (any, error) {
	if v == cty.NilVal || v.IsNull() {
		return nil, nil
	}
	data, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, err
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return numbers(out), nil
}

// numbers turns json.Number leaves into int64 or float64 so YAML renders them
// as numbers.
func numbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = numbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = numbers(e)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return v
}
