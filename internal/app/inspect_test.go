package app

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

var inspectTargets = []TargetInfo{{
	Package: "addon",
	Root:    "packages/addon",
	Config:  map[string]any{"count": int64(42), "name": "addon-config"},
	Contributions: []ContributionInfo{
		{Owner: "app", Order: 0, Seq: 0, Value: map[string]any{"count": int64(42)}},
		{Owner: "addon", Order: 1, Seq: 1, Value: map[string]any{"name": "addon-config"}},
	},
}}

func TestRenderInspect_JSON(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"", "json", "JSON"} {
		out, err := RenderInspect(inspectTargets, format)
		require.NoError(t, err, format)

		var got []map[string]any
		require.NoError(t, json.Unmarshal(out, &got))
		require.Len(t, got, 1)
		require.Equal(t, "addon", got[0]["package"])
		require.Equal(t, byte('\n'), out[len(out)-1])
	}
}

func TestRenderInspect_YAML(t *testing.T) {
	t.Parallel()

	out, err := RenderInspect(inspectTargets, "yaml")
	require.NoError(t, err)

	var got []TargetInfo
	require.NoError(t, yaml.Unmarshal(out, &got))
	require.Len(t, got, 1)
	require.Equal(t, "packages/addon", got[0].Root)
	require.Equal(t, []string{"app", "addon"}, []string{got[0].Contributions[0].Owner, got[0].Contributions[1].Owner})
	require.Contains(t, string(out), "  name: addon-config")
}

func TestRenderInspect_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := RenderInspect(inspectTargets, "toml")
	require.ErrorContains(t, err, "invalid output format")
}

func TestPlain(t *testing.T) {
	t.Parallel()

	v := cty.ObjectVal(map[string]cty.Value{
		"count": cty.NumberIntVal(42),
		"ratio": cty.NumberFloatVal(0.5),
		"tags":  cty.ListVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}),
		"none":  cty.NullVal(cty.String),
	})
	got, err := plain(v)
	require.NoError(t, err)

	want := map[string]any{
		"count": int64(42),
		"ratio": 0.5,
		"tags":  []any{"a", "b"},
		"none":  nil,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plain() mismatch (-want +got):\n%s", diff)
	}
}
