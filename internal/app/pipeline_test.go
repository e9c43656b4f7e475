package app

import (
	"context"
	"testing"

	"github.com/specialistvlad/hclmacros/internal/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder returns a transform appending name to the file, and to calls.
func recorder(calls *[]string, name string) plugin.Transform {
	return func(_ context.Context, f *plugin.File) error {
		*calls = append(*calls, name)
		f.Source = append(f.Source, name...)
		return nil
	}
}

func TestPipeline_OwnPluginsRunFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	var calls []string

	p, err := NewPipeline(ctx,
		recorder(&calls, "foreign-a"),
		plugin.Pair{Plugin: recorder(&calls, "own-pair"), Options: plugin.OwnOptions(nil)},
		[]any{recorder(&calls, "foreign-b"), map[string]any{"other": true}},
		plugin.OwnTransform(recorder(&calls, "own-ast")),
	)
	require.NoError(t, err)
	require.Equal(t, 4, p.Len())

	f := &plugin.File{Path: "main.hcl"}
	require.NoError(t, p.Run(ctx, f))
	assert.Equal(t, []string{"own-pair", "own-ast", "foreign-a", "foreign-b"}, calls)
	assert.Equal(t, "own-pairown-astforeign-aforeign-b", string(f.Source))
}

func TestPipeline_SkipsDuplicateOwnPlugins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	var calls []string

	p, err := NewPipeline(ctx,
		plugin.Pair{Plugin: recorder(&calls, "first"), Options: plugin.OwnOptions(nil)},
		[]any{recorder(&calls, "second"), map[string]any{plugin.ConfigMarker: true}},
		plugin.OwnTransform(recorder(&calls, "ast-first")),
		plugin.OwnTransform(recorder(&calls, "ast-second")),
	)
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())

	require.NoError(t, p.Run(ctx, &plugin.File{}))
	assert.Equal(t, []string{"first", "ast-first"}, calls)
}

func TestPipeline_RejectsNonRunnableDescriptor(t *testing.T) {
	t.Parallel()

	_, err := NewPipeline(context.Background(), plugin.Pair{Plugin: "not a function", Options: plugin.OwnOptions(nil)})
	require.ErrorContains(t, err, "has no runnable transform")
}

func TestPipeline_StopsAtFirstError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	var calls []string

	failing := plugin.Transform(func(context.Context, *plugin.File) error {
		return assert.AnError
	})
	p, err := NewPipeline(ctx, failing, recorder(&calls, "after"))
	require.NoError(t, err)

	require.ErrorIs(t, p.Run(ctx, &plugin.File{}), assert.AnError)
	assert.Empty(t, calls)
}
