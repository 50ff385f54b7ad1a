package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func user() Record {
	return Record{Name: "User", Variant: "ObjectTO", TypeName: "User", Kind: "interface", Path: "/proj/a.ts", Exported: true}
}

func TestCompile_Empty(t *testing.T) {
	t.Parallel()
	f, err := Compile("  ")
	require.NoError(t, err)
	ok, err := f.Match(context.Background(), user())
	require.NoError(t, err)
	assert.True(t, ok)

	var nilFilter *Filter
	ok, err = nilFilter.Match(context.Background(), user())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, nilFilter.String())
}

func TestCompile_SyntaxError(t *testing.T) {
	t.Parallel()
	_, err := Compile(`name == (`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter: parse")
}

func TestMatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		expr string
		want bool
	}{
		{`variant == "ObjectTO"`, true},
		{`variant == "EnumTO"`, false},
		{`name == "User" && kind == "interface"`, true},
		{`kind == "type" || exported`, true},
		{`type_name != ""`, true},
		{`path == "/proj/b.ts"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := f.Match(ctx, user())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.expr, f.String())
		})
	}
}

func TestMatch_RuntimeError(t *testing.T) {
	t.Parallel()
	f, err := Compile(`undefined_name == 1`)
	require.NoError(t, err)
	_, err = f.Match(context.Background(), user())
	require.Error(t, err)
}
