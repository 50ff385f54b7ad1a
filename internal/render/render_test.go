package render

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

// fakeStore serves canned properties and counts fetches.
type fakeStore struct {
	props map[string][]to.Property
	calls int
}

func (f *fakeStore) Properties(_ context.Context, key string) ([]to.Property, error) {
	f.calls++
	props, ok := f.props[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return props, nil
}

func str() to.TypeObject { return to.NewPrimitive(to.PrimitiveString) }
func num() to.TypeObject { return to.NewPrimitive(to.PrimitiveNumber) }

func undef() to.TypeObject { return to.NewSpecial(to.SpecialUndefined) }

// =============================================================================
// Render
// =============================================================================

func TestRender_Scalars(t *testing.T) {
	t.Parallel()
	r := New(nil)
	ctx := context.Background()

	tests := []struct {
		in   to.TypeObject
		want string
	}{
		{str(), "string"},
		{to.NewSpecial(to.SpecialUniqueSymbol), "unique symbol"},
		{to.NewSpecial(to.SpecialSymbol), "symbol"},
		{&to.Array{TypeName: "symbol[]", Child: to.NewSpecial(to.SpecialSymbol)}, "symbol[]"},
		{to.NewLiteral("hi"), `"hi"`},
		{to.NewLiteral(3), "3"},
		{to.NewLiteral(true), "true"},
		{&to.Array{TypeName: "A", Child: str()}, "string[]"},
		{&to.Array{Child: &to.Union{Unions: []to.TypeObject{str(), num()}}}, "(string | number)[]"},
		{&to.Tuple{Items: []to.TypeObject{str(), num()}}, "[string, number]"},
		{&to.Enum{TypeName: "Color"}, "Color"},
		{&to.Callable{
			ArgTypes:   []to.Argument{{Name: "a", Type: str()}, {Name: "b", Type: num()}},
			ReturnType: &to.Promise{Child: to.NewSpecial(to.SpecialVoid)},
		}, "(a: string, b: number) => Promise<void>"},
		{&to.PromiseLike{Child: num()}, "PromiseLike<number>"},
		{to.NewUnsupported(to.UnsupportedConvert, "Weird"), "Weird"},
		{to.NewUnsupported(to.UnsupportedArrayT, ""), "unsupported"},
		{&to.Object{TypeName: "User", StoreKey: "k"}, "User"},
	}
	for _, tt := range tests {
		got, err := r.Render(ctx, tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRender_ExpandsObjects(t *testing.T) {
	t.Parallel()
	store := &fakeStore{props: map[string][]to.Property{
		"user": {
			{Name: "name", Type: str()},
			{Name: "tags", Type: &to.Array{Child: str()}},
			{Name: "first-name", Type: str()},
			{Name: "address", Type: &to.Object{TypeName: "Address", StoreKey: "addr"}},
		},
		"addr": {{Name: "zip", Type: num()}},
	}}

	got, err := New(store).Render(context.Background(), &to.Object{TypeName: "User", StoreKey: "user"})
	require.NoError(t, err)
	assert.Equal(t, `{ name: string; tags: string[]; "first-name": string; address: { zip: number; }; }`, got)
	assert.Equal(t, 2, store.calls)
}

func TestRender_CyclicObjectStopsAtDepth(t *testing.T) {
	t.Parallel()
	store := &fakeStore{props: map[string][]to.Property{
		"node": {{Name: "next", Type: &to.Object{TypeName: "Node", StoreKey: "node"}}},
	}}

	got, err := New(store, WithMaxDepth(2)).Render(context.Background(), &to.Object{TypeName: "Node", StoreKey: "node"})
	require.NoError(t, err)
	assert.Equal(t, "{ next: { next: {}; }; }", got)
	assert.Equal(t, 2, store.calls)
}

func TestRender_CallCeiling(t *testing.T) {
	t.Parallel()
	leaf := func(key string) to.TypeObject { return &to.Object{TypeName: "L", StoreKey: key} }
	store := &fakeStore{props: map[string][]to.Property{
		"root": {{Name: "a", Type: leaf("x")}, {Name: "b", Type: leaf("x")}, {Name: "c", Type: leaf("x")}},
		"x":    {{Name: "v", Type: num()}},
	}}

	got, err := New(store, WithMaxCalls(2)).Render(context.Background(), leaf("root"))
	require.NoError(t, err)
	assert.Equal(t, "{ a: { v: number; }; b: {}; c: {}; }", got)
	assert.Equal(t, 2, store.calls)
}

func TestRender_FetchErrorPropagates(t *testing.T) {
	t.Parallel()
	_, err := New(&fakeStore{}).Render(context.Background(), &to.Object{TypeName: "Gone", StoreKey: "gone"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gone")
}

func TestRender_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := &fakeStore{props: map[string][]to.Property{"k": nil}}
	_, err := New(store).Render(ctx, &to.Object{TypeName: "X", StoreKey: "k"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.calls)
}

func TestRender_FetcherFunc(t *testing.T) {
	t.Parallel()
	f := FetcherFunc(func(context.Context, string) ([]to.Property, error) { return nil, nil })
	got, err := New(f).Render(context.Background(), &to.Object{TypeName: "Empty", StoreKey: "e"})
	require.NoError(t, err)
	assert.Equal(t, EmptyObject, got)
}

// =============================================================================
// Label
// =============================================================================

func TestLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "User", Label(&to.Object{TypeName: "User", StoreKey: "k"}))
	assert.Equal(t, "string | undefined", Label(&to.Union{TypeName: "string | undefined"}))
	assert.Equal(t, "hello", Label(to.NewLiteral("hello")))
	assert.Equal(t, "(x: User) => Promise<number>", Label(&to.Callable{
		ArgTypes:   []to.Argument{{Name: "x", Type: &to.Object{TypeName: "User"}}},
		ReturnType: &to.Promise{Child: num()},
	}))
	assert.Equal(t, "unsupported", Label(to.NewUnsupported(to.UnsupportedProp, "")))
	assert.Equal(t, "symbol", Label(to.NewSpecial(to.SpecialSymbol)))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "日本...", Truncate("日本語", 2))
}

// =============================================================================
// Tree
// =============================================================================

func TestTree_RootLabels(t *testing.T) {
	t.Parallel()
	tr := NewTree(nil, TreeOptions{})

	obj := tr.Root("User", &to.Object{TypeName: "User", StoreKey: "k"})
	assert.Equal(t, "User", obj.Label)
	assert.Equal(t, "Properties", obj.Description)
	assert.True(t, obj.Expandable)

	lit := tr.Root("greeting", to.NewLiteral("hi"))
	assert.Equal(t, "greeting: hi", lit.Label)
	assert.Empty(t, lit.Description)
	assert.False(t, lit.Expandable)

	anon := tr.Root("", str())
	assert.Equal(t, "string", anon.Label)
}

func TestTree_ObjectChildren(t *testing.T) {
	t.Parallel()
	store := &fakeStore{props: map[string][]to.Property{
		"k": {
			{Name: "name", Type: str()},
			{Name: "age", Type: &to.Union{TypeName: "number | undefined", Unions: []to.TypeObject{num(), undef()}}},
			{Name: "id", Type: &to.Union{TypeName: "string | number | undefined", Unions: []to.TypeObject{str(), num(), undef()}}},
		},
	}}
	root := Node{Type: &to.Object{TypeName: "User", StoreKey: "k"}}

	plain, err := NewTree(store, TreeOptions{}).Children(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, plain, 3)
	assert.Equal(t, "name: string", plain[0].Label)
	assert.Equal(t, "age", plain[1].Label)
	assert.Equal(t, "Union", plain[1].Description)

	compact, err := NewTree(store, TreeOptions{CompactOptionalType: true}).Children(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, compact, 3)
	assert.Equal(t, "age?: number", compact[1].Label)
	assert.Equal(t, "id?", compact[2].Label)
	assert.Equal(t, "string | number", Label(compact[2].Type))
}

func TestTree_CallableChildren(t *testing.T) {
	t.Parallel()
	tr := NewTree(nil, TreeOptions{})
	n := tr.Root("f", &to.Callable{
		ArgTypes:   []to.Argument{{Name: "a", Type: str()}, {Name: "b", Type: num()}},
		ReturnType: to.NewSpecial(to.SpecialVoid),
	})
	assert.Equal(t, "Function", n.Description)

	kids, err := tr.Children(context.Background(), n)
	require.NoError(t, err)
	require.Len(t, kids, 3)
	assert.Equal(t, "a: string", kids[0].Label)
	assert.Equal(t, "Arg0", kids[0].Description)
	assert.Equal(t, "Arg1", kids[1].Description)
	assert.Equal(t, "void", kids[2].Label)
	assert.Equal(t, "ReturnType", kids[2].Description)
}

func TestTree_ArrayExpansion(t *testing.T) {
	t.Parallel()
	store := &fakeStore{props: map[string][]to.Property{"item": {{Name: "id", Type: num()}}}}
	arr := &to.Array{TypeName: "Item[]", Child: &to.Object{TypeName: "Item", StoreKey: "item"}}

	direct := NewTree(store, TreeOptions{DirectExpandArray: true})
	root := direct.Root("items", arr)
	assert.Equal(t, "Array Properties", root.Description)
	kids, err := direct.Children(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "id: number", kids[0].Label)

	nested := NewTree(store, TreeOptions{})
	kids, err = nested.Children(context.Background(), nested.Root("items", arr))
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "Item", kids[0].Label)
}

func TestTree_EnumAndUnionChildren(t *testing.T) {
	t.Parallel()
	tr := NewTree(nil, TreeOptions{CompactPropertyLength: 4})

	kids, err := tr.Children(context.Background(), tr.Root("Color", &to.Enum{TypeName: "Color", Enums: []to.EnumMember{
		{Name: "Red", Type: to.NewLiteral("red")},
	}}))
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "red", kids[0].Label)
	assert.Equal(t, "Red", kids[0].Description)

	kids, err = tr.Children(context.Background(), tr.Root("", &to.Union{TypeName: "u", Unions: []to.TypeObject{
		to.NewLiteral("abcdefgh"), num(),
	}}))
	require.NoError(t, err)
	require.Len(t, kids, 2)
	assert.Equal(t, "abcd...", kids[0].Label)
}
