package tsexpand

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/d-kimuson/ts-type-expand/internal/classify"
	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

// sequentialKeys yields k1, k2, ... as store keys.
func sequentialKeys() Option {
	n := 0
	return WithKeyFunc(func() string {
		n++
		return fmt.Sprintf("k%d", n)
	})
}

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// newTestEngine writes files into a temp project, loads it and returns the
// engine with the project directory.
func newTestEngine(t *testing.T, files map[string]string, opts ...Option) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		writeFile(t, dir, name, src)
	}
	e, err := New(append([]Option{sequentialKeys()}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	require.NoError(t, e.LoadDirectory(context.Background(), dir))
	return e, dir
}

func names(decls []Declaration) []string {
	out := make([]string, 0, len(decls))
	for _, d := range decls {
		out = append(out, d.DeclaredName)
	}
	return out
}

func str() to.TypeObject { return to.NewPrimitive(to.PrimitiveString) }

// =============================================================================
// Lifecycle & loading
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	defer e.Close()

	assert.True(t, e.skipUnresolved)
	assert.False(t, e.strictExports)
	assert.Nil(t, e.store)
	assert.Zero(t, e.Snapshot().Len())

	_, err = e.Index(context.Background())
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestNew_WithIndexCreatesStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), ".tsexpand", "index.db")
	e, err := New(WithIndex(dbPath))
	require.NoError(t, err)
	defer e.Close()

	require.NotNil(t, e.store)
	assert.FileExists(t, dbPath)
}

func TestLoadDirectory_SkipsExcludedDirs(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{
		"src/a.ts":               "export type A = string",
		"src/view.tsx":           "export type V = number",
		"node_modules/x/index.ts": "export type X = string",
		".cache/b.ts":            "export type B = string",
		"README.md":              "# readme",
	})

	var got []string
	for _, f := range e.Snapshot().Files() {
		rel, err := filepath.Rel(dir, f.Path)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"src/a.ts", "src/view.tsx"}, got)
}

func TestWithLanguages(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"a.ts":  "export type A = string",
		"b.tsx": "export type B = string",
	}, WithLanguages("typescriptreact"))

	files := e.Snapshot().Files()
	require.Len(t, files, 1)
	assert.Equal(t, "b.tsx", filepath.Base(files[0].Path))
}

func TestLoadFiles_ReusesUnchangedFiles(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{
		"a.ts": "export type A = string",
		"b.ts": "export type B = string",
	})
	ctx := context.Background()
	a, _ := e.Snapshot().File(filepath.Join(dir, "a.ts"))
	b, _ := e.Snapshot().File(filepath.Join(dir, "b.ts"))

	writeFile(t, dir, "b.ts", "export type B = number")
	require.NoError(t, e.LoadDirectory(ctx, dir))

	a2, _ := e.Snapshot().File(filepath.Join(dir, "a.ts"))
	b2, _ := e.Snapshot().File(filepath.Join(dir, "b.ts"))
	assert.Same(t, a, a2)
	assert.NotSame(t, b, b2)
}

func TestLoadFiles_MissingFile(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	defer e.Close()

	err = e.LoadFiles(context.Background(), []string{filepath.Join(t.TempDir(), "missing.ts")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tsexpand: load")
}

// =============================================================================
// ExtractDeclaredTypes
// =============================================================================

func TestExtractDeclaredTypes_OnlyExported(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{
		"main.ts": "export type A = string\ntype B = number\n",
	})

	decls, err := e.ExtractDeclaredTypes(context.Background(), filepath.Join(dir, "main.ts"))
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "A", decls[0].DeclaredName)
	assert.Equal(t, str(), decls[0].Type)
}

func TestExtractDeclaredTypes_FileNotFound(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{"main.ts": "export type A = string"})

	_, err := e.ExtractDeclaredTypes(context.Background(), filepath.Join(dir, "other.ts"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileNotFound)
	reason, _ := ReasonOf(err)
	assert.Equal(t, ReasonFileNotFound, reason)
}

func TestExtractDeclaredTypes_SourceOrderAndKinds(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{
		"main.ts": `export interface User { name: string }
export enum Color { Red, Green }
export const limit = 10
export function greet(u: User): string { return u.name }
export class Box { size = 1 }
`,
	})

	decls, err := e.ExtractDeclaredTypes(context.Background(), filepath.Join(dir, "main.ts"))
	require.NoError(t, err)
	assert.Equal(t, []string{"User", "Color", "limit", "greet", "Box"}, names(decls))

	assert.Equal(t, to.VariantObject, decls[0].Type.Variant())
	assert.Equal(t, to.VariantEnum, decls[1].Type.Variant())
	assert.Equal(t, to.NewLiteral(10), decls[2].Type)
	assert.Equal(t, to.VariantCallable, decls[3].Type.Variant())
	assert.Equal(t, to.VariantObject, decls[4].Type.Variant())
}

func TestExtractDeclaredTypes_NamedReExports(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{
		"a.ts":     "export type A = { name: string }\nexport type Hidden = number\n",
		"index.ts": "export { A as B } from \"./a\"\nexport type C = number\n",
	})

	decls, err := e.ExtractDeclaredTypes(context.Background(), filepath.Join(dir, "index.ts"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, names(decls))

	obj, ok := decls[0].Type.(*to.Object)
	require.True(t, ok)
	props := e.GetProperties(context.Background(), obj.StoreKey)
	require.Len(t, props, 1)
	assert.Equal(t, "name", props[0].Name)
}

func TestExtractDeclaredTypes_ExportFailurePolicy(t *testing.T) {
	files := map[string]string{
		"a.ts": "export type A = string",
		"main.ts": `export * from "./a"
export { X } from "./missing"
export { Y } from "lodash"
export type Kept = number
`,
	}

	lenient, dir := newTestEngine(t, files)
	decls, err := lenient.ExtractDeclaredTypes(context.Background(), filepath.Join(dir, "main.ts"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Kept"}, names(decls))

	strict, dir := newTestEngine(t, files, WithStrictExports(true))
	_, err = strict.ExtractDeclaredTypes(context.Background(), filepath.Join(dir, "main.ts"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExportResolutionFailed)
	assert.ErrorIs(t, err, &Error{Reason: ReasonExportResolutionFailed, ExportReason: ExportNotNamed})

	var detail *Error
	require.True(t, errors.As(err, &detail))
	assert.Equal(t, "./a", detail.Module)
}

func TestExtractDeclaredTypes_UnresolvedModuleReasons(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		reason ExportReason
	}{
		{"relative", `export { X } from "./missing"`, ExportModuleNotFound},
		{"bare", `export { X } from "lodash"`, ExportModuleNotFound},
		{"default", "export { default } from \"./a\"", ExportNotNamed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, dir := newTestEngine(t, map[string]string{
				"a.ts":    "export type A = string",
				"main.ts": tt.src,
			}, WithStrictExports(true))
			_, err := e.ExtractDeclaredTypes(context.Background(), filepath.Join(dir, "main.ts"))
			_, got := ReasonOf(err)
			assert.Equal(t, tt.reason, got)
		})
	}
}

func TestExtractDeclaredTypes_ModuleOutsideSnapshot(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{
		"main.ts": `export { A } from "./a"`,
		"a.ts":    "export type A = string",
	}, WithStrictExports(true))
	// Reload only main.ts; a.ts stays on disk.
	require.NoError(t, e.LoadFiles(context.Background(), []string{filepath.Join(dir, "main.ts")}))

	_, err := e.ExtractDeclaredTypes(context.Background(), filepath.Join(dir, "main.ts"))
	assert.ErrorIs(t, err, &Error{Reason: ReasonExportResolutionFailed, ExportReason: ExportModuleFileNotFound})
}

func TestExtractDeclaredTypes_ReExportCycleTerminates(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{
		"a.ts": "export { B } from \"./b\"\nexport type A = string\n",
		"b.ts": "export { A } from \"./a\"\nexport type B = number\n",
	})

	decls, err := e.ExtractDeclaredTypes(context.Background(), filepath.Join(dir, "a.ts"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, names(decls))
}

func TestExtractDeclaredTypes_SkipUnresolvedGenerics(t *testing.T) {
	files := map[string]string{
		"main.ts": "export type Box<T> = { value: T }\nexport type Filled = Box<string>\n",
	}

	skipping, dir := newTestEngine(t, files)
	decls, err := skipping.ExtractDeclaredTypes(context.Background(), filepath.Join(dir, "main.ts"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Filled"}, names(decls))

	keeping, dir := newTestEngine(t, files, WithSkipUnresolved(false))
	decls, err = keeping.ExtractDeclaredTypes(context.Background(), filepath.Join(dir, "main.ts"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Box", "Filled"}, names(decls))
}

// =============================================================================
// ClassifyAtPosition
// =============================================================================

func TestClassifyAtPosition(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{
		"main.ts": "export interface User { name: string }\nconst u: User = { name: \"x\" }\nlet w: Missing\n",
	})
	path := filepath.Join(dir, "main.ts")
	ctx := context.Background()

	res, err := e.ClassifyAtPosition(ctx, path, 1, 6)
	require.NoError(t, err)
	assert.Equal(t, "u", res.DeclaredName)
	assert.Equal(t, &to.Object{TypeName: "User", StoreKey: "k1"}, res.Type)

	_, err = e.ClassifyAtPosition(ctx, path, 99, 0)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = e.ClassifyAtPosition(ctx, path, 3, 0)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = e.ClassifyAtPosition(ctx, path, 2, 8)
	assert.ErrorIs(t, err, ErrUnresolvedType)

	_, err = e.ClassifyAtPosition(ctx, filepath.Join(dir, "nope.ts"), 0, 0)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

// =============================================================================
// Sessions
// =============================================================================

func TestGetProperties_NoSession(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	defer e.Close()

	props := e.GetProperties(context.Background(), "whatever")
	require.Len(t, props, 1)
	assert.Equal(t, classify.UnknownPropertyName, props[0].Name)
	assert.Equal(t, to.NewUnsupported(to.UnsupportedProp, ""), props[0].Type)
}

func TestGetProperties_NewSessionDropsOldKeys(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{
		"main.ts": "export type User = { name: string; tags: string[] }\n",
	})
	ctx := context.Background()
	path := filepath.Join(dir, "main.ts")

	decls, err := e.ExtractDeclaredTypes(ctx, path)
	require.NoError(t, err)
	require.Equal(t, &to.Object{TypeName: "User", StoreKey: "k1"}, decls[0].Type)

	props := e.GetProperties(ctx, "k1")
	require.Len(t, props, 2)
	assert.Equal(t, "name", props[0].Name)
	assert.Equal(t, &to.Array{TypeName: "string[]", Child: str()}, props[1].Type)

	// Repeated expansion within a session keeps working.
	assert.Len(t, e.GetProperties(ctx, "k1"), 2)

	_, err = e.ExtractDeclaredTypes(ctx, path)
	require.NoError(t, err)
	stale := e.GetProperties(ctx, "k1")
	require.Len(t, stale, 1)
	assert.Equal(t, classify.UnknownPropertyName, stale[0].Name)
	assert.Len(t, e.GetProperties(ctx, "k2"), 2)
}

func TestUpdateSnapshot_KeepsSession(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{
		"main.ts": "export type User = { name: string }\n",
	})
	ctx := context.Background()
	_, err := e.ExtractDeclaredTypes(ctx, filepath.Join(dir, "main.ts"))
	require.NoError(t, err)

	e.UpdateSnapshot(nil)
	assert.Zero(t, e.Snapshot().Len())

	props := e.GetProperties(ctx, "k1")
	require.Len(t, props, 1)
	assert.Equal(t, "name", props[0].Name)

	_, err = e.ExtractDeclaredTypes(ctx, filepath.Join(dir, "main.ts"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

// =============================================================================
// Rendering
// =============================================================================

func TestRenderType(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{
		"main.ts": `export type Node = { label: string; next: Node }
export type Handler = (id: number) => Promise<string>
`,
	}, WithRenderLimits(2, 10))
	ctx := context.Background()

	decls, err := e.ExtractDeclaredTypes(ctx, filepath.Join(dir, "main.ts"))
	require.NoError(t, err)
	require.Len(t, decls, 2)

	text, err := e.RenderType(ctx, decls[0].Type)
	require.NoError(t, err)
	assert.Equal(t, "{ label: string; next: { label: string; next: {}; }; }", text)

	text, err = e.RenderType(ctx, decls[1].Type)
	require.NoError(t, err)
	assert.Equal(t, "(id: number) => Promise<string>", text)
}

func TestTree(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{
		"main.ts": "export interface User { name: string; age?: number }\n",
	}, WithTreeOptions(TreeOptions{CompactOptionalType: true}))
	ctx := context.Background()

	decls, err := e.ExtractDeclaredTypes(ctx, filepath.Join(dir, "main.ts"))
	require.NoError(t, err)

	tree := e.Tree()
	root := tree.Root(decls[0].DeclaredName, decls[0].Type)
	assert.Equal(t, "User", root.Label)
	kids, err := tree.Children(ctx, root)
	require.NoError(t, err)
	require.Len(t, kids, 2)
	assert.Equal(t, "name: string", kids[0].Label)
	assert.Equal(t, "age?: number", kids[1].Label)
}

// =============================================================================
// Tracing
// =============================================================================

func TestTracing_EntryPointSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	e, dir := newTestEngine(t, map[string]string{
		"main.ts": "export type User = { name: string }\n",
	}, WithTracerProvider(tp))
	ctx := context.Background()

	_, err := e.ExtractDeclaredTypes(ctx, filepath.Join(dir, "main.ts"))
	require.NoError(t, err)
	e.GetProperties(ctx, "k1")
	_, err = e.ClassifyAtPosition(ctx, filepath.Join(dir, "gone.ts"), 0, 0)
	require.Error(t, err)

	byName := make(map[string]sdktrace.ReadOnlySpan)
	for _, s := range recorder.Ended() {
		byName[s.Name()] = s
	}
	for _, name := range []string{
		"tsexpand.LoadFiles",
		"tsexpand.ExtractDeclaredTypes",
		"tsexpand.GetProperties",
		"tsexpand.ClassifyAtPosition",
	} {
		assert.Contains(t, byName, name)
	}
	assert.Equal(t, codes.Error, byName["tsexpand.ClassifyAtPosition"].Status().Code)
	assert.NotEqual(t, codes.Error, byName["tsexpand.ExtractDeclaredTypes"].Status().Code)
}

// =============================================================================
// Index
// =============================================================================

func TestIndex_SkipsUnchangedAndTracksDependents(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	e, dir := newTestEngine(t, map[string]string{
		"a.ts":     "export type A = string\n",
		"index.ts": "export { A } from \"./a\"\n",
		"solo.ts":  "export type S = number\n",
	}, WithIndex(dbPath))
	ctx := context.Background()

	res, err := e.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Indexed)
	assert.Zero(t, res.Skipped)

	res, err = e.Index(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Indexed)
	assert.Equal(t, 3, res.Skipped)

	writeFile(t, dir, "a.ts", "export type A = number\nexport type A2 = string\n")
	require.NoError(t, e.LoadDirectory(ctx, dir))
	res, err = e.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Indexed, "a.ts and its re-exporter")
	assert.Equal(t, 1, res.Skipped)

	aDiff := res.Changes[filepath.Join(dir, "a.ts")]
	assert.Equal(t, []string{"A2"}, aDiff.Added)
	assert.Equal(t, []string{"A"}, aDiff.Changed)
	assert.Equal(t, []string{"A"}, res.Changes[filepath.Join(dir, "index.ts")].Changed)

	require.NoError(t, os.Remove(filepath.Join(dir, "solo.ts")))
	require.NoError(t, e.LoadDirectory(ctx, dir))
	res, err = e.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)
}

func TestFindDeclarations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	e, dir := newTestEngine(t, map[string]string{
		"main.ts": `export interface User { name: string }
export type UserId = string
export enum Color { Red }
`,
	}, WithIndex(dbPath))
	ctx := context.Background()
	_, err := e.Index(ctx)
	require.NoError(t, err)

	all, err := e.FindDeclarations(ctx, DeclarationQuery{}, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "User", all[0].Name)
	assert.Equal(t, "interface", all[0].DeclKind)
	assert.Equal(t, "ObjectTO", all[0].Variant)
	assert.Equal(t, "User", all[0].TypeText)
	assert.Equal(t, filepath.Join(dir, "main.ts"), all[0].Path)
	assert.Equal(t, 0, all[0].StartLine)
	assert.Equal(t, 2, all[2].StartLine)

	got, err := e.FindDeclarations(ctx, DeclarationQuery{Name: "User*"}, `variant == "PrimitiveTO"`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "UserId", got[0].Name)

	decoded, err := to.Unmarshal([]byte(got[0].TypeJSON))
	require.NoError(t, err)
	assert.Equal(t, str(), decoded)

	limited, err := e.FindDeclarations(ctx, DeclarationQuery{Limit: 1}, `kind != "interface"`)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "UserId", limited[0].Name)

	_, err = e.FindDeclarations(ctx, DeclarationQuery{}, `variant == (`)
	assert.Error(t, err)
}
