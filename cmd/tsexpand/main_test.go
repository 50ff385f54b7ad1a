package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

const fixtureSource = `export interface Address { street: string; zip?: number }
export interface User { name: string; address: Address; friends: User[] }
export type Id = string
export const origin: Address = { street: "x" }
`

// newFixture creates a project directory holding main.ts and returns it
// with the absolute file path.
func newFixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.ts")
	require.NoError(t, os.WriteFile(path, []byte(fixtureSource), 0o644))
	return dir, path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type rawResult struct {
	Command    string          `json:"command"`
	Results    json.RawMessage `json:"results"`
	TotalCount *int            `json:"total_count"`
	Error      string          `json:"error"`
}

func decodeResult[T any](t *testing.T, out string) (rawResult, T) {
	t.Helper()
	var raw rawResult
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	var results T
	if len(raw.Results) > 0 && string(raw.Results) != "null" {
		require.NoError(t, json.Unmarshal(raw.Results, &results))
	}
	return raw, results
}

// =============================================================================
// Helpers
// =============================================================================

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "src", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))
	assert.Equal(t, root, findRepoRoot(deep))
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.Error(t, validateFormat("yaml"))
}

func TestParsePosition(t *testing.T) {
	t.Parallel()
	path, line, col, err := parsePosition([]string{"/p/a.ts", "3", "7"})
	require.NoError(t, err)
	assert.Equal(t, "/p/a.ts", path)
	assert.Equal(t, 3, line)
	assert.Equal(t, 7, col)

	_, _, _, err = parsePosition([]string{"/p/a.ts", "-1", "0"})
	assert.Error(t, err)
	_, _, _, err = parsePosition([]string{"/p/a.ts", "0", "x"})
	assert.Error(t, err)
}

func TestObjectOf(t *testing.T) {
	t.Parallel()
	obj := &to.Object{TypeName: "User", StoreKey: "k"}
	got, ok := objectOf(&to.Array{TypeName: "User[][]", Child: &to.Array{TypeName: "User[]", Child: obj}})
	require.True(t, ok)
	assert.Same(t, obj, got)

	_, ok = objectOf(to.NewPrimitive(to.PrimitiveString))
	assert.False(t, ok)
}

// =============================================================================
// Commands
// =============================================================================

func TestExtract_JSON(t *testing.T) {
	dir, path := newFixture(t)
	out, err := run(t, "--project", dir, "extract", path)
	require.NoError(t, err)

	raw, decls := decodeResult[[]CLIDeclaration](t, out)
	assert.Equal(t, "extract", raw.Command)
	require.NotNil(t, raw.TotalCount)
	assert.Equal(t, 4, *raw.TotalCount)
	require.Len(t, decls, 4)

	assert.Equal(t, "Address", decls[0].Name)
	assert.Equal(t, "ObjectTO", decls[0].Variant)
	assert.Equal(t, "Id", decls[2].Name)
	assert.Equal(t, "string", decls[2].Text)

	typ, err := to.Unmarshal(decls[2].Type)
	require.NoError(t, err)
	assert.Equal(t, to.NewPrimitive(to.PrimitiveString), typ)
}

func TestExtract_Text(t *testing.T) {
	dir, path := newFixture(t)
	out, err := run(t, "--project", dir, "--format", "text", "extract", path)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Id")
	assert.Contains(t, out, "PrimitiveTO")
}

func TestExtract_MissingFileWritesErrorEnvelope(t *testing.T) {
	dir, _ := newFixture(t)
	out, err := run(t, "--project", dir, "extract", filepath.Join(dir, "nope.ts"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errHandled)

	raw, _ := decodeResult[any](t, out)
	assert.Equal(t, "extract", raw.Command)
	assert.Contains(t, raw.Error, "fileNotFound")
}

func TestExtract_ConfigStrictExports(t *testing.T) {
	dir, path := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.ts"), []byte("export type O = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(fixtureSource+`export { default } from "./other"`+"\n"), 0o644))

	_, err := run(t, "--project", dir, "extract", path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tsexpand.yaml"), []byte("strictExports: true\n"), 0o644))
	out, err := run(t, "--project", dir, "extract", path)
	require.Error(t, err)
	raw, _ := decodeResult[any](t, out)
	assert.Contains(t, raw.Error, "notNamedExport")
}

func TestAt(t *testing.T) {
	dir, path := newFixture(t)
	out, err := run(t, "--project", dir, "at", path, "3", "13")
	require.NoError(t, err)

	_, res := decodeResult[CLIDeclaration](t, out)
	assert.Equal(t, "origin", res.Name)
	assert.Equal(t, "ObjectTO", res.Variant)
}

func TestProps(t *testing.T) {
	dir, path := newFixture(t)

	out, err := run(t, "--project", dir, "props", path, "User")
	require.NoError(t, err)
	_, props := decodeResult[[]CLIProperty](t, out)
	require.Len(t, props, 3)
	assert.Equal(t, []string{"name", "address", "friends"}, []string{props[0].Name, props[1].Name, props[2].Name})

	out, err = run(t, "--project", dir, "props", path, "User.address")
	require.NoError(t, err)
	_, props = decodeResult[[]CLIProperty](t, out)
	require.Len(t, props, 2)
	assert.Equal(t, "street", props[0].Name)

	out, err = run(t, "--project", dir, "props", path, "User.friends.address")
	require.NoError(t, err)
	_, props = decodeResult[[]CLIProperty](t, out)
	assert.Len(t, props, 2)

	_, err = run(t, "--project", dir, "props", path, "Id")
	assert.Error(t, err)
	_, err = run(t, "--project", dir, "props", path, "User.missing")
	assert.Error(t, err)
}

func TestTree_Text(t *testing.T) {
	dir, path := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tsexpand.yaml"), []byte("compactOptionalType: true\n"), 0o644))

	out, err := run(t, "--project", dir, "--format", "text", "tree", path, "Address", "--depth", "1")
	require.NoError(t, err)
	assert.Equal(t, "Address  (Properties)\n  street: string\n  zip?: number\n", out)
}

func TestIndexAndFind(t *testing.T) {
	dir, _ := newFixture(t)

	out, err := run(t, "--project", dir, "index")
	require.NoError(t, err)
	_, res := decodeResult[CLIIndexResult](t, out)
	assert.Equal(t, 1, res.Indexed)
	assert.FileExists(t, filepath.Join(dir, ".tsexpand", "index.db"))

	out, err = run(t, "--project", dir, "index")
	require.NoError(t, err)
	_, res = decodeResult[CLIIndexResult](t, out)
	assert.Equal(t, 1, res.Skipped)

	out, err = run(t, "--project", dir, "find", "--where", `variant == "ObjectTO" && kind == "interface"`)
	require.NoError(t, err)
	_, found := decodeResult[[]CLIIndexedDeclaration](t, out)
	require.Len(t, found, 2)
	assert.Equal(t, "Address", found[0].Name)
	assert.Equal(t, "User", found[1].Name)

	out, err = run(t, "--project", dir, "find", "--name", "I*")
	require.NoError(t, err)
	_, found = decodeResult[[]CLIIndexedDeclaration](t, out)
	require.Len(t, found, 1)
	assert.Equal(t, "Id", found[0].Name)
	assert.Equal(t, 2, found[0].StartLine)
}

func TestFind_WithoutIndex(t *testing.T) {
	dir, _ := newFixture(t)
	out, err := run(t, "--project", dir, "find")
	require.Error(t, err)
	raw, _ := decodeResult[any](t, out)
	assert.Contains(t, raw.Error, "run 'tsexpand index' first")
}

func TestInvalidFormat(t *testing.T) {
	dir, _ := newFixture(t)
	_, err := run(t, "--project", dir, "--format", "yaml", "extract", "x.ts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
