package tsparse

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTestSource(t *testing.T, name, src string) *File {
	t.Helper()
	f, err := Parse(context.Background(), name, []byte(src))
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

func TestLanguageForFile(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"a.ts":        LangTypeScript,
		"a.d.ts":      LangTypeScript,
		"dir/A.TSX":   LangTSX,
		"module.mts":  LangTypeScript,
	}
	for path, want := range cases {
		got, ok := LanguageForFile(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}
	_, ok := LanguageForFile("main.go")
	assert.False(t, ok)
	assert.Equal(t, "typescriptreact", LanguageID(LangTSX))
}

func TestReadFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "a.ts")
	require.NoError(t, os.WriteFile(path, []byte("export type A = string\n"), 0o644))

	f, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "program", f.Root().Type())
	assert.Equal(t, HashContent([]byte("export type A = string\n")), f.Hash)
	assert.Equal(t, 2, f.LineCount())

	_, err = ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.ts"))
	assert.Error(t, err)
}

func TestOffset_UTF16Columns(t *testing.T) {
	t.Parallel()
	f := parseTestSource(t, "a.ts", "const s = \"😀x\"\nlet n = 1\n")

	off, ok := f.Offset(0, 13)
	require.True(t, ok)
	assert.Equal(t, 15, off, "emoji counts as two UTF-16 units")

	off, ok = f.Offset(0, 12)
	require.True(t, ok)
	assert.Equal(t, 11, off, "column inside a surrogate pair clamps to the rune start")

	off, ok = f.Offset(1, 4)
	require.True(t, ok)
	assert.Equal(t, "n", string(f.Source[off:off+1]))

	off, ok = f.Offset(1, 200)
	require.True(t, ok)
	assert.Equal(t, len("const s = \"😀x\"\nlet n = 1"), off)

	_, ok = f.Offset(10, 0)
	assert.False(t, ok)
}

func TestPosition_RoundTrip(t *testing.T) {
	t.Parallel()
	f := parseTestSource(t, "a.ts", "const s = \"😀x\"\nlet n = 1\n")
	line, col := f.Position(15)
	assert.Equal(t, 0, line)
	assert.Equal(t, 13, col)

	line, col = f.Position(len("const s = \"😀x\"\nlet "))
	assert.Equal(t, 1, line)
	assert.Equal(t, 4, col)
}

func TestLeafAt(t *testing.T) {
	t.Parallel()
	f := parseTestSource(t, "a.ts", "export type A = string\n")

	leaf := f.LeafAt(12)
	require.NotNil(t, leaf)
	assert.Equal(t, "type_identifier", leaf.Type())
	assert.Equal(t, "A", f.Text(leaf))

	// Cursor right after the identifier still selects it.
	leaf = f.LeafAt(13)
	require.NotNil(t, leaf)
	assert.Equal(t, "A", f.Text(leaf))

	leaf = f.LeafAt(18)
	require.NotNil(t, leaf)
	assert.Equal(t, "string", f.Text(leaf))

	assert.Nil(t, f.LeafAt(-1))
}

func TestUnquote(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hello", Unquote(`"hello"`))
	assert.Equal(t, "it's", Unquote(`'it\'s'`))
	assert.Equal(t, "a\nb", Unquote(`"a\nb"`))
	assert.Equal(t, "é", Unquote(`"é"`))
	assert.Equal(t, "plain", Unquote("plain"))
}

func TestParseNumber(t *testing.T) {
	t.Parallel()
	for text, want := range map[string]float64{
		"20":    20,
		"1.5":   1.5,
		"0x10":  16,
		"0b101": 5,
		"1_000": 1000,
		"1e3":   1000,
	} {
		got, ok := ParseNumber(text)
		assert.True(t, ok, text)
		assert.Equal(t, want, got, text)
	}
	_, ok := ParseNumber("abc")
	assert.False(t, ok)
}
