package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestFile is a helper that inserts a file and returns it with ID set.
func insertTestFile(t *testing.T, s *Store, path string) *File {
	t.Helper()
	f := &File{Path: path, Language: "typescript", Hash: "abc123", LineCount: 3, LastIndexed: time.Now().Truncate(time.Second)}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

func testDecl(fileID int64, ordinal int, name, variant string) *Declaration {
	json := `{"__type":"` + variant + `"}`
	return &Declaration{
		FileID:        fileID,
		Ordinal:       ordinal,
		Name:          name,
		DeclKind:      "type",
		Variant:       variant,
		TypeName:      name,
		TypeText:      name,
		TypeJSON:      json,
		SignatureHash: ComputeSignatureHash(name, "type", json),
		StartLine:     ordinal,
		EndLine:       ordinal,
		EndCol:        10,
	}
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_TablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "declarations"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

// =============================================================================
// Files
// =============================================================================

func TestFileByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/proj/a.ts")

	got, err := s.FileByPath("/proj/a.ts")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "abc123", got.Hash)
	assert.Equal(t, 3, got.LineCount)

	missing, err := s.FileByPath("/proj/missing.ts")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFiles_SortedByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "/proj/b.ts")
	insertTestFile(t, s, "/proj/a.ts")

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/proj/a.ts", files[0].Path)
	assert.Equal(t, "/proj/b.ts", files[1].Path)
}

func TestDeleteFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "/proj/a.ts")
	b := insertTestFile(t, s, "/proj/b.ts")
	_, err := s.InsertDeclaration(testDecl(a.ID, 0, "A", "ObjectTO"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteFiles([]int64{a.ID}))

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, b.ID, files[0].ID)

	decls, err := s.Declarations(DeclarationQuery{})
	require.NoError(t, err)
	assert.Empty(t, decls)
}

// =============================================================================
// Declarations
// =============================================================================

func TestDeclarationsByFile_SourceOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/proj/a.ts")
	for i, name := range []string{"Zed", "Alpha", "Mid"} {
		_, err := s.InsertDeclaration(testDecl(f.ID, i, name, "ObjectTO"))
		require.NoError(t, err)
	}

	decls, err := s.DeclarationsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, decls, 3)
	assert.Equal(t, "Zed", decls[0].Name)
	assert.Equal(t, "Mid", decls[2].Name)
	assert.Equal(t, `{"__type":"ObjectTO"}`, decls[0].TypeJSON)
	assert.Equal(t, "/proj/a.ts", decls[0].Path)
	assert.NotEmpty(t, decls[0].SignatureHash)
}

func TestDeclarations_Query(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "/proj/a.ts")
	b := insertTestFile(t, s, "/proj/b.ts")
	for _, d := range []*Declaration{
		testDecl(a.ID, 0, "User", "ObjectTO"),
		testDecl(a.ID, 1, "UserId", "PrimitiveTO"),
		testDecl(b.ID, 0, "Color", "EnumTO"),
	} {
		_, err := s.InsertDeclaration(d)
		require.NoError(t, err)
	}

	names := func(q DeclarationQuery) []string {
		decls, err := s.Declarations(q)
		require.NoError(t, err)
		var out []string
		for _, d := range decls {
			out = append(out, d.Name)
		}
		return out
	}

	assert.Equal(t, []string{"User", "UserId", "Color"}, names(DeclarationQuery{}))
	assert.Equal(t, []string{"User"}, names(DeclarationQuery{Name: "User"}))
	assert.Equal(t, []string{"User", "UserId"}, names(DeclarationQuery{Name: "User*"}))
	assert.Equal(t, []string{"Color"}, names(DeclarationQuery{Variant: "EnumTO"}))
	assert.Equal(t, []string{"Color"}, names(DeclarationQuery{Path: "/proj/b.ts"}))
	assert.Equal(t, []string{"User"}, names(DeclarationQuery{Limit: 1}))
	assert.Empty(t, names(DeclarationQuery{DeclKind: "interface"}))
}

func TestDeclarations_EmptyOptionalColumns(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/proj/a.ts")
	_, err := s.InsertDeclaration(&Declaration{FileID: f.ID, Name: "x", DeclKind: "variable", Variant: "LiteralTO", TypeJSON: "{}"})
	require.NoError(t, err)

	decls, err := s.DeclarationsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Empty(t, decls[0].TypeName)
	assert.Empty(t, decls[0].SignatureHash)
}

// =============================================================================
// Hashing
// =============================================================================

func TestComputeSignatureHash_IgnoresLocation(t *testing.T) {
	t.Parallel()
	a := ComputeSignatureHash("A", "type", `{"__type":"PrimitiveTO","kind":"string"}`)
	b := ComputeSignatureHash("A", "type", `{"__type":"PrimitiveTO","kind":"string"}`)
	c := ComputeSignatureHash("A", "type", `{"__type":"PrimitiveTO","kind":"number"}`)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDiffDeclarations(t *testing.T) {
	t.Parallel()
	oldDecls := []*Declaration{
		{Name: "Keep", SignatureHash: "1"},
		{Name: "Change", SignatureHash: "2"},
		{Name: "Drop", SignatureHash: "3"},
	}
	newDecls := []*Declaration{
		{Name: "Keep", SignatureHash: "1"},
		{Name: "Change", SignatureHash: "9"},
		{Name: "New", SignatureHash: "4"},
	}

	diff := DiffDeclarations(oldDecls, newDecls)
	assert.Equal(t, []string{"New"}, diff.Added)
	assert.Equal(t, []string{"Drop"}, diff.Removed)
	assert.Equal(t, []string{"Change"}, diff.Changed)
	assert.False(t, diff.Empty())
	assert.True(t, DiffDeclarations(oldDecls, oldDecls).Empty())
}
