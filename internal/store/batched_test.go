package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchedStore_FakeIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/proj/a.ts")
	b := NewBatchedStore(s, f.ID)

	id1, err := b.InsertDeclaration(testDecl(0, 0, "A", "ObjectTO"))
	require.NoError(t, err)
	id2, err := b.InsertDeclaration(testDecl(0, 1, "B", "ObjectTO"))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), id1)
	assert.Equal(t, int64(-2), id2)

	buffered, err := b.DeclarationsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, buffered, 2)
	assert.Equal(t, f.ID, buffered[0].FileID)

	committed, err := s.DeclarationsByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, committed)
}

func TestCommitBatch_ReplacesFileData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/proj/a.ts")
	_, err := s.InsertDeclaration(testDecl(f.ID, 0, "Stale", "ObjectTO"))
	require.NoError(t, err)

	b := NewBatchedStore(s, f.ID)
	_, err = b.InsertDeclaration(testDecl(0, 0, "Fresh", "UnionTO"))
	require.NoError(t, err)
	require.NoError(t, s.CommitBatch(b))

	decls, err := s.DeclarationsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "Fresh", decls[0].Name)
	assert.Positive(t, decls[0].ID)
	assert.Equal(t, decls[0].ID, b.Declarations[0].ID)
}

func TestBatchedStore_OtherFilePassesThrough(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "/proj/a.ts")
	other := insertTestFile(t, s, "/proj/b.ts")
	_, err := s.InsertDeclaration(testDecl(other.ID, 0, "B", "ObjectTO"))
	require.NoError(t, err)

	b := NewBatchedStore(s, a.ID)
	decls, err := b.DeclarationsByFile(other.ID)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "B", decls[0].Name)
}
