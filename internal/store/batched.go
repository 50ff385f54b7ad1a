package store

import "sync"

// BatchedStore buffers the declarations of one file in memory using fake
// (negative) IDs, so a file is replaced atomically by CommitBatch.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	store  *Store // for read passthrough
	fileID int64
	mu     sync.Mutex

	Declarations []Declaration

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore for the file fileID backed by s
// for read queries.
func NewBatchedStore(s *Store, fileID int64) *BatchedStore {
	return &BatchedStore{
		store:      s,
		fileID:     fileID,
		nextFakeID: -1,
	}
}

// FileID returns the file the batch replaces.
func (b *BatchedStore) FileID() int64 { return b.fileID }

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertDeclaration(d *Declaration) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	d.FileID = b.fileID
	b.Declarations = append(b.Declarations, *d)
	return fakeID, nil
}

// DeclarationsByFile returns the buffered declarations for the batch's file
// and the committed ones for any other file.
func (b *BatchedStore) DeclarationsByFile(fileID int64) ([]*Declaration, error) {
	if fileID != b.fileID {
		return b.store.DeclarationsByFile(fileID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Declaration, 0, len(b.Declarations))
	for i := range b.Declarations {
		out = append(out, &b.Declarations[i])
	}
	return out, nil
}
