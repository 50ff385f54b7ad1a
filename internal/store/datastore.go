package store

// DataStore is the write side used while indexing one file. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering) implement it.
type DataStore interface {
	InsertDeclaration(d *Declaration) (int64, error)
	DeclarationsByFile(fileID int64) ([]*Declaration, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
