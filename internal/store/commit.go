package store

import "fmt"

// CommitBatch replaces the declarations of the batch's file with the
// buffered ones within a single transaction. Fake IDs are replaced by the
// assigned row IDs.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM declarations WHERE file_id = ?", batch.fileID); err != nil {
		return fmt.Errorf("commit batch: delete stale: %w", err)
	}

	batch.mu.Lock()
	defer batch.mu.Unlock()
	for i := range batch.Declarations {
		d := &batch.Declarations[i]
		realID, err := insertDeclaration(tx, d)
		if err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		d.ID = realID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: commit: %w", err)
	}
	return nil
}
