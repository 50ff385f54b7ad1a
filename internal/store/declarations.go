package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const declarationColumns = `d.id, d.file_id, d.ordinal, d.name, d.decl_kind, d.variant, d.type_name,
	d.type_text, d.type_json, d.signature_hash, d.start_line, d.start_col, d.end_line, d.end_col, f.path`

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertDeclaration(db execer, d *Declaration) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO declarations (file_id, ordinal, name, decl_kind, variant, type_name, type_text,
			type_json, signature_hash, start_line, start_col, end_line, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.FileID, d.Ordinal, d.Name, d.DeclKind, d.Variant, nullString(d.TypeName), nullString(d.TypeText),
		d.TypeJSON, nullString(d.SignatureHash), d.StartLine, d.StartCol, d.EndLine, d.EndCol,
	)
	if err != nil {
		return 0, fmt.Errorf("insert declaration %q: %w", d.Name, err)
	}
	return res.LastInsertId()
}

// InsertDeclaration writes d and sets its ID.
func (s *Store) InsertDeclaration(d *Declaration) (int64, error) {
	id, err := insertDeclaration(s.db, d)
	if err != nil {
		return 0, err
	}
	d.ID = id
	return id, nil
}

// DeclarationsByFile returns the declarations of a file in source order.
func (s *Store) DeclarationsByFile(fileID int64) ([]*Declaration, error) {
	rows, err := s.db.Query(
		"SELECT "+declarationColumns+" FROM declarations d JOIN files f ON f.id = d.file_id WHERE d.file_id = ? ORDER BY d.ordinal", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("declarations by file: %w", err)
	}
	defer rows.Close()
	return scanDeclarations(rows)
}

// Declarations returns the declarations matching q ordered by path and
// source order. Name matches exactly or, when it contains `*`, as a glob.
func (s *Store) Declarations(q DeclarationQuery) ([]*Declaration, error) {
	var where []string
	var args []any
	if q.Name != "" {
		if strings.Contains(q.Name, "*") {
			where = append(where, "d.name GLOB ?")
		} else {
			where = append(where, "d.name = ?")
		}
		args = append(args, q.Name)
	}
	if q.Variant != "" {
		where = append(where, "d.variant = ?")
		args = append(args, q.Variant)
	}
	if q.DeclKind != "" {
		where = append(where, "d.decl_kind = ?")
		args = append(args, q.DeclKind)
	}
	if q.Path != "" {
		where = append(where, "f.path = ?")
		args = append(args, q.Path)
	}

	query := "SELECT " + declarationColumns + " FROM declarations d JOIN files f ON f.id = d.file_id"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY f.path, d.ordinal"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("declarations: %w", err)
	}
	defer rows.Close()
	return scanDeclarations(rows)
}

func scanDeclarations(rows *sql.Rows) ([]*Declaration, error) {
	var out []*Declaration
	for rows.Next() {
		d := &Declaration{}
		var typeName, typeText, sigHash sql.NullString
		if err := rows.Scan(&d.ID, &d.FileID, &d.Ordinal, &d.Name, &d.DeclKind, &d.Variant, &typeName,
			&typeText, &d.TypeJSON, &sigHash, &d.StartLine, &d.StartCol, &d.EndLine, &d.EndCol, &d.Path); err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		d.TypeName = typeName.String
		d.TypeText = typeText.String
		d.SignatureHash = sigHash.String
		out = append(out, d)
	}
	return out, rows.Err()
}
