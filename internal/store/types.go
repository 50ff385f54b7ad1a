package store

import "time"

// File is an indexed source file. Hash is the content hash used to skip
// unchanged files on reindex.
type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

// Declaration is one extracted top-level declaration. TypeJSON holds the
// tagged type object; object members are not part of it. Path is filled
// from the owning file on read.
type Declaration struct {
	ID            int64
	FileID        int64
	Path          string
	Ordinal       int
	Name          string
	DeclKind      string
	Variant       string
	TypeName      string
	TypeText      string
	TypeJSON      string
	SignatureHash string
	StartLine     int
	StartCol      int
	EndLine       int
	EndCol        int
}

// DeclarationQuery filters Declarations. Zero fields match everything.
type DeclarationQuery struct {
	Name     string
	Variant  string
	DeclKind string
	Path     string
	Limit    int
}
