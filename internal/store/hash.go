package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ComputeSignatureHash computes a deterministic hash from a declaration's
// semantic identity. Location changes do NOT affect the hash.
func ComputeSignatureHash(name, declKind, typeJSON string) string {
	h := sha256.New()
	fmt.Fprintf(h, "name:%s\n", name)
	fmt.Fprintf(h, "kind:%s\n", declKind)
	fmt.Fprintf(h, "type:%s\n", typeJSON)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Diff lists declaration names added, removed and changed between two
// versions of a file. Each list is sorted.
type Diff struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffDeclarations compares old and new declarations by name and
// signature hash.
func DiffDeclarations(oldDecls, newDecls []*Declaration) Diff {
	oldByName := make(map[string]string, len(oldDecls))
	for _, d := range oldDecls {
		oldByName[d.Name] = d.SignatureHash
	}
	newByName := make(map[string]string, len(newDecls))
	for _, d := range newDecls {
		newByName[d.Name] = d.SignatureHash
	}

	var diff Diff
	for name, oldHash := range oldByName {
		newHash, ok := newByName[name]
		switch {
		case !ok:
			diff.Removed = append(diff.Removed, name)
		case newHash != oldHash:
			diff.Changed = append(diff.Changed, name)
		}
	}
	for name := range newByName {
		if _, ok := oldByName[name]; !ok {
			diff.Added = append(diff.Added, name)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)
	return diff
}
