package tsparse

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// File is a parsed TypeScript source file. The syntax tree and source bytes
// are immutable after Parse returns.
type File struct {
	Path     string
	Language string
	Source   []byte
	Hash     string

	tree       *sitter.Tree
	root       *sitter.Node
	lineStarts []int
}

// ReadFile reads and parses the file at path.
func ReadFile(ctx context.Context, path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tsparse: read %s: %w", path, err)
	}
	return Parse(ctx, path, src)
}

// Parse parses src as the file at path. The grammar is chosen from the
// extension; unknown extensions parse as plain TypeScript.
func Parse(ctx context.Context, path string, src []byte) (*File, error) {
	lang, ok := LanguageForFile(path)
	if !ok {
		lang = LangTypeScript
	}
	grammar, _ := GrammarForLanguage(lang)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tsparse: parse %s: %w", path, err)
	}

	f := &File{
		Path:     filepath.Clean(path),
		Language: lang,
		Source:   src,
		Hash:     HashContent(src),
		tree:     tree,
		root:     tree.RootNode(),
	}
	f.lineStarts = append(f.lineStarts, 0)
	for i, b := range src {
		if b == '\n' {
			f.lineStarts = append(f.lineStarts, i+1)
		}
	}
	return f, nil
}

// HashContent returns the hex SHA-256 of content.
func HashContent(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// Root returns the program node.
func (f *File) Root() *sitter.Node {
	return f.root
}

// Text returns the source text covered by n.
func (f *File) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.Source)
}

// LineCount returns the number of lines in the file.
func (f *File) LineCount() int {
	return len(f.lineStarts)
}

// Close releases the syntax tree.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
	}
}

// Offset converts a 0-based line and a 0-based UTF-16 column into a byte
// offset. Columns past the end of the line clamp to the line end. Returns
// false if line is outside the file.
func (f *File) Offset(line, col int) (int, bool) {
	if line < 0 || line >= len(f.lineStarts) || col < 0 {
		return 0, false
	}
	start := f.lineStarts[line]
	end := len(f.Source)
	if line+1 < len(f.lineStarts) {
		end = f.lineStarts[line+1] - 1
	}
	if end > start && f.Source[end-1] == '\r' {
		end--
	}

	off, units := start, 0
	for off < end && units < col {
		r, size := utf8.DecodeRune(f.Source[off:end])
		w := 1
		if r >= 0x10000 {
			w = 2
		}
		if units+w > col {
			break
		}
		units += w
		off += size
	}
	return off, true
}

// Position converts a byte offset into a 0-based line and UTF-16 column.
func (f *File) Position(offset int) (line, col int) {
	if offset > len(f.Source) {
		offset = len(f.Source)
	}
	lo, hi := 0, len(f.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	line = lo
	for off := f.lineStarts[line]; off < offset; {
		r, size := utf8.DecodeRune(f.Source[off:offset])
		if r >= 0x10000 {
			col += 2
		} else {
			col++
		}
		off += size
	}
	return line, col
}

// LeafAt descends from the root to the deepest node whose range contains
// offset. At each level the first child with start <= offset < end wins;
// when none does, a child ending exactly at offset is taken so that a cursor
// placed right after an identifier still selects it.
func (f *File) LeafAt(offset int) *sitter.Node {
	if offset < 0 || offset > len(f.Source) {
		return nil
	}
	n := f.root
	for {
		next := childAt(n, offset)
		if next == nil {
			return n
		}
		n = next
	}
}

func childAt(n *sitter.Node, offset int) *sitter.Node {
	var touching *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		start, end := int(c.StartByte()), int(c.EndByte())
		if start <= offset && offset < end {
			return c
		}
		if end == offset && start < end && (touching == nil || c.IsNamed()) {
			touching = c
		}
	}
	return touching
}
