package checker

import (
	"context"
	_ "embed"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

//go:embed lib.d.ts
var libSource []byte

// LibPath is the virtual path of the embedded declaration library.
const LibPath = "/__tsexpand__/lib.d.ts"

var (
	libFile *tsparse.File
	libOnce sync.Once
)

func sharedLib() *tsparse.File {
	libOnce.Do(func() {
		f, err := tsparse.Parse(context.Background(), LibPath, libSource)
		if err == nil {
			libFile = f
		}
	})
	return libFile
}

// Program is an immutable snapshot of parsed source files.
type Program struct {
	files map[string]*tsparse.File
	paths []string
	lib   *tsparse.File
}

// NewProgram builds a snapshot from parsed files. Later files replace
// earlier ones with the same path.
func NewProgram(files ...*tsparse.File) *Program {
	p := &Program{
		files: make(map[string]*tsparse.File, len(files)),
		lib:   sharedLib(),
	}
	for _, f := range files {
		if f == nil {
			continue
		}
		if _, ok := p.files[f.Path]; !ok {
			p.paths = append(p.paths, f.Path)
		}
		p.files[f.Path] = f
	}
	sort.Strings(p.paths)
	return p
}

// File returns the file at path.
func (p *Program) File(path string) (*tsparse.File, bool) {
	f, ok := p.files[filepath.Clean(path)]
	return f, ok
}

// Files returns all source files sorted by path.
func (p *Program) Files() []*tsparse.File {
	out := make([]*tsparse.File, 0, len(p.paths))
	for _, path := range p.paths {
		out = append(out, p.files[path])
	}
	return out
}

// Len returns the number of source files.
func (p *Program) Len() int { return len(p.files) }

// Lib returns the embedded declaration library file.
func (p *Program) Lib() *tsparse.File { return p.lib }

// ModuleStatus is the outcome of module resolution.
type ModuleStatus int

const (
	ModuleResolved ModuleStatus = iota
	// ModuleNotFound means no candidate path exists.
	ModuleNotFound
	// ModuleFileNotFound means a candidate exists on disk but is not part
	// of the snapshot.
	ModuleFileNotFound
)

var moduleSuffixes = []string{"", ".ts", ".tsx", ".d.ts", "/index.ts", "/index.tsx", "/index.d.ts"}

// ResolveModule resolves a module specifier relative to the importing file.
// Only relative and absolute specifiers resolve.
func (p *Program) ResolveModule(from *tsparse.File, specifier string) (*tsparse.File, ModuleStatus) {
	if !strings.HasPrefix(specifier, ".") && !filepath.IsAbs(specifier) {
		return nil, ModuleNotFound
	}
	base := specifier
	if !filepath.IsAbs(base) {
		base = filepath.Join(filepath.Dir(from.Path), specifier)
	}
	for _, ext := range []string{".js", ".jsx", ".mjs"} {
		if strings.HasSuffix(base, ext) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}

	var onDisk bool
	for _, suffix := range moduleSuffixes {
		candidate := filepath.Clean(base + suffix)
		if suffix == "" {
			if _, ok := tsparse.LanguageForFile(candidate); !ok {
				continue
			}
		}
		if f, ok := p.files[candidate]; ok {
			return f, ModuleResolved
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			onDisk = true
		}
	}
	if onDisk {
		return nil, ModuleFileNotFound
	}
	return nil, ModuleNotFound
}
