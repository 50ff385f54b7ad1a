package tsexpand

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/d-kimuson/ts-type-expand/internal/checker"
	"github.com/d-kimuson/ts-type-expand/internal/filter"
	"github.com/d-kimuson/ts-type-expand/internal/render"
	"github.com/d-kimuson/ts-type-expand/internal/store"
	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
	"github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

// ErrNoIndex is returned by index operations on an Engine created without
// WithIndex.
var ErrNoIndex = errors.New("tsexpand: index not configured")

// IndexResult summarizes one Index run. Changes holds the per-file
// declaration diff of every re-indexed file that changed.
type IndexResult struct {
	Indexed int
	Skipped int
	Removed int
	Changes map[string]DeclarationDiff
}

// Index records the exported declarations of every file in the current
// snapshot in the SQLite index. Files whose content hash is unchanged are
// skipped unless a module they re-export from was re-indexed. Files no
// longer in the snapshot are dropped. Errors on individual files are
// logged and processing continues.
func (e *Engine) Index(ctx context.Context) (IndexResult, error) {
	ctx, span := e.tracer.Start(ctx, "tsexpand.Index")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	res := IndexResult{Changes: make(map[string]DeclarationDiff)}
	if e.store == nil {
		return res, ErrNoIndex
	}

	removed, err := e.pruneIndex()
	if err != nil {
		return res, err
	}
	res.Removed = removed

	files := e.program.Files()
	stale := make(map[string]bool, len(files))
	for _, f := range files {
		existing, err := e.store.FileByPath(f.Path)
		if err != nil {
			return res, fmt.Errorf("tsexpand: lookup %s: %w", f.Path, err)
		}
		if existing == nil || existing.Hash != f.Hash {
			stale[f.Path] = true
		}
	}
	e.markDependents(files, stale)

	var errs []error
	for _, f := range files {
		if !stale[f.Path] {
			res.Skipped++
			continue
		}
		diff, err := e.indexFile(ctx, f)
		if err != nil {
			e.logger.Warn("index file failed", "path", f.Path, "err", err)
			errs = append(errs, fmt.Errorf("index %s: %w", f.Path, err))
			continue
		}
		res.Indexed++
		if !diff.Empty() {
			res.Changes[f.Path] = diff
		}
	}
	span.SetAttributes(
		attribute.Int("files.indexed", res.Indexed),
		attribute.Int("files.skipped", res.Skipped),
	)
	if len(errs) > 0 {
		return res, fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return res, nil
}

// markDependents adds to stale every file that re-exports from a stale
// file, until no more are added.
func (e *Engine) markDependents(files []*tsparse.File, stale map[string]bool) {
	for changed := true; changed; {
		changed = false
		for _, f := range files {
			if stale[f.Path] {
				continue
			}
			for _, st := range e.checker.Statements(f) {
				if st.Kind != checker.StatementReExport {
					continue
				}
				target, status := e.program.ResolveModule(f, st.Module)
				if status == checker.ModuleResolved && stale[target.Path] {
					stale[f.Path] = true
					changed = true
					break
				}
			}
		}
	}
}

func (e *Engine) pruneIndex() (int, error) {
	indexed, err := e.store.Files()
	if err != nil {
		return 0, fmt.Errorf("tsexpand: list index: %w", err)
	}
	var gone []int64
	for _, f := range indexed {
		if _, ok := e.program.File(f.Path); !ok {
			gone = append(gone, f.ID)
		}
	}
	if err := e.store.DeleteFiles(gone); err != nil {
		return 0, fmt.Errorf("tsexpand: prune index: %w", err)
	}
	return len(gone), nil
}

func (e *Engine) indexFile(ctx context.Context, f *tsparse.File) (DeclarationDiff, error) {
	items, err := e.extractLocked(ctx, f.Path)
	if err != nil {
		return DeclarationDiff{}, err
	}

	existing, err := e.store.FileByPath(f.Path)
	if err != nil {
		return DeclarationDiff{}, fmt.Errorf("lookup file: %w", err)
	}
	var oldDecls []*store.Declaration
	if existing != nil {
		oldDecls, err = e.store.DeclarationsByFile(existing.ID)
		if err != nil {
			return DeclarationDiff{}, fmt.Errorf("old declarations: %w", err)
		}
		if err := e.store.DeleteFiles([]int64{existing.ID}); err != nil {
			return DeclarationDiff{}, fmt.Errorf("delete old data: %w", err)
		}
	}

	fileID, err := e.store.InsertFile(&store.File{
		Path:        f.Path,
		Language:    f.Language,
		Hash:        f.Hash,
		LineCount:   f.LineCount(),
		LastIndexed: time.Now(),
	})
	if err != nil {
		return DeclarationDiff{}, fmt.Errorf("insert file: %w", err)
	}

	batch := store.NewBatchedStore(e.store, fileID)
	for i, it := range items {
		d, err := indexedDeclaration(i, it)
		if err != nil {
			return DeclarationDiff{}, err
		}
		if _, err := batch.InsertDeclaration(d); err != nil {
			return DeclarationDiff{}, err
		}
	}
	if err := e.store.CommitBatch(batch); err != nil {
		return DeclarationDiff{}, err
	}

	newDecls, err := batch.DeclarationsByFile(fileID)
	if err != nil {
		return DeclarationDiff{}, err
	}
	return store.DiffDeclarations(oldDecls, newDecls), nil
}

func indexedDeclaration(ordinal int, it extracted) (*store.Declaration, error) {
	data, err := typeobject.Marshal(it.decl.Type)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", it.decl.DeclaredName, err)
	}
	d := &store.Declaration{
		Ordinal:       ordinal,
		Name:          it.decl.DeclaredName,
		DeclKind:      it.declKind,
		Variant:       string(it.decl.Type.Variant()),
		TypeText:      render.Label(it.decl.Type),
		TypeJSON:      string(data),
		SignatureHash: store.ComputeSignatureHash(it.decl.DeclaredName, it.declKind, string(data)),
	}
	if named, ok := it.decl.Type.(typeobject.Named); ok {
		d.TypeName = named.Name()
	}
	if n := it.stmt.Node; n != nil {
		d.StartLine, d.StartCol = it.file.Position(int(n.StartByte()))
		d.EndLine, d.EndCol = it.file.Position(int(n.EndByte()))
	}
	return d, nil
}

// FindDeclarations queries the index. A non-empty where expression is a
// Risor predicate evaluated against each candidate; see package filter for
// the globals it can read.
func (e *Engine) FindDeclarations(ctx context.Context, q DeclarationQuery, where string) ([]IndexedDeclaration, error) {
	ctx, span := e.tracer.Start(ctx, "tsexpand.FindDeclarations",
		trace.WithAttributes(attribute.String("query.where", where)))
	defer span.End()

	if e.store == nil {
		return nil, ErrNoIndex
	}
	pred, err := filter.Compile(where)
	if err != nil {
		return nil, err
	}
	// The limit applies after filtering.
	limit := q.Limit
	if where != "" {
		q.Limit = 0
	}
	decls, err := e.store.Declarations(q)
	if err != nil {
		return nil, fmt.Errorf("tsexpand: find: %w", err)
	}

	out := make([]IndexedDeclaration, 0, len(decls))
	for _, d := range decls {
		ok, err := pred.Match(ctx, filter.Record{
			Name:     d.Name,
			Variant:  d.Variant,
			TypeName: d.TypeName,
			Kind:     d.DeclKind,
			Path:     d.Path,
			Exported: true,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, *d)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
