package tsexpand

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/d-kimuson/ts-type-expand/internal/checker"
	"github.com/d-kimuson/ts-type-expand/internal/classify"
	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

// extracted is a declaration together with the syntax it came from.
type extracted struct {
	decl     Declaration
	declKind string
	file     *tsparse.File
	stmt     checker.Statement
}

// ExtractDeclaredTypes classifies every exported declaration of the file at
// path, in source order. Named re-exports (`export { A as B } from "./m"`)
// are resolved and extracted recursively. A re-export that cannot be
// resolved is logged and skipped unless WithStrictExports is set, in which
// case it fails with ReasonExportResolutionFailed.
func (e *Engine) ExtractDeclaredTypes(ctx context.Context, path string) ([]Declaration, error) {
	ctx, span := e.tracer.Start(ctx, "tsexpand.ExtractDeclaredTypes",
		trace.WithAttributes(attribute.String("file.path", path)))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	items, err := e.extractLocked(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	out := make([]Declaration, len(items))
	for i, it := range items {
		out[i] = it.decl
	}
	span.SetAttributes(attribute.Int("declarations", len(out)))
	return out, nil
}

// extractLocked runs one extraction in a new session. Callers hold e.mu.
func (e *Engine) extractLocked(ctx context.Context, path string) ([]extracted, error) {
	f, err := e.file(path)
	if err != nil {
		return nil, err
	}
	x := &extractor{
		e:       e,
		sess:    e.newSession(),
		done:    make(map[string][]extracted),
		running: make(map[string]bool),
	}
	return x.extract(ctx, f)
}

type extractor struct {
	e    *Engine
	sess *classify.Session

	done    map[string][]extracted
	running map[string]bool
}

func (x *extractor) extract(ctx context.Context, f *tsparse.File) ([]extracted, error) {
	if items, ok := x.done[f.Path]; ok {
		return items, nil
	}
	if x.running[f.Path] {
		// Re-export cycle; the names it would contribute are already being
		// extracted further up.
		return nil, nil
	}
	x.running[f.Path] = true
	defer delete(x.running, f.Path)

	c := x.sess.Checker()
	var out []extracted
	for _, st := range c.Statements(f) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch st.Kind {
		case checker.StatementDeclaration:
			if !st.Exported {
				continue
			}
			t := c.DeclarationType(st.Symbol)
			if x.e.skipUnresolved && t.HasUnresolvedAliasArguments() {
				x.e.logger.Debug("skip unresolved generic", "name", st.Name, "path", f.Path)
				continue
			}
			out = append(out, extracted{
				decl:     Declaration{DeclaredName: st.Name, Type: x.sess.Classify(t)},
				declKind: st.DeclKind,
				file:     f,
				stmt:     st,
			})
		case checker.StatementReExport:
			items, failure := x.reExport(ctx, f, st)
			if failure != nil {
				if err := x.exportFailed(f, failure); err != nil {
					return nil, err
				}
				continue
			}
			out = append(out, items...)
		case checker.StatementExportAll:
			failure := &Error{Reason: ReasonExportResolutionFailed, ExportReason: ExportNotNamed, Path: f.Path, Module: st.Module}
			if err := x.exportFailed(f, failure); err != nil {
				return nil, err
			}
		}
	}
	x.done[f.Path] = out
	return out, nil
}

// exportFailed applies the failure policy: strict extraction returns err,
// otherwise it is logged and nil is returned.
func (x *extractor) exportFailed(f *tsparse.File, err *Error) error {
	if x.e.strictExports {
		return err
	}
	x.e.logger.Warn("skip re-export", "path", f.Path, "module", err.Module, "reason", string(err.ExportReason))
	return nil
}

func (x *extractor) reExport(ctx context.Context, f *tsparse.File, st checker.Statement) ([]extracted, *Error) {
	fail := func(reason ExportReason, cause error) *Error {
		return &Error{Reason: ReasonExportResolutionFailed, ExportReason: reason, Path: f.Path, Module: st.Module, Err: cause}
	}
	if st.Module == "" {
		return nil, fail(ExportFileNotFound, nil)
	}
	target, status := x.sess.Checker().Program().ResolveModule(f, st.Module)
	switch status {
	case checker.ModuleNotFound:
		return nil, fail(ExportModuleNotFound, nil)
	case checker.ModuleFileNotFound:
		return nil, fail(ExportModuleFileNotFound, nil)
	}
	items, err := x.extract(ctx, target)
	if err != nil {
		return nil, fail(ExportModuleFileNotFound, fmt.Errorf("extract %s: %w", target.Path, err))
	}
	if len(st.Specifiers) == 0 {
		return nil, fail(ExportUnknown, nil)
	}

	var out []extracted
	for _, spec := range st.Specifiers {
		if spec.Name == "default" {
			return nil, fail(ExportNotNamed, nil)
		}
		for _, it := range items {
			if it.decl.DeclaredName != spec.Name {
				continue
			}
			it.decl.DeclaredName = spec.Alias
			it.file, it.stmt = f, st
			out = append(out, it)
			break
		}
	}
	return out, nil
}
