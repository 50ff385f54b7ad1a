package tsexpand

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

// ClassifyAtPosition classifies the type of the innermost node at a 0-based
// line and UTF-16 column of the file at path. It starts a new session.
//
// A position outside the file, or one that only reaches the file's root
// node, fails with ReasonNodeNotFound. A node whose type cannot be resolved
// fails with ReasonUnresolvedType.
func (e *Engine) ClassifyAtPosition(ctx context.Context, path string, line, column int) (TypeAtPosition, error) {
	_, span := e.tracer.Start(ctx, "tsexpand.ClassifyAtPosition", trace.WithAttributes(
		attribute.String("file.path", path),
		attribute.Int("position.line", line),
		attribute.Int("position.column", column),
	))
	defer span.End()

	res, err := e.classifyAtPosition(path, line, column)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return TypeAtPosition{}, err
	}
	span.SetAttributes(attribute.String("type.variant", string(res.Type.Variant())))
	return res, nil
}

func (e *Engine) classifyAtPosition(path string, line, column int) (TypeAtPosition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := e.file(path)
	if err != nil {
		return TypeAtPosition{}, err
	}
	offset, ok := f.Offset(line, column)
	if !ok {
		return TypeAtPosition{}, &Error{Reason: ReasonNodeNotFound, Path: path}
	}
	leaf := f.LeafAt(offset)
	if leaf == nil || tsparse.KeyOf(leaf) == tsparse.KeyOf(f.Root()) {
		return TypeAtPosition{}, &Error{Reason: ReasonNodeNotFound, Path: path}
	}

	sess := e.newSession()
	c := sess.Checker()
	t := c.TypeAtLocation(f, leaf)
	if t == nil || t.IsError() {
		return TypeAtPosition{}, &Error{Reason: ReasonUnresolvedType, Path: path}
	}

	res := TypeAtPosition{Type: sess.Classify(t)}
	if sym := c.SymbolAtLocation(f, leaf); sym != nil {
		res.DeclaredName = sym.Name()
	}
	return res, nil
}
