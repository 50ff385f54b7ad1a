package tsexpand

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/d-kimuson/ts-type-expand/internal/classify"
	"github.com/d-kimuson/ts-type-expand/internal/render"
	"github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

// GetProperties expands the object registered under storeKey in the most
// recent session. Keys the session does not hold, including keys from an
// earlier session, yield a single placeholder property named "unknown"
// rather than an error.
func (e *Engine) GetProperties(ctx context.Context, storeKey string) []Property {
	_, span := e.tracer.Start(ctx, "tsexpand.GetProperties",
		trace.WithAttributes(attribute.String("store.key", storeKey)))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		e.logger.Warn("properties requested before any session", "storeKey", storeKey)
		return []Property{{
			Name: classify.UnknownPropertyName,
			Type: typeobject.NewUnsupported(typeobject.UnsupportedProp, ""),
		}}
	}
	props := e.session.Properties(storeKey)
	span.SetAttributes(attribute.Int("properties", len(props)))
	return props
}

// Properties implements render.PropertyFetcher over the current session.
func (e *Engine) Properties(ctx context.Context, storeKey string) ([]Property, error) {
	return e.GetProperties(ctx, storeKey), nil
}

// RenderType returns the text of t, expanding objects through the current
// session up to the configured render limits.
func (e *Engine) RenderType(ctx context.Context, t TypeObject) (string, error) {
	return render.New(e, e.renderOpts...).Render(ctx, t)
}

// Tree returns a tree builder that expands objects through the current
// session.
func (e *Engine) Tree() *render.Tree {
	return render.NewTree(e, e.treeOpts)
}
