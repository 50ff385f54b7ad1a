// Package render produces type text from type objects.
//
// Render expands Object variants through a PropertyFetcher, which may be a
// remote round trip, and stops expanding once a depth or call ceiling is
// reached. Label is the synchronous, shallow variant built from the
// embedded type names.
package render

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

// EmptyObject is written for objects past the expansion ceiling.
const EmptyObject = "{}"

const (
	DefaultMaxDepth = 3
	DefaultMaxCalls = 100
)

// PropertyFetcher expands the object registered under storeKey.
type PropertyFetcher interface {
	Properties(ctx context.Context, storeKey string) ([]to.Property, error)
}

// FetcherFunc adapts a function to PropertyFetcher.
type FetcherFunc func(ctx context.Context, storeKey string) ([]to.Property, error)

// Properties implements PropertyFetcher.
func (f FetcherFunc) Properties(ctx context.Context, storeKey string) ([]to.Property, error) {
	return f(ctx, storeKey)
}

// Renderer renders type objects as TypeScript-like text.
type Renderer struct {
	fetcher  PropertyFetcher
	maxDepth int
	maxCalls int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMaxDepth sets how many nested objects are expanded.
func WithMaxDepth(n int) Option {
	return func(r *Renderer) { r.maxDepth = n }
}

// WithMaxCalls sets how many property fetches one Render may issue.
func WithMaxCalls(n int) Option {
	return func(r *Renderer) { r.maxCalls = n }
}

// New returns a Renderer. A nil fetcher renders every object as its type
// name.
func New(fetcher PropertyFetcher, opts ...Option) *Renderer {
	r := &Renderer{fetcher: fetcher, maxDepth: DefaultMaxDepth, maxCalls: DefaultMaxCalls}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type state struct {
	calls int
}

// Render returns the text of t, fetching object members as needed.
func (r *Renderer) Render(ctx context.Context, t to.TypeObject) (string, error) {
	var b strings.Builder
	if err := r.write(ctx, &b, t, 0, &state{}); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (r *Renderer) write(ctx context.Context, b *strings.Builder, t to.TypeObject, depth int, st *state) error {
	switch v := t.(type) {
	case nil:
		b.WriteString("unknown")
	case *to.Primitive:
		b.WriteString(string(v.Kind))
	case *to.Special:
		b.WriteString(specialText(v.Kind))
	case *to.Literal:
		b.WriteString(literal(v.Value))
	case *to.Array:
		return r.writeArray(ctx, b, v.Child, depth, st)
	case *to.Tuple:
		b.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := r.write(ctx, b, it, depth, st); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case *to.Union:
		for i, u := range v.Unions {
			if i > 0 {
				b.WriteString(" | ")
			}
			if err := r.write(ctx, b, u, depth, st); err != nil {
				return err
			}
		}
	case *to.Enum:
		b.WriteString(v.TypeName)
	case *to.Callable:
		return r.writeCallable(ctx, b, v, depth, st)
	case *to.Promise:
		b.WriteString("Promise<")
		if err := r.write(ctx, b, v.Child, depth, st); err != nil {
			return err
		}
		b.WriteByte('>')
	case *to.PromiseLike:
		b.WriteString("PromiseLike<")
		if err := r.write(ctx, b, v.Child, depth, st); err != nil {
			return err
		}
		b.WriteByte('>')
	case *to.Object:
		return r.writeObject(ctx, b, v, depth, st)
	case *to.Unsupported:
		b.WriteString(unsupportedText(v))
	default:
		return fmt.Errorf("render: unexpected variant %s", t.Variant())
	}
	return nil
}

func (r *Renderer) writeArray(ctx context.Context, b *strings.Builder, elem to.TypeObject, depth int, st *state) error {
	paren := false
	switch elem.(type) {
	case *to.Union, *to.Callable:
		paren = true
	}
	if paren {
		b.WriteByte('(')
	}
	if err := r.write(ctx, b, elem, depth, st); err != nil {
		return err
	}
	if paren {
		b.WriteByte(')')
	}
	b.WriteString("[]")
	return nil
}

func (r *Renderer) writeCallable(ctx context.Context, b *strings.Builder, c *to.Callable, depth int, st *state) error {
	b.WriteByte('(')
	for i, a := range c.ArgTypes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Name)
		b.WriteString(": ")
		if err := r.write(ctx, b, a.Type, depth, st); err != nil {
			return err
		}
	}
	b.WriteString(") => ")
	return r.write(ctx, b, c.ReturnType, depth, st)
}

func (r *Renderer) writeObject(ctx context.Context, b *strings.Builder, o *to.Object, depth int, st *state) error {
	if r.fetcher == nil {
		b.WriteString(o.TypeName)
		return nil
	}
	if depth >= r.maxDepth || st.calls >= r.maxCalls {
		b.WriteString(EmptyObject)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	st.calls++
	props, err := r.fetcher.Properties(ctx, o.StoreKey)
	if err != nil {
		return fmt.Errorf("render: fetch properties of %s: %w", o.TypeName, err)
	}
	if len(props) == 0 {
		b.WriteString(EmptyObject)
		return nil
	}
	b.WriteString("{ ")
	for _, p := range props {
		b.WriteString(propertyKey(p.Name))
		b.WriteString(": ")
		if err := r.write(ctx, b, p.Type, depth+1, st); err != nil {
			return err
		}
		b.WriteString("; ")
	}
	b.WriteByte('}')
	return nil
}

func literal(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return to.LiteralText(v)
}

func unsupportedText(u *to.Unsupported) string {
	if u.TypeText != "" {
		return u.TypeText
	}
	return "unsupported"
}

// propertyKey quotes names that are not identifiers.
func propertyKey(name string) string {
	if name == "" {
		return `""`
	}
	for i, r := range name {
		ok := r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 0x7f ||
			i > 0 && r >= '0' && r <= '9'
		if !ok {
			if _, err := strconv.ParseFloat(name, 64); err == nil {
				return name
			}
			return strconv.Quote(name)
		}
	}
	return name
}
