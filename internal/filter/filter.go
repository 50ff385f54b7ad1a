// Package filter evaluates Risor predicates over extracted declarations,
// backing the `--where` flag of the CLI.
//
// A predicate sees these globals:
//
//	name       declared name ("" for anonymous declarations)
//	variant    type object discriminator, e.g. "ObjectTO"
//	type_name  embedded type name of named variants, else ""
//	kind       declaration kind: type, interface, enum, class, function, variable
//	path       source file path
//	exported   always true for extracted declarations
//
// Example: `variant == "ObjectTO" && name.has_prefix("User")`.
package filter

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
	"github.com/risor-io/risor/parser"
)

// Record is the view of one declaration a predicate evaluates against.
type Record struct {
	Name     string
	Variant  string
	TypeName string
	Kind     string
	Path     string
	Exported bool
}

// Filter is a parsed predicate. The zero Filter and a nil *Filter match
// everything.
type Filter struct {
	src string
}

// Compile checks expr for syntax errors. An empty expression matches
// everything.
func Compile(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Filter{}, nil
	}
	if _, err := parser.Parse(context.Background(), expr); err != nil {
		return nil, fmt.Errorf("filter: parse %q: %w", expr, err)
	}
	return &Filter{src: expr}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.src
}

// Match evaluates the predicate against r. The result is the truthiness of
// the expression's value.
func (f *Filter) Match(ctx context.Context, r Record) (bool, error) {
	if f == nil || f.src == "" {
		return true, nil
	}
	var opts []risor.Option
	for name, val := range globals(r) {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	result, err := risor.Eval(ctx, f.src, opts...)
	if err != nil {
		return false, fmt.Errorf("filter: eval %q: %w", f.src, err)
	}
	if errObj, ok := result.(*object.Error); ok {
		return false, fmt.Errorf("filter: eval %q: %s", f.src, errObj.Inspect())
	}
	return result.IsTruthy(), nil
}

func globals(r Record) map[string]any {
	return map[string]any{
		"name":      object.NewString(r.Name),
		"variant":   object.NewString(r.Variant),
		"type_name": object.NewString(r.TypeName),
		"kind":      object.NewString(r.Kind),
		"path":      object.NewString(r.Path),
		"exported":  object.NewBool(r.Exported),
	}
}
