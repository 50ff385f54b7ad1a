package render

import (
	"strings"

	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

// Label returns the compact text of t without fetching anything. Named
// variants print their embedded type name.
func Label(t to.TypeObject) string {
	switch v := t.(type) {
	case nil:
		return "unknown"
	case to.Named:
		return v.Name()
	case *to.Unsupported:
		return unsupportedText(v)
	case *to.Callable:
		parts := make([]string, 0, len(v.ArgTypes))
		for _, a := range v.ArgTypes {
			parts = append(parts, a.Name+": "+Label(a.Type))
		}
		return "(" + strings.Join(parts, ", ") + ") => " + Label(v.ReturnType)
	case *to.Promise:
		return "Promise<" + Label(v.Child) + ">"
	case *to.PromiseLike:
		return "PromiseLike<" + Label(v.Child) + ">"
	case *to.Primitive:
		return string(v.Kind)
	case *to.Special:
		return specialText(v.Kind)
	case *to.Literal:
		return to.LiteralText(v.Value)
	}
	return ""
}

// specialText is the keyword text of a special kind. The Symbol tag stays
// capitalized on the wire but prints as the symbol keyword.
func specialText(k to.SpecialKind) string {
	if k == to.SpecialSymbol {
		return "symbol"
	}
	return string(k)
}

// Truncate shortens s to n characters followed by "...". n <= 0 disables
// truncation.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Kind is the tree description of an expandable variant.
type Kind string

const (
	KindUnion      Kind = "Union"
	KindProperties Kind = "Properties"
	KindFunction   Kind = "Function"
	KindArray      Kind = "Array"
	KindEnum       Kind = "Enum"
)

// KindOf returns the description for t, or "" when t has none.
func KindOf(t to.TypeObject) Kind {
	switch t.(type) {
	case *to.Union:
		return KindUnion
	case *to.Enum:
		return KindEnum
	case *to.Callable:
		return KindFunction
	case *to.Array:
		return KindArray
	case *to.Object:
		return KindProperties
	}
	return ""
}

// Expandable reports whether t has children in the tree view.
func Expandable(t to.TypeObject) bool {
	switch t.(type) {
	case *to.Union, *to.Enum, *to.Object, *to.Array, *to.Callable, *to.Promise, *to.PromiseLike:
		return true
	}
	return false
}
