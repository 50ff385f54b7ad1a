// Package classify converts checker type handles into type objects.
//
// Conversion is an ordered list of rules; the first rule whose predicate
// matches decides the variant. Object types are not expanded: they are
// registered in the Session and their members are produced on demand by
// Session.Properties.
package classify

import (
	"strings"

	"github.com/d-kimuson/ts-type-expand/internal/checker"
	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

// maxClassifyDepth bounds eager recursion through non-object types such as
// `type J = string | J[]`.
const maxClassifyDepth = 32

// input is what every rule sees.
type input struct {
	t    *checker.Type
	node *checker.TypeNode
	text string
}

type rule struct {
	variant to.Variant
	match   func(s *Session, in input) bool
	convert func(s *Session, in input) to.TypeObject
}

var primitiveKeywords = map[string]to.PrimitiveKind{
	"string":  to.PrimitiveString,
	"number":  to.PrimitiveNumber,
	"bigint":  to.PrimitiveBigInt,
	"boolean": to.PrimitiveBoolean,
}

var specialKeywords = map[string]to.SpecialKind{
	"null":          to.SpecialNull,
	"undefined":     to.SpecialUndefined,
	"void":          to.SpecialVoid,
	"any":           to.SpecialAny,
	"unknown":       to.SpecialUnknown,
	"never":         to.SpecialNever,
	"Date":          to.SpecialDate,
	"unique symbol": to.SpecialUniqueSymbol,
	"symbol":        to.SpecialSymbol,
	"Symbol":        to.SpecialSymbol,
}

// rules is evaluated top to bottom. Predicates overlap: an enum is a union
// and most objects could also be callable, so the order is significant.
var rules []rule

func init() {
	rules = []rule{
		{
			variant: to.VariantEnum,
			match: func(_ *Session, in input) bool {
				return in.t.IsUnion() && len(in.t.Types()) > 0 && in.t.Symbol() != nil
			},
			convert: (*Session).convertEnum,
		},
		{
			variant: to.VariantUnion,
			match: func(_ *Session, in input) bool {
				return in.t.IsUnion() && len(in.t.Types()) >= 2
			},
			convert: func(s *Session, in input) to.TypeObject {
				u := &to.Union{TypeName: in.text}
				for _, m := range in.t.Types() {
					u.Unions = append(u.Unions, s.classify(m))
				}
				return u
			},
		},
		{
			variant: to.VariantUnsupported,
			match: func(_ *Session, in input) bool {
				return in.t.IsTypeParameter()
			},
			convert: func(_ *Session, in input) to.TypeObject {
				return to.NewUnsupported(to.UnsupportedUnresolvedTypeParameter, in.text)
			},
		},
		{
			variant: to.VariantTuple,
			match: func(_ *Session, in input) bool {
				return in.node != nil && in.node.Kind() == "tuple_type"
			},
			convert: func(s *Session, in input) to.TypeObject {
				tup := &to.Tuple{TypeName: in.text, Items: []to.TypeObject{}}
				for _, el := range in.node.Elements() {
					tup.Items = append(tup.Items, s.classify(s.checker.TypeFromTypeNode(el)))
				}
				return tup
			},
		},
		{
			variant: to.VariantLiteral,
			match: func(_ *Session, in input) bool {
				return in.t.IsLiteral() || in.text == "true" || in.text == "false"
			},
			convert: func(_ *Session, in input) to.TypeObject {
				if in.t.IsLiteral() {
					return to.NewLiteral(literalValue(in.t.Value()))
				}
				return to.NewLiteral(in.text == "true")
			},
		},
		{
			variant: to.VariantPrimitive,
			match: func(_ *Session, in input) bool {
				_, ok := primitiveKeywords[in.text]
				return ok
			},
			convert: func(_ *Session, in input) to.TypeObject {
				return to.NewPrimitive(primitiveKeywords[in.text])
			},
		},
		{
			variant: to.VariantSpecial,
			match: func(_ *Session, in input) bool {
				_, ok := specialKeywords[in.text]
				return ok
			},
			convert: func(_ *Session, in input) to.TypeObject {
				return to.NewSpecial(specialKeywords[in.text])
			},
		},
		{
			variant: to.VariantArray,
			match: func(_ *Session, in input) bool {
				return strings.HasSuffix(in.text, "[]") || isArraySymbol(in.t)
			},
			convert: func(s *Session, in input) to.TypeObject {
				return &to.Array{TypeName: in.text, Child: s.arrayElement(in)}
			},
		},
		{
			variant: to.VariantCallable,
			match: func(s *Session, in input) bool {
				return len(s.checker.CallSignatures(in.t)) > 0
			},
			convert: func(s *Session, in input) to.TypeObject {
				return s.convertSignature(s.checker.CallSignatures(in.t)[0])
			},
		},
		{
			variant: to.VariantPromise,
			match: func(_ *Session, in input) bool {
				return symbolName(in.t) == "Promise"
			},
			convert: func(s *Session, in input) to.TypeObject {
				return &to.Promise{Child: s.firstTypeArgument(in)}
			},
		},
		{
			variant: to.VariantPromiseLike,
			match: func(_ *Session, in input) bool {
				return symbolName(in.t) == "PromiseLike"
			},
			convert: func(s *Session, in input) to.TypeObject {
				return &to.PromiseLike{Child: s.firstTypeArgument(in)}
			},
		},
		{
			variant: to.VariantObject,
			match: func(s *Session, in input) bool {
				return len(s.checker.PropertiesOfType(in.t)) > 0
			},
			convert: func(s *Session, in input) to.TypeObject {
				return &to.Object{TypeName: in.text, StoreKey: s.register(in.t)}
			},
		},
	}
}

// classify runs the rule table against t.
func (s *Session) classify(t *checker.Type) to.TypeObject {
	if t == nil {
		return to.NewUnsupported(to.UnsupportedConvert, "")
	}
	in := input{t: t, node: t.TypeNode(), text: s.typeText(t)}
	if s.depth >= maxClassifyDepth {
		s.logger.Debug("classification depth exceeded", "type", in.text)
		return s.count(to.NewUnsupported(to.UnsupportedConvert, in.text))
	}
	s.depth++
	defer func() { s.depth-- }()

	for _, r := range rules {
		if r.match(s, in) {
			return s.count(r.convert(s, in))
		}
	}
	return s.count(to.NewUnsupported(to.UnsupportedConvert, in.text))
}

// typeText is the printed type with a leading `typeof ` removed.
func (s *Session) typeText(t *checker.Type) string {
	return strings.Replace(s.checker.TypeToString(t), "typeof ", "", 1)
}

func (s *Session) convertEnum(in input) to.TypeObject {
	e := &to.Enum{TypeName: in.text, Enums: []to.EnumMember{}}
	for _, member := range s.checker.ExportsOfSymbol(in.t.Symbol()) {
		if _, ok := member.ValueDeclaration(); !ok {
			continue
		}
		if lit, ok := s.classify(s.checker.TypeOfSymbol(member)).(*to.Literal); ok {
			e.Enums = append(e.Enums, to.EnumMember{Name: member.Name(), Type: lit})
		}
	}
	return e
}

func (s *Session) convertSignature(sig *checker.Signature) *to.Callable {
	c := &to.Callable{ArgTypes: []to.Argument{}}
	for _, p := range sig.Parameters() {
		if len(p.Declarations()) == 0 {
			continue
		}
		c.ArgTypes = append(c.ArgTypes, to.Argument{
			Name: p.Name(),
			Type: s.classify(s.checker.TypeOfSymbol(p)),
		})
	}
	c.ReturnType = s.classify(s.checker.ReturnTypeOfSignature(sig))
	return c
}

// arrayElement tries, in order, the resolved type argument of Array, the
// first explicit argument of a generic reference and the element of a
// `T[]` annotation.
func (s *Session) arrayElement(in input) to.TypeObject {
	if isArraySymbol(in.t) {
		if args := in.t.ResolvedTypeArguments(); len(args) > 0 {
			return s.classify(args[0])
		}
	}
	if in.node == nil {
		return to.NewUnsupported(to.UnsupportedArrayT, "")
	}
	switch in.node.Kind() {
	case "generic_type":
		if args := in.node.TypeArguments(); len(args) > 0 {
			return s.classify(s.checker.TypeFromTypeNode(args[0]))
		}
	case "array_type":
		if el := in.node.ElementType(); el != nil {
			return s.classify(s.checker.TypeFromTypeNode(el))
		}
	}
	return to.NewUnsupported(to.UnsupportedArrayT, "")
}

// firstTypeArgument prefers the resolved arguments of t and falls back to
// the explicit arguments written in t's alias declaration.
func (s *Session) firstTypeArgument(in input) to.TypeObject {
	if args := in.t.ResolvedTypeArguments(); len(args) > 0 {
		return s.classify(args[0])
	}
	if decl := s.checker.AliasDeclarationTypeNode(in.t); decl != nil {
		if args := decl.TypeArguments(); len(args) > 0 {
			return s.classify(s.checker.TypeFromTypeNode(args[0]))
		}
	}
	return to.NewUnsupported(to.UnsupportedPromiseNoArgument, "")
}

func symbolName(t *checker.Type) string {
	if sym := t.Symbol(); sym != nil {
		return sym.Name()
	}
	return ""
}

func isArraySymbol(t *checker.Type) bool {
	name := symbolName(t)
	return name == "Array" || name == "ReadonlyArray"
}

func literalValue(v any) any {
	if b, ok := v.(checker.BigInt); ok {
		digits := string(b)
		if neg := strings.HasPrefix(digits, "-"); neg {
			return to.BigInt{Negative: true, Base10Value: digits[1:]}
		}
		return to.BigInt{Base10Value: digits}
	}
	return v
}
