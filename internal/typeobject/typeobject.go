// Package typeobject defines the serializable description of a TypeScript
// type. Values are plain data: an Object carries a store key instead of its
// members, so a description is always finite even for recursive types.
package typeobject

import "fmt"

// Variant is the discriminator written to the "__type" field.
type Variant string

const (
	VariantPrimitive   Variant = "PrimitiveTO"
	VariantSpecial     Variant = "SpecialTO"
	VariantLiteral     Variant = "LiteralTO"
	VariantArray       Variant = "ArrayTO"
	VariantTuple       Variant = "TupleTO"
	VariantObject      Variant = "ObjectTO"
	VariantUnion       Variant = "UnionTO"
	VariantEnum        Variant = "EnumTO"
	VariantCallable    Variant = "CallableTO"
	VariantPromise     Variant = "PromiseTO"
	VariantPromiseLike Variant = "PromiseLikeTO"
	VariantUnsupported Variant = "UnsupportedTO"
)

// Variants lists every variant in classification order.
var Variants = []Variant{
	VariantEnum, VariantUnion, VariantTuple, VariantLiteral, VariantPrimitive,
	VariantSpecial, VariantArray, VariantCallable, VariantPromise,
	VariantPromiseLike, VariantObject, VariantUnsupported,
}

// TypeObject is the tagged union of type descriptions.
type TypeObject interface {
	// Variant returns the discriminator for type switching.
	Variant() Variant

	// Ensure only types in this package can implement TypeObject.
	sealed()
}

// Named is implemented by variants that carry a printed type name.
type Named interface {
	TypeObject
	Name() string
}

type base struct{}

func (base) sealed() {}

// PrimitiveKind is the keyword of a built-in scalar.
type PrimitiveKind string

const (
	PrimitiveString  PrimitiveKind = "string"
	PrimitiveNumber  PrimitiveKind = "number"
	PrimitiveBigInt  PrimitiveKind = "bigint"
	PrimitiveBoolean PrimitiveKind = "boolean"
)

// SpecialKind names a compiler sentinel or well-known nominal type.
type SpecialKind string

const (
	SpecialNull         SpecialKind = "null"
	SpecialUndefined    SpecialKind = "undefined"
	SpecialAny          SpecialKind = "any"
	SpecialUnknown      SpecialKind = "unknown"
	SpecialNever        SpecialKind = "never"
	SpecialVoid         SpecialKind = "void"
	SpecialDate         SpecialKind = "Date"
	SpecialSymbol       SpecialKind = "Symbol"
	SpecialUniqueSymbol SpecialKind = "unique symbol"
)

// UnsupportedKind records which extraction step gave up.
type UnsupportedKind string

const (
	UnsupportedArrayT                  UnsupportedKind = "arrayT"
	UnsupportedProp                    UnsupportedKind = "prop"
	UnsupportedConvert                 UnsupportedKind = "convert"
	UnsupportedFunction                UnsupportedKind = "function"
	UnsupportedUnresolvedTypeParameter UnsupportedKind = "unresolvedTypeParameter"
	UnsupportedPromiseNoArgument       UnsupportedKind = "promiseNoArgument"
	UnsupportedEnumValNotFound         UnsupportedKind = "enumValNotFound"
)

// Primitive is string, number, bigint or boolean.
type Primitive struct {
	base
	Kind PrimitiveKind
}

// Special is null, undefined, any, unknown, never, void, Date, Symbol or
// unique symbol.
type Special struct {
	base
	Kind SpecialKind
}

// BigInt is a bigint literal value in the compiler's pseudo form.
type BigInt struct {
	Negative    bool   `json:"negative"`
	Base10Value string `json:"base10Value"`
}

func (b BigInt) String() string {
	if b.Negative {
		return "-" + b.Base10Value + "n"
	}
	return b.Base10Value + "n"
}

// Literal is a single literal value. Value is a string, float64, bool or
// BigInt.
type Literal struct {
	base
	Value any
}

// Array is a homogeneous sequence.
type Array struct {
	base
	TypeName string
	Child    TypeObject
}

// Tuple is a fixed-arity sequence.
type Tuple struct {
	base
	TypeName string
	Items    []TypeObject
}

// Object is a struct-shaped type. Its members are fetched through StoreKey.
type Object struct {
	base
	TypeName string
	StoreKey string
}

// Union has at least two alternatives.
type Union struct {
	base
	TypeName string
	Unions   []TypeObject
}

// EnumMember is one literal member of an Enum.
type EnumMember struct {
	Name string
	Type *Literal
}

// Enum is a named set of literal members.
type Enum struct {
	base
	TypeName string
	Enums    []EnumMember
}

// Argument is one parameter of a Callable.
type Argument struct {
	Name string
	Type TypeObject
}

// Callable is a function signature.
type Callable struct {
	base
	ArgTypes   []Argument
	ReturnType TypeObject
}

// Promise wraps the resolved value type of a Promise.
type Promise struct {
	base
	Child TypeObject
}

// PromiseLike wraps the resolved value type of a PromiseLike.
type PromiseLike struct {
	base
	Child TypeObject
}

// Unsupported is a classification gap. It is data, not an error.
type Unsupported struct {
	base
	Kind     UnsupportedKind
	TypeText string
}

func (*Primitive) Variant() Variant   { return VariantPrimitive }
func (*Special) Variant() Variant     { return VariantSpecial }
func (*Literal) Variant() Variant     { return VariantLiteral }
func (*Array) Variant() Variant       { return VariantArray }
func (*Tuple) Variant() Variant       { return VariantTuple }
func (*Object) Variant() Variant      { return VariantObject }
func (*Union) Variant() Variant       { return VariantUnion }
func (*Enum) Variant() Variant        { return VariantEnum }
func (*Callable) Variant() Variant    { return VariantCallable }
func (*Promise) Variant() Variant     { return VariantPromise }
func (*PromiseLike) Variant() Variant { return VariantPromiseLike }
func (*Unsupported) Variant() Variant { return VariantUnsupported }

func (a *Array) Name() string  { return a.TypeName }
func (t *Tuple) Name() string  { return t.TypeName }
func (o *Object) Name() string { return o.TypeName }
func (u *Union) Name() string  { return u.TypeName }
func (e *Enum) Name() string   { return e.TypeName }

// Property is one member returned by a property fetch.
type Property struct {
	Name string
	Type TypeObject
}

// Declaration is one declaration extracted from a file. DeclaredName is
// empty for anonymous expressions.
type Declaration struct {
	DeclaredName string
	Type         TypeObject
}

// NewPrimitive returns a Primitive of the given kind.
func NewPrimitive(kind PrimitiveKind) *Primitive { return &Primitive{Kind: kind} }

// NewSpecial returns a Special of the given kind.
func NewSpecial(kind SpecialKind) *Special { return &Special{Kind: kind} }

// NewLiteral returns a Literal. Integer values are stored as float64.
func NewLiteral(v any) *Literal {
	switch n := v.(type) {
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	}
	return &Literal{Value: v}
}

// NewUnsupported returns an Unsupported of the given kind.
func NewUnsupported(kind UnsupportedKind, typeText string) *Unsupported {
	return &Unsupported{Kind: kind, TypeText: typeText}
}

// Walk calls fn for t and every description nested in it, depth first.
// Object members are not visited since they are not embedded.
func Walk(t TypeObject, fn func(TypeObject) bool) {
	if t == nil || !fn(t) {
		return
	}
	switch v := t.(type) {
	case *Array:
		Walk(v.Child, fn)
	case *Tuple:
		for _, it := range v.Items {
			Walk(it, fn)
		}
	case *Union:
		for _, u := range v.Unions {
			Walk(u, fn)
		}
	case *Enum:
		for _, m := range v.Enums {
			if m.Type != nil {
				Walk(m.Type, fn)
			}
		}
	case *Callable:
		for _, a := range v.ArgTypes {
			Walk(a.Type, fn)
		}
		Walk(v.ReturnType, fn)
	case *Promise:
		Walk(v.Child, fn)
	case *PromiseLike:
		Walk(v.Child, fn)
	}
}

// LiteralText formats a literal value the way it appears in type text.
func LiteralText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return formatFloat(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case BigInt:
		return x.String()
	case nil:
		return "null"
	default:
		return fmt.Sprint(x)
	}
}
