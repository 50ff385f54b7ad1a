package checker

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

// TypeFlags classify a Type. A type carries exactly one primary flag;
// enum literals additionally carry FlagEnumLiteral.
type TypeFlags uint32

const (
	FlagAny TypeFlags = 1 << iota
	FlagUnknown
	FlagString
	FlagNumber
	FlagBoolean
	FlagBigInt
	FlagStringLiteral
	FlagNumberLiteral
	FlagBooleanLiteral
	FlagBigIntLiteral
	FlagEnumLiteral
	FlagESSymbol
	FlagUniqueESSymbol
	FlagVoid
	FlagUndefined
	FlagNull
	FlagNever
	FlagNonPrimitive
	FlagTypeParameter
	FlagObject
	FlagUnion
	FlagIntersection
	FlagDeferred
	FlagError

	FlagLiteral = FlagStringLiteral | FlagNumberLiteral | FlagBooleanLiteral | FlagBigIntLiteral
	FlagNullish = FlagUndefined | FlagNull
)

// ObjectKind distinguishes object types.
type ObjectKind uint8

const (
	ObjectNone ObjectKind = iota
	ObjectAnonymous
	ObjectInterface
	ObjectClass
	ObjectConstructor
	ObjectArray
	ObjectTuple
	ObjectFunction
	ObjectMapped
	ObjectNamespace
)

// BigInt is the value of a bigint literal type, stored as its decimal
// digits without the trailing "n".
type BigInt string

// Type is a checker type handle. Handles are only meaningful together with
// the Checker that produced them.
type Type struct {
	id    int
	flags TypeFlags
	kind  ObjectKind
	name  string
	value any

	types []*Type

	symbol             *Symbol
	aliasSymbol        *Symbol
	aliasTypeArguments []*Type
	typeArguments      []*Type

	// arrays
	elem          func() *Type
	elemCache     *Type
	elemResolving bool
	readonly      bool

	tuple []tupleElement

	origin *TypeNode

	resolveMembers func() *members
	members        *members
	resolving      bool

	constraint *Type
	paramDecl  *sitter.Node
}

type tupleElement struct {
	name     string
	typ      *Type
	optional bool
	rest     bool
}

type members struct {
	props       []*Symbol
	byName      map[string]*Symbol
	calls       []*Signature
	constructs  []*Signature
	stringIndex *Type
	numberIndex *Type
}

func newMembers() *members {
	return &members{byName: make(map[string]*Symbol)}
}

// add appends p unless a property of the same name exists.
func (m *members) add(p *Symbol) {
	if _, ok := m.byName[p.name]; ok {
		return
	}
	m.byName[p.name] = p
	m.props = append(m.props, p)
}

// set adds p, replacing a property of the same name in place.
func (m *members) set(p *Symbol) {
	if old, ok := m.byName[p.name]; ok {
		for i := range m.props {
			if m.props[i] == old {
				m.props[i] = p
			}
		}
	} else {
		m.props = append(m.props, p)
	}
	m.byName[p.name] = p
}

// ID returns a number unique among the types of one Checker.
func (t *Type) ID() int { return t.id }

// Flags returns the type's flags.
func (t *Type) Flags() TypeFlags { return t.flags }

// Is reports whether any of the given flags are set.
func (t *Type) Is(f TypeFlags) bool { return t.flags&f != 0 }

// ObjectKind returns the object kind, or ObjectNone for non-objects.
func (t *Type) ObjectKind() ObjectKind { return t.kind }

// IsUnion reports whether t is a union (enum types included).
func (t *Type) IsUnion() bool { return t.flags&FlagUnion != 0 }

// IsLiteral reports whether t is a literal type with a value.
func (t *Type) IsLiteral() bool { return t.flags&FlagLiteral != 0 }

// IsTypeParameter reports whether t is an uninstantiated type parameter.
func (t *Type) IsTypeParameter() bool { return t.flags&FlagTypeParameter != 0 }

// IsError reports whether t is the checker's unresolved-type sentinel.
func (t *Type) IsError() bool { return t.flags&FlagError != 0 }

// Value returns the literal value: string, float64, bool or BigInt.
func (t *Type) Value() any { return t.value }

// Types returns the constituents of a union or intersection.
func (t *Type) Types() []*Type { return t.types }

// Symbol returns the declaration symbol of the type, if any.
func (t *Type) Symbol() *Symbol { return t.symbol }

// AliasSymbol returns the type alias the type was declared through.
func (t *Type) AliasSymbol() *Symbol { return t.aliasSymbol }

// AliasTypeArguments returns the arguments the alias was instantiated with.
func (t *Type) AliasTypeArguments() []*Type { return t.aliasTypeArguments }

// ResolvedTypeArguments returns the type arguments of a generic reference
// such as Array<T>, Promise<T> or an interface instantiation.
func (t *Type) ResolvedTypeArguments() []*Type { return t.typeArguments }

// TypeNode returns the syntax the type was created from, or nil.
func (t *Type) TypeNode() *TypeNode { return t.origin }

// TypeNode is a type syntax node together with the scope it resolves in.
type TypeNode struct {
	file *tsparse.File
	node *sitter.Node
	env  *env
}

// Kind returns the tree-sitter node type, e.g. "tuple_type".
func (n *TypeNode) Kind() string { return n.node.Type() }

// Text returns the source text of the node.
func (n *TypeNode) Text() string { return n.file.Text(n.node) }

// File returns the file containing the node.
func (n *TypeNode) File() *tsparse.File { return n.file }

// Node returns the underlying syntax node.
func (n *TypeNode) Node() *sitter.Node { return n.node }

func (n *TypeNode) child(c *sitter.Node) *TypeNode {
	if c == nil {
		return nil
	}
	return &TypeNode{file: n.file, node: c, env: n.env}
}

// TypeArguments returns the explicit type arguments of a generic_type node.
func (n *TypeNode) TypeArguments() []*TypeNode {
	if n.node.Type() != "generic_type" {
		return nil
	}
	args := tsparse.Field(n.node, "type_arguments")
	if args == nil {
		args = tsparse.ChildOfType(n.node, "type_arguments")
	}
	var out []*TypeNode
	for _, c := range tsparse.NamedChildren(args) {
		out = append(out, n.child(c))
	}
	return out
}

// ElementType returns the element of an array_type node.
func (n *TypeNode) ElementType() *TypeNode {
	if n.node.Type() != "array_type" {
		return nil
	}
	kids := tsparse.NamedChildren(n.node)
	if len(kids) == 0 {
		return nil
	}
	return n.child(kids[0])
}

// Elements returns the element type nodes of a tuple_type node. A named
// member such as `a: string` yields its type annotation.
func (n *TypeNode) Elements() []*TypeNode {
	if n.node.Type() != "tuple_type" {
		return nil
	}
	var out []*TypeNode
	for _, c := range tsparse.NamedChildren(n.node) {
		switch c.Type() {
		case "required_parameter", "optional_parameter":
			if t := tupleElementType(c); t != nil {
				c = t
			}
		}
		out = append(out, n.child(c))
	}
	return out
}

// Signature is a call or construct signature.
type Signature struct {
	params     []*Symbol
	typeParams []*Type
	ret        func() *Type
	retCache   *Type
	resolving  bool

	file *tsparse.File
	node *sitter.Node
	env  *env
}

// Parameters returns the parameter symbols.
func (s *Signature) Parameters() []*Symbol { return s.params }

// TypeParameters returns the signature's own type parameters.
func (s *Signature) TypeParameters() []*Type { return s.typeParams }
